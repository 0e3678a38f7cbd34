package midi

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
	"gitlab.com/gomidi/midi/v2/smf"
)

func ReadMidiFile(filepath string) (*smf.SMF, error) {
	dat, err := os.ReadFile(filepath)
	if err != nil {
		return nil, errors.New(fmt.Sprintf("Error reading midi file... %s", err.Error()))
	}
	res, err := codec.ReadSMF(dat)
	if err != nil {
		return nil, errors.New(fmt.Sprintf("Error parsing midi file... %s", err.Error()))
	}
	return res, nil
}

// ReadScore loads either a .mid/.midi file or its textual .json form.
func ReadScore(path string) (model.Score, error) {
	if IsMidiPath(path) {
		s, err := ReadMidiFile(path)
		if err != nil {
			return model.Score{}, err
		}
		return codec.FromSMF(s)
	}
	dat, err := os.ReadFile(path)
	if err != nil {
		return model.Score{}, errors.Wrap(err, "could not read score")
	}
	return codec.UnmarshalScore(dat)
}

func WriteMidiFile(path string, score model.Score, opts codec.Options) error {
	dat, err := codec.Encode(score, opts)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, dat)
}

func WriteJSONFile(path string, score model.Score) error {
	dat, err := codec.MarshalScore(score)
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, dat)
}

// WriteFileAtomic writes to a temporary file next to path and renames it
// into place, so a failed conversion never leaves a partial file behind.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrap(err, "could not create output dir")
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(err, "could not create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write failed for file: "+path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "could not close temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "could not move file into place")
}

func IsMidiPath(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".mid" || ext == ".midi"
}
