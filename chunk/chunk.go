package chunk

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jsphweid/midigen/midi"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
)

const (
	OverviewFilename = "allChunks.dat"
	DefaultPairs     = 1 << 16
)

var ErrBadChunk = errors.New("bad chunk file")

// Write exports every training pair of w into chunk files of at most
// perChunk pairs each, plus the allChunks.dat overview listing them.
// Start and End of each overview entry are the half-open pair range.
func Write(dir string, w *window.Windows, vocabSize, perChunk int) ([]model.ChunkOverview, error) {
	if perChunk < 1 {
		perChunk = DefaultPairs
	}
	var res []model.ChunkOverview
	for start := 0; start < w.Len(); start += perChunk {
		end := min(start+perChunk, w.Len())
		c, err := makeChunk(dir, w, vocabSize, start, end)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := WriteOverview(dir, res); err != nil {
		return nil, err
	}
	return res, nil
}

func makeChunk(dir string, w *window.Windows, vocabSize, start, end int) (model.ChunkOverview, error) {
	c := model.ChunkOverview{
		Filename: uuid.New().String() + ".dat",
		Start:    uint32(start),
		End:      uint32(end),
	}
	header := model.ChunkHeader{
		Length:    uint32(w.Length()),
		VocabSize: uint32(vocabSize),
		Count:     uint32(end - start),
	}

	// encode header into buffer
	headerBuf := new(bytes.Buffer)
	if err := gob.NewEncoder(headerBuf).Encode(header); err != nil {
		return c, errors.Wrap(err, "could not encode chunk header")
	}

	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, uint32(headerBuf.Len()))
	buf.Write(headerBuf.Bytes())

	// fill up data section, context then target
	record := make([]uint32, w.Length()+1)
	for i := start; i < end; i++ {
		p := w.At(i)
		for j, idx := range p.Context {
			record[j] = uint32(idx)
		}
		record[w.Length()] = uint32(p.Target)
		binary.Write(buf, binary.LittleEndian, record)
	}

	path := filepath.Join(dir, c.Filename)
	return c, errors.Wrap(midi.WriteFileAtomic(path, buf.Bytes()), "write failed for chunk file")
}

func WriteOverview(dir string, chunks []model.ChunkOverview) error {
	buf := new(bytes.Buffer)
	if err := gob.NewEncoder(buf).Encode(chunks); err != nil {
		return errors.Wrap(err, "could not encode chunk overview")
	}
	return midi.WriteFileAtomic(filepath.Join(dir, OverviewFilename), buf.Bytes())
}

func LoadOverview(dir string) ([]model.ChunkOverview, error) {
	f, err := os.Open(filepath.Join(dir, OverviewFilename))
	if err != nil {
		return nil, errors.Wrap(err, "could not load chunk overview")
	}
	defer f.Close()

	var chunks []model.ChunkOverview
	if err := gob.NewDecoder(f).Decode(&chunks); err != nil {
		return nil, errors.Wrap(err, "could not decode chunk overview")
	}
	return chunks, nil
}

// ReadHeader reads the length-prefixed header, leaving r at the first
// record. It also returns the number of bytes the header took.
func ReadHeader(r io.Reader) (model.ChunkHeader, uint32, error) {
	var h model.ChunkHeader
	var headerLength uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLength); err != nil {
		return h, 0, errors.Wrap(ErrBadChunk, "could not read header length: "+err.Error())
	}

	buf := make([]byte, headerLength)
	if _, err := io.ReadFull(r, buf); err != nil {
		return h, 0, errors.Wrap(ErrBadChunk, "could not read header: "+err.Error())
	}
	// NOTE: decoding from the slice keeps gob's buffering away from r
	if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&h); err != nil {
		return h, 0, errors.Wrap(ErrBadChunk, "could not decode header: "+err.Error())
	}
	return h, headerLength + 4, nil
}

// ReadPairs loads a whole chunk file back into training pairs.
func ReadPairs(path string) (model.ChunkHeader, []window.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.ChunkHeader{}, nil, errors.Wrap(err, "could not open chunk")
	}
	defer f.Close()

	r := bufio.NewReader(f)
	h, _, err := ReadHeader(r)
	if err != nil {
		return h, nil, errors.Wrap(err, path)
	}

	pairs := make([]window.Pair, 0, h.Count)
	record := make([]uint32, h.Length+1)
	for i := uint32(0); i < h.Count; i++ {
		if err := binary.Read(r, binary.LittleEndian, record); err != nil {
			return h, nil, errors.Wrapf(ErrBadChunk, "%s: record %d: %v", path, i, err)
		}
		p := window.Pair{Context: make(model.Window, h.Length), Target: int(record[h.Length])}
		for j := range p.Context {
			p.Context[j] = int(record[j])
		}
		pairs = append(pairs, p)
	}
	return h, pairs, nil
}
