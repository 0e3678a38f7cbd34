package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func touch(t *testing.T, path string) {
	assert.NoError(t, os.MkdirAll(filepath.Dir(path), 0777))
	assert.NoError(t, os.WriteFile(path, nil, 0666))
}

func TestGatherMidiPaths(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "b.mid"))
	touch(t, filepath.Join(root, "sub", "a.midi"))
	touch(t, filepath.Join(root, "notes.txt"))

	paths, err := GatherMidiPaths(root, 0)
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]string{
		filepath.Join(root, "b.mid"),
		filepath.Join(root, "sub", "a.midi"),
	}, paths)

	limited, err := GatherMidiPaths(root, 1)
	assert.NoError(err)
	assert.Len(limited, 1)
}

func TestGatherMissingDir(t *testing.T) {
	_, err := GatherMidiPaths(filepath.Join(t.TempDir(), "missing"), 0)
	assert.Error(t, err)
}

func TestCreateJobs(t *testing.T) {
	jobs := CreateJobs([]string{"in/x.mid", "in/sub/y.midi"}, "in", "out", ".json")
	assert.Equal(t, []Job{
		{Num: 0, Input: "in/x.mid", Output: filepath.Join("out", "x.json")},
		{Num: 1, Input: "in/sub/y.midi", Output: filepath.Join("out", "sub", "y.json")},
	}, jobs)
}
