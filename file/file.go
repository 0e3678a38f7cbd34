package file

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// GatherPaths walks root and returns the files whose extension is one of
// exts, sorted. maxNum of 0 means no limit.
func GatherPaths(root string, maxNum int, exts ...string) ([]string, error) {
	var res []string
	walk := func(s string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range exts {
			if strings.HasSuffix(s, ext) {
				res = append(res, s)
				break
			}
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, errors.Wrap(err, "error walking "+root)
	}
	sort.Strings(res)
	if maxNum > 0 && len(res) > maxNum {
		res = res[:maxNum]
	}
	return res, nil
}

func GatherMidiPaths(root string, maxNum int) ([]string, error) {
	return GatherPaths(root, maxNum, ".mid", ".midi")
}

// OutputPath maps a path under inDir to outDir, swapping the extension
// for ext.
func OutputPath(path, inDir, outDir, ext string) string {
	rel, err := filepath.Rel(inDir, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	return filepath.Join(outDir, strings.TrimSuffix(rel, filepath.Ext(rel))+ext)
}

type Job struct {
	Num    uint32
	Input  string
	Output string
}

// CreateJobs numbers every input path and pairs it with its output path.
func CreateJobs(paths []string, inDir, outDir, ext string) []Job {
	res := make([]Job, 0, len(paths))
	for i, v := range paths {
		res = append(res, Job{
			Num:    uint32(i),
			Input:  v,
			Output: OutputPath(v, inDir, outDir, ext),
		})
	}
	return res
}
