package window

import (
	"iter"

	"github.com/jsphweid/midigen/model"
	"github.com/pkg/errors"
)

var ErrInvalidLength = errors.New("window length must be at least 1")

// Pair is one supervised example: a context window and the index that
// follows it.
type Pair struct {
	Context model.Window
	Target  int
}

// Windows is the stride-1 sliding window view over a token index sequence.
// Pairs are computed on demand, so any pair can be fetched in any order
// and the sequence can be walked any number of times.
type Windows struct {
	indices []int
	length  int
}

func New(indices []int, length int) (*Windows, error) {
	if length < 1 {
		return nil, errors.Wrapf(ErrInvalidLength, "got %d", length)
	}
	return &Windows{indices: indices, length: length}, nil
}

// Len is max(0, N-L).
func (w *Windows) Len() int {
	return max(0, len(w.indices)-w.length)
}

func (w *Windows) Length() int {
	return w.length
}

// At returns pair i; it panics if i is outside [0, Len()).
func (w *Windows) At(i int) Pair {
	if i < 0 || i >= w.Len() {
		panic("window index out of range")
	}
	ctx := make(model.Window, w.length)
	copy(ctx, w.indices[i:i+w.length])
	return Pair{Context: ctx, Target: w.indices[i+w.length]}
}

func (w *Windows) All() iter.Seq2[int, Pair] {
	return func(yield func(int, Pair) bool) {
		for i := 0; i < w.Len(); i++ {
			if !yield(i, w.At(i)) {
				return
			}
		}
	}
}

// Normalize scales indices into [0, 1) by dividing by the vocabulary size,
// the representation recurrent models are usually fed.
func Normalize(w model.Window, vocabSize int) []float64 {
	res := make([]float64, len(w))
	for i, idx := range w {
		res[i] = float64(idx) / float64(vocabSize)
	}
	return res
}
