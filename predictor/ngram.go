package predictor

import (
	"context"

	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/util"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
)

const DefaultAlpha = 0.01

type contextKey string

// Ngram is a transition table over the last Order indices of a window.
// Unseen contexts back off to shorter ones and finally to unigram counts;
// add-alpha smoothing keeps every index reachable.
type Ngram struct {
	order     int
	vocabSize int
	alpha     float64
	// counts[n] maps a context of n indices to next-index counts
	counts []map[contextKey]map[int]int
}

// TrainNgram counts every (context suffix, target) pair in w.
func TrainNgram(w *window.Windows, vocabSize, order int, alpha float64) (*Ngram, error) {
	if order < 0 {
		return nil, errors.Errorf("ngram order must not be negative, got %d", order)
	}
	if vocabSize < 1 {
		return nil, errors.Errorf("vocabulary size must be positive, got %d", vocabSize)
	}
	order = util.Min(order, w.Length())
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	n := &Ngram{order: order, vocabSize: vocabSize, alpha: alpha}
	for i := 0; i <= order; i++ {
		n.counts = append(n.counts, make(map[contextKey]map[int]int))
	}
	for _, pair := range w.All() {
		for size := 0; size <= order; size++ {
			n.add(pair.Context[len(pair.Context)-size:], pair.Target)
		}
	}
	return n, nil
}

func (n *Ngram) add(ctx model.Window, target int) {
	key := keyOf(ctx)
	m, ok := n.counts[len(ctx)][key]
	if !ok {
		m = make(map[int]int)
		n.counts[len(ctx)][key] = m
	}
	m[target]++
}

func keyOf(ctx model.Window) contextKey {
	b := make([]byte, 0, len(ctx)*4)
	for _, idx := range ctx {
		b = append(b, byte(idx>>24), byte(idx>>16), byte(idx>>8), byte(idx))
	}
	return contextKey(b)
}

func (n *Ngram) Order() int {
	return n.order
}

func (n *Ngram) Predict(_ context.Context, w model.Window) ([]float64, error) {
	size := util.Min(n.order, len(w))
	var next map[int]int
	for ; size >= 0; size-- {
		if m, ok := n.counts[size][keyOf(w[len(w)-size:])]; ok {
			next = m
			break
		}
	}

	probs := make([]float64, n.vocabSize)
	for i := range probs {
		probs[i] = n.alpha
	}
	for idx, c := range next {
		if idx < n.vocabSize {
			probs[idx] += float64(c)
		}
	}
	total := 0.0
	for _, p := range probs {
		total += p
	}
	for i := range probs {
		probs[i] /= total
	}
	return probs, nil
}
