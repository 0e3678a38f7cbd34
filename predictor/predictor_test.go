package predictor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/window"
	"github.com/stretchr/testify/assert"
)

func sum(p []float64) float64 {
	total := 0.0
	for _, v := range p {
		total += v
	}
	return total
}

func argmax(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

func TestNgramLearnsTransitions(t *testing.T) {
	// 0 1 2 0 1 2 ... always continues the cycle
	var indices []int
	for i := 0; i < 30; i++ {
		indices = append(indices, i%3)
	}
	w, _ := window.New(indices, 4)
	n, err := TrainNgram(w, 3, 2, 0)
	assert := assert.New(t)
	assert.NoError(err)

	probs, err := n.Predict(context.Background(), model.Window{2, 0, 1, 2})
	assert.NoError(err)
	assert.Len(probs, 3)
	assert.InDelta(1.0, sum(probs), 1e-9)
	assert.Equal(0, argmax(probs))
	assert.Greater(probs[0], 0.9)
}

func TestNgramBacksOff(t *testing.T) {
	w, _ := window.New([]int{0, 1, 0, 1, 0, 1}, 2)
	n, _ := TrainNgram(w, 4, 2, 0)

	// context {3, 3} was never seen; the bigram on 3 neither, so this is
	// the unigram distribution
	probs, err := n.Predict(context.Background(), model.Window{3, 3})
	assert := assert.New(t)
	assert.NoError(err)
	assert.InDelta(1.0, sum(probs), 1e-9)
	assert.Greater(probs[0], 0.0)
	assert.Greater(probs[3], 0.0)

	// context {3, 0} backs off to the bigram on 0, which is always 1
	probs, _ = n.Predict(context.Background(), model.Window{3, 0})
	assert.Equal(1, argmax(probs))
}

func TestNgramOrderIsCappedByWindow(t *testing.T) {
	w, _ := window.New([]int{0, 1, 2, 3}, 2)
	n, err := TrainNgram(w, 4, 10, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2, n.Order())
}

func TestNgramRejectsBadArgs(t *testing.T) {
	w, _ := window.New([]int{0, 1}, 1)
	_, err := TrainNgram(w, 0, 1, 0)
	assert.Error(t, err)
	_, err = TrainNgram(w, 2, -1, 0)
	assert.Error(t, err)
}

func TestFunc(t *testing.T) {
	f := Func(func(w model.Window) ([]float64, error) {
		return []float64{1, 0}, nil
	})
	probs, err := f.Predict(context.Background(), model.Window{0})
	assert.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, probs)
}

func TestRemote(t *testing.T) {
	var got remoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(remoteResponse{Probabilities: []float64{0.25, 0.75}})
	}))
	defer srv.Close()

	probs, err := NewRemote(srv.URL, 2).Predict(context.Background(), model.Window{1, 0})

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]float64{0.25, 0.75}, probs)
	assert.Equal(model.Window{1, 0}, got.Window)
	assert.Equal([]float64{0.5, 0}, got.Normalized)
}

func TestRemoteErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no model loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, 2).Predict(context.Background(), model.Window{1})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
