package sampler

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/vocab"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type predictFunc func(w model.Window) []float64

func (f predictFunc) Predict(_ context.Context, w model.Window) ([]float64, error) {
	return f(w), nil
}

func testVocab(t *testing.T) *vocab.Vocabulary {
	v, err := vocab.Build([]model.Token{"C4", "D4", "E4", "0.4.7"})
	assert.NoError(t, err)
	return v
}

func oneHot(size, hot int) predictFunc {
	return func(model.Window) []float64 {
		p := make([]float64, size)
		p[hot] = 1
		return p
	}
}

// favours the index after the newest one in the window
func rotating(size int) predictFunc {
	return func(w model.Window) []float64 {
		p := make([]float64, size)
		for i := range p {
			p[i] = 0.1 / float64(size-1)
		}
		p[(w[len(w)-1]+1)%size] = 0.9
		return p
	}
}

func TestOneHotAtTemperatureOne(t *testing.T) {
	v := testVocab(t)
	for hot := 0; hot < v.Size(); hot++ {
		s, err := New(v, oneHot(v.Size(), hot), Config{Temperature: 1, RandomSeed: uint64(hot)})
		assert.NoError(t, err)

		tokens, err := s.Sample(context.Background(), model.Window{0, 1}, 20)
		assert.NoError(t, err)
		want, _ := v.TokenOf(hot)
		for _, tok := range tokens {
			assert.Equal(t, want, tok)
		}
	}
}

func TestLowTemperatureIsGreedy(t *testing.T) {
	probs := []float64{0.2, 0.35, 0.3, 0.15}
	sharp := Reweight(probs, 0.01, DefaultEpsilon)

	assert := assert.New(t)
	assert.InDelta(1.0, sharp[1], 1e-6)

	counts := make([]int, len(probs))
	rng := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 1000; i++ {
		k, err := Draw(sharp, rng)
		assert.NoError(err)
		counts[k]++
	}
	assert.Equal(1000, counts[1])
}

func TestVanishingTemperatureTendsToArgmax(t *testing.T) {
	probs := []float64{0.05, 0.9, 0.05}
	for _, temp := range []float64{1e-3, 1e-100, 1e-310, math.SmallestNonzeroFloat64} {
		got := Reweight(probs, temp, DefaultEpsilon)
		for _, p := range got {
			assert.False(t, math.IsNaN(p), "T=%v gave %v", temp, got)
		}
		assert.InDelta(t, 1.0, got[1], 1e-9, "T=%v", temp)
	}

	v := testVocab(t)
	hot := v.Size() - 1
	s, err := New(v, predictFunc(func(w model.Window) []float64 {
		res := make([]float64, v.Size())
		for i := range res {
			res[i] = 0.1 / float64(v.Size()-1)
		}
		res[hot] = 0.9
		return res
	}), Config{Temperature: 1e-310, RandomSeed: 3})
	assert.NoError(t, err)
	tokens, err := s.Sample(context.Background(), model.Window{0, 1, 2}, 5)
	assert.NoError(t, err)
	want, _ := v.TokenOf(hot)
	for _, tok := range tokens {
		assert.Equal(t, want, tok)
	}
}

func TestDrawRejectsNonFiniteMass(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	for _, probs := range [][]float64{
		{math.NaN(), 0.5},
		{math.Inf(1), 0},
		{0, 0},
		{},
	} {
		_, err := Draw(probs, rng)
		assert.True(t, errors.Is(err, ErrDegenerateDistribution), "%v", probs)
	}
}

func TestReweightAtTemperatureOneIsIdentity(t *testing.T) {
	probs := []float64{0.1, 0.2, 0.3, 0.4}
	got := Reweight(probs, 1, DefaultEpsilon)
	for i := range probs {
		assert.InDelta(t, probs[i], got[i], 1e-9)
	}
}

func TestHighTemperatureFlattens(t *testing.T) {
	probs := []float64{0.7, 0.1, 0.1, 0.1}
	got := Reweight(probs, 5, DefaultEpsilon)
	assert := assert.New(t)
	assert.Less(got[0], probs[0])
	assert.Greater(got[1], probs[1])
	sum := 0.0
	for _, p := range got {
		sum += p
	}
	assert.InDelta(1.0, sum, 1e-9)
}

func TestReweightHandlesZeros(t *testing.T) {
	got := Reweight([]float64{0, 1, 0}, 0.5, DefaultEpsilon)
	for _, p := range got {
		assert.False(t, math.IsNaN(p))
	}
	assert.InDelta(t, 1.0, got[1], 1e-9)
}

func TestDeterministicWithSeed(t *testing.T) {
	v := testVocab(t)
	run := func(seed uint64) []model.Token {
		s, err := New(v, rotating(v.Size()), Config{Temperature: 1.5, RandomSeed: seed})
		assert.NoError(t, err)
		tokens, err := s.Sample(context.Background(), model.Window{0, 1, 2}, 50)
		assert.NoError(t, err)
		return tokens
	}
	assert.Equal(t, run(7), run(7))
	assert.Len(t, run(7), 50)
}

func TestWindowRolls(t *testing.T) {
	v := testVocab(t)
	var seen []model.Window
	p := predictFunc(func(w model.Window) []float64 {
		seen = append(seen, w)
		return oneHot(v.Size(), 3)(w)
	})
	s, _ := New(v, p, Config{Temperature: 1})
	_, err := s.Sample(context.Background(), model.Window{0, 1}, 3)

	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal([]model.Window{{0, 1}, {1, 3}, {3, 3}}, seen)
}

func TestInvalidTemperature(t *testing.T) {
	v := testVocab(t)
	for _, temp := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := New(v, oneHot(v.Size(), 0), Config{Temperature: temp})
		assert.True(t, errors.Is(err, ErrInvalidTemperature), "temperature %v", temp)
	}
}

func TestShortDistributionStopsRun(t *testing.T) {
	v := testVocab(t)
	calls := 0
	p := predictFunc(func(model.Window) []float64 {
		calls++
		return make([]float64, v.Size()-1)
	})
	s, _ := New(v, p, Config{Temperature: 1})
	tokens, err := s.Sample(context.Background(), model.Window{0}, 10)

	assert := assert.New(t)
	assert.True(errors.Is(err, ErrPredictorContractViolation))
	assert.Empty(tokens)
	assert.Equal(1, calls)
}

func TestNonSimplexDistribution(t *testing.T) {
	v := testVocab(t)
	cases := [][]float64{
		{0.5, 0.5, 0.5, 0.5},
		{1.5, -0.5, 0, 0},
		{math.NaN(), 1, 0, 0},
	}
	for _, probs := range cases {
		probs := probs
		s, _ := New(v, predictFunc(func(model.Window) []float64 { return probs }), Config{Temperature: 1})
		_, err := s.Sample(context.Background(), model.Window{0}, 1)
		assert.True(t, errors.Is(err, ErrPredictorContractViolation), "%v", probs)
	}
}

func TestPredictorErrorIsReturned(t *testing.T) {
	v := testVocab(t)
	boom := errors.New("model offline")
	s, _ := New(v, failing{boom}, Config{Temperature: 1})
	_, err := s.Sample(context.Background(), model.Window{0}, 1)
	assert.True(t, errors.Is(err, boom))
}

type failing struct{ err error }

func (f failing) Predict(context.Context, model.Window) ([]float64, error) {
	return nil, f.err
}

func TestInvalidSeedWindow(t *testing.T) {
	v := testVocab(t)
	s, _ := New(v, oneHot(v.Size(), 0), Config{Temperature: 1})
	for _, seed := range []model.Window{nil, {0, 4}, {-1}} {
		_, err := s.Sample(context.Background(), seed, 1)
		assert.True(t, errors.Is(err, ErrInvalidWindow), "%v", seed)
	}
}

func TestSeedWindow(t *testing.T) {
	w, _ := window.New([]int{0, 1, 2, 3, 0, 1}, 3)
	seed, err := SeedWindow(w, rand.New(rand.NewPCG(3, 4)))

	assert := assert.New(t)
	assert.NoError(err)
	assert.Len(seed, 3)

	short, _ := window.New([]int{0, 1}, 3)
	_, err = SeedWindow(short, rand.New(rand.NewPCG(3, 4)))
	assert.True(errors.Is(err, ErrInvalidWindow))
}
