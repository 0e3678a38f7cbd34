// Package sampler turns per-step probability distributions from a
// Predictor into a token stream, one temperature-scaled categorical draw
// at a time.
package sampler

import (
	"context"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/vocab"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrInvalidTemperature         = errors.New("temperature must be positive")
	ErrPredictorContractViolation = errors.New("predictor contract violation")
	ErrInvalidWindow              = errors.New("invalid seed window")
	ErrDegenerateDistribution     = errors.New("distribution has no finite mass")
)

const (
	DefaultEpsilon   = 1e-12
	DefaultTolerance = 1e-4
)

// Predictor maps a window of vocabulary indices to a probability
// distribution over the whole vocabulary. Implementations must be
// deterministic for a given window.
type Predictor interface {
	Predict(ctx context.Context, w model.Window) ([]float64, error)
}

type Config struct {
	Temperature float64
	// floor applied before taking logs
	Epsilon float64
	// allowed distance of a distribution's sum from 1
	Tolerance  float64
	RandomSeed uint64
}

type Sampler struct {
	vocab     *vocab.Vocabulary
	predictor Predictor
	cfg       Config
}

func New(v *vocab.Vocabulary, p Predictor, cfg Config) (*Sampler, error) {
	if !(cfg.Temperature > 0) || math.IsInf(cfg.Temperature, 0) {
		return nil, errors.Wrapf(ErrInvalidTemperature, "got %v", cfg.Temperature)
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = DefaultEpsilon
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = DefaultTolerance
	}
	return &Sampler{vocab: v, predictor: p, cfg: cfg}, nil
}

// state is the rolling window owned by a single Sample call.
type state struct {
	window model.Window
}

func (s *state) push(k int) {
	copy(s.window, s.window[1:])
	s.window[len(s.window)-1] = k
}

// Sample runs steps predict/draw/decode iterations starting from seed. Any
// error ends the run with no tokens returned.
func (s *Sampler) Sample(ctx context.Context, seed model.Window, steps int) ([]model.Token, error) {
	if len(seed) == 0 {
		return nil, errors.Wrap(ErrInvalidWindow, "empty")
	}
	for _, idx := range seed {
		if idx < 0 || idx >= s.vocab.Size() {
			return nil, errors.Wrapf(ErrInvalidWindow, "index %d outside vocabulary of %d", idx, s.vocab.Size())
		}
	}

	st := &state{window: make(model.Window, len(seed))}
	copy(st.window, seed)
	rng := rand.New(rand.NewPCG(s.cfg.RandomSeed, s.cfg.RandomSeed^0x9E3779B97F4A7C15))

	out := make([]model.Token, 0, steps)
	for step := 0; step < steps; step++ {
		// the predictor may keep the slice, so hand it a copy
		w := make(model.Window, len(st.window))
		copy(w, st.window)
		probs, err := s.predictor.Predict(ctx, w)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", step)
		}
		if err := s.checkDistribution(probs); err != nil {
			return nil, errors.Wrapf(err, "step %d", step)
		}

		k, err := Draw(Reweight(probs, s.cfg.Temperature, s.cfg.Epsilon), rng)
		if err != nil {
			return nil, errors.Wrapf(err, "step %d", step)
		}
		token, _ := s.vocab.TokenOf(k)
		out = append(out, token)
		st.push(k)
	}
	return out, nil
}

func (s *Sampler) checkDistribution(probs []float64) error {
	if len(probs) != s.vocab.Size() {
		return errors.Wrapf(ErrPredictorContractViolation, "distribution has %d entries, vocabulary has %d", len(probs), s.vocab.Size())
	}
	for i, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return errors.Wrapf(ErrPredictorContractViolation, "probability %d is %v", i, p)
		}
	}
	if sum := floats.Sum(probs); math.Abs(sum-1) > s.cfg.Tolerance {
		return errors.Wrapf(ErrPredictorContractViolation, "distribution sums to %v", sum)
	}
	return nil
}

// Reweight applies temperature to probs: log(max(p, eps))/temperature,
// renormalized with a softmax. A temperature of 1 returns the input
// distribution (up to the eps floor); lower temperatures sharpen it.
// Logits are shifted so the most likely entry sits at 0 before dividing,
// so tiny temperatures tend to argmax instead of overflowing.
func Reweight(probs []float64, temperature, eps float64) []float64 {
	logits := make([]float64, len(probs))
	for i, p := range probs {
		logits[i] = math.Log(math.Max(p, eps))
	}
	floats.AddConst(-floats.Max(logits), logits)
	if inv := 1 / temperature; !math.IsInf(inv, 1) {
		floats.Scale(inv, logits)
	} else {
		// subnormal temperature: only the maxima keep any mass
		for i, l := range logits {
			if l < 0 {
				logits[i] = math.Inf(-1)
			}
		}
	}
	floats.AddConst(-floats.LogSumExp(logits), logits)
	for i, l := range logits {
		logits[i] = math.Exp(l)
	}
	return logits
}

// Draw samples an index from the categorical distribution probs.
func Draw(probs []float64, rng *rand.Rand) (int, error) {
	if len(probs) == 0 {
		return 0, errors.Wrap(ErrDegenerateDistribution, "empty")
	}
	cdf := make([]float64, len(probs))
	floats.CumSum(cdf, probs)
	total := cdf[len(cdf)-1]
	if math.IsNaN(total) || math.IsInf(total, 0) || total <= 0 {
		return 0, errors.Wrapf(ErrDegenerateDistribution, "total mass %v", total)
	}
	u := rng.Float64() * total
	k := sort.Search(len(cdf), func(i int) bool { return cdf[i] > u })
	if k == len(cdf) {
		k = len(cdf) - 1
	}
	// skip zero-mass entries that share the same cumulative value
	for k > 0 && probs[k] == 0 {
		k--
	}
	return k, nil
}

// SeedWindow picks a random training context to start generation from.
func SeedWindow(w *window.Windows, rng *rand.Rand) (model.Window, error) {
	if w.Len() == 0 {
		return nil, errors.Wrap(ErrInvalidWindow, "corpus is shorter than the window length")
	}
	return w.At(rng.IntN(w.Len())).Context, nil
}
