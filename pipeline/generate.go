package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jsphweid/midigen/assembler"
	"github.com/jsphweid/midigen/codec"
	"github.com/jsphweid/midigen/config"
	"github.com/jsphweid/midigen/model"
	"github.com/jsphweid/midigen/predictor"
	"github.com/jsphweid/midigen/sampler"
	"github.com/jsphweid/midigen/vocab"
	"github.com/jsphweid/midigen/window"
	"github.com/pkg/errors"
)

// Generator holds everything derived from a corpus. It is read-only after
// NewGenerator, so concurrent Run calls are safe.
type Generator struct {
	cfg       config.Config
	vocab     *vocab.Vocabulary
	windows   *window.Windows
	predictor sampler.Predictor
	assembler *assembler.Assembler
}

type Generation struct {
	Id     string
	Tokens []model.Token
	Score  model.Score
	Midi   []byte
}

var ErrInvalidSteps = errors.New("steps must be positive")

// PredictorFactory makes the predictor once the vocabulary and training
// windows are known.
type PredictorFactory func(v *vocab.Vocabulary, w *window.Windows) (sampler.Predictor, error)

func Ngram(order int) PredictorFactory {
	return func(v *vocab.Vocabulary, w *window.Windows) (sampler.Predictor, error) {
		return predictor.TrainNgram(w, v.Size(), order, predictor.DefaultAlpha)
	}
}

func Remote(url string) PredictorFactory {
	return func(v *vocab.Vocabulary, _ *window.Windows) (sampler.Predictor, error) {
		return predictor.NewRemote(url, v.Size()), nil
	}
}

// NewGenerator builds the vocabulary and training windows from tokens. A
// nil factory trains an n-gram predictor on those windows.
func NewGenerator(cfg config.Config, tokens []model.Token, factory PredictorFactory) (*Generator, error) {
	v, err := vocab.Build(tokens)
	if err != nil {
		return nil, err
	}
	return NewGeneratorWithVocabulary(cfg, v, tokens, factory)
}

// NewGeneratorWithVocabulary uses a vocabulary persisted earlier, such as
// one loaded from DynamoDB. Every corpus token must be in it.
func NewGeneratorWithVocabulary(cfg config.Config, v *vocab.Vocabulary, tokens []model.Token, factory PredictorFactory) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	indices, err := v.Encode(tokens)
	if err != nil {
		return nil, err
	}
	w, err := window.New(indices, cfg.SequenceLength)
	if err != nil {
		return nil, err
	}
	if w.Len() == 0 {
		return nil, errors.Wrapf(sampler.ErrInvalidWindow, "%d tokens cannot fill a window of %d", len(tokens), cfg.SequenceLength)
	}
	if factory == nil {
		factory = Ngram(cfg.NgramOrder)
	}
	p, err := factory(v, w)
	if err != nil {
		return nil, err
	}

	asmCfg := assembler.DefaultConfig()
	asmCfg.Step = cfg.OffsetStep
	asmCfg.TicksPerQuarter = cfg.TicksPerQuarter
	return &Generator{
		cfg:       cfg,
		vocab:     v,
		windows:   w,
		predictor: p,
		assembler: assembler.New(asmCfg),
	}, nil
}

func (g *Generator) Vocabulary() *vocab.Vocabulary {
	return g.vocab
}

func (g *Generator) Windows() *window.Windows {
	return g.windows
}

// Run samples a sequence and renders it. Nil fields of req fall back to
// the configured defaults; a zero seed everywhere means a time-based one.
func (g *Generator) Run(ctx context.Context, req model.GenerateRequest) (*Generation, error) {
	steps := g.cfg.Steps
	if req.Steps != nil {
		steps = *req.Steps
	}
	if steps < 1 {
		return nil, errors.Wrapf(ErrInvalidSteps, "got %d", steps)
	}
	temperature := g.cfg.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	seed := req.RandomSeed
	if seed == 0 {
		seed = g.cfg.RandomSeed
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	s, err := sampler.New(g.vocab, g.predictor, sampler.Config{Temperature: temperature, RandomSeed: seed})
	if err != nil {
		return nil, err
	}
	start, err := sampler.SeedWindow(g.windows, rand.New(rand.NewPCG(seed, seed)))
	if err != nil {
		return nil, err
	}
	tokens, err := s.Sample(ctx, start, steps)
	if err != nil {
		return nil, err
	}
	score, err := g.assembler.Build(tokens)
	if err != nil {
		return nil, err
	}
	dat, err := codec.Encode(score, codec.Options{TicksPerQuarter: g.cfg.TicksPerQuarter})
	if err != nil {
		return nil, err
	}
	return &Generation{
		Id:     uuid.New().String(),
		Tokens: tokens,
		Score:  score,
		Midi:   dat,
	}, nil
}
