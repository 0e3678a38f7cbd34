package config

import (
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
)

type Config struct {
	SequenceLength  int
	Steps           int
	Temperature     float64
	RandomSeed      uint64
	Workers         int
	TicksPerQuarter uint16
	OffsetStep      float64
	NgramOrder      int
	OutDir          string
	ServeAddr       string
	DynamoEndpoint  string
	DynamoRegion    string
	Debug           bool
}

func Default() Config {
	return Config{
		SequenceLength:  100,
		Steps:           100,
		Temperature:     1.0,
		Workers:         runtime.NumCPU(),
		TicksPerQuarter: 480,
		OffsetStep:      0.5,
		NgramOrder:      3,
		OutDir:          "./out",
		ServeAddr:       ":8080",
	}
}

// FromEnv starts from Default and applies any MIDIGEN_* overrides.
func FromEnv() (Config, error) {
	cfg := Default()

	if v := os.Getenv("MIDIGEN_OUT_DIR"); v != "" {
		cfg.OutDir = v
	}
	if v := os.Getenv("MIDIGEN_ADDR"); v != "" {
		cfg.ServeAddr = v
	}
	cfg.DynamoEndpoint = os.Getenv("MIDIGEN_DYNAMO_ENDPOINT")
	cfg.DynamoRegion = os.Getenv("MIDIGEN_DYNAMO_REGION")

	ints := map[string]*int{
		"MIDIGEN_SEQUENCE_LENGTH": &cfg.SequenceLength,
		"MIDIGEN_STEPS":           &cfg.Steps,
		"MIDIGEN_WORKERS":         &cfg.Workers,
	}
	for name, dst := range ints {
		if v := os.Getenv(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return cfg, errors.Wrapf(err, "bad %s", name)
			}
			*dst = n
		}
	}
	if v := os.Getenv("MIDIGEN_TEMPERATURE"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.Wrap(err, "bad MIDIGEN_TEMPERATURE")
		}
		cfg.Temperature = t
	}
	if v := os.Getenv("MIDIGEN_RANDOM_SEED"); v != "" {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, errors.Wrap(err, "bad MIDIGEN_RANDOM_SEED")
		}
		cfg.RandomSeed = s
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.SequenceLength < 1:
		return errors.Errorf("sequence length must be positive, got %d", c.SequenceLength)
	case c.Steps < 1:
		return errors.Errorf("steps must be positive, got %d", c.Steps)
	case c.Workers < 1:
		return errors.Errorf("workers must be positive, got %d", c.Workers)
	case !(c.Temperature > 0):
		return errors.Errorf("temperature must be positive, got %v", c.Temperature)
	case c.OffsetStep <= 0:
		return errors.Errorf("offset step must be positive, got %v", c.OffsetStep)
	case c.NgramOrder < 0:
		return errors.Errorf("ngram order must not be negative, got %d", c.NgramOrder)
	}
	return nil
}
