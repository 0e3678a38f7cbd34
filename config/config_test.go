package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert := assert.New(t)
	assert.NoError(cfg.Validate())
	assert.Equal(100, cfg.SequenceLength)
	assert.Equal(0.5, cfg.OffsetStep)
}

func TestFromEnv(t *testing.T) {
	t.Setenv("MIDIGEN_SEQUENCE_LENGTH", "32")
	t.Setenv("MIDIGEN_TEMPERATURE", "0.7")
	t.Setenv("MIDIGEN_RANDOM_SEED", "42")
	t.Setenv("MIDIGEN_OUT_DIR", "/tmp/gen")

	cfg, err := FromEnv()
	assert := assert.New(t)
	assert.NoError(err)
	assert.Equal(32, cfg.SequenceLength)
	assert.Equal(0.7, cfg.Temperature)
	assert.Equal(uint64(42), cfg.RandomSeed)
	assert.Equal("/tmp/gen", cfg.OutDir)
}

func TestFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("MIDIGEN_STEPS", "many")
	_, err := FromEnv()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	for _, mutate := range []func(*Config){
		func(c *Config) { c.SequenceLength = 0 },
		func(c *Config) { c.Steps = 0 },
		func(c *Config) { c.Workers = 0 },
		func(c *Config) { c.Temperature = 0 },
		func(c *Config) { c.OffsetStep = -1 },
		func(c *Config) { c.NgramOrder = -1 },
	} {
		cfg := Default()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}
