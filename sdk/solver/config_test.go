package solver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero gamma", func(c *Config) { c.Gamma = 0 }},
		{"gamma above one", func(c *Config) { c.Gamma = 1.01 }},
		{"zero epsilon", func(c *Config) { c.Epsilon = 0 }},
		{"zero iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative tie tolerance", func(c *Config) { c.TieTolerance = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestStoppingThreshold(t *testing.T) {
	cfg := Config{Gamma: 0.5, Epsilon: 1e-3}
	assert.InDelta(t, 1e-3, cfg.StoppingThreshold(), 1e-15)

	cfg.Gamma = 0.9
	assert.InDelta(t, 1e-3*0.1/0.9, cfg.StoppingThreshold(), 1e-15)

	cfg.Gamma = 1
	assert.Equal(t, 1e-3, cfg.StoppingThreshold())
	assert.False(t, cfg.SupportsEvaluation())
}

func TestParseAlgorithm(t *testing.T) {
	for name, want := range map[string]Algorithm{
		"value":  AlgorithmValueIteration,
		"vi":     AlgorithmValueIteration,
		"policy": AlgorithmPolicyIteration,
		"q":      AlgorithmQIteration,
	} {
		got, err := ParseAlgorithm(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseAlgorithm("sarsa")
	assert.Error(t, err)

	text, err := AlgorithmQIteration.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "q", string(text))
}
