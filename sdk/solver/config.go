package solver

import (
	"errors"
	"fmt"
	"math"
)

// Algorithm identifies one of the dynamic-programming entry points.
type Algorithm uint8

const (
	AlgorithmValueIteration Algorithm = iota
	AlgorithmPolicyIteration
	AlgorithmQIteration
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmValueIteration:
		return "value"
	case AlgorithmPolicyIteration:
		return "policy"
	case AlgorithmQIteration:
		return "q"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	if a > AlgorithmQIteration {
		return nil, fmt.Errorf("unknown algorithm %d", a)
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(text []byte) error {
	parsed, err := ParseAlgorithm(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAlgorithm maps the CLI spelling of an algorithm to its value.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "value", "vi":
		return AlgorithmValueIteration, nil
	case "policy", "pi":
		return AlgorithmPolicyIteration, nil
	case "q", "qi":
		return AlgorithmQIteration, nil
	default:
		return 0, fmt.Errorf("unknown algorithm %q", name)
	}
}

// ErrInvalidConfig is wrapped by every Config validation failure.
var ErrInvalidConfig = errors.New("invalid solver config")

// Config aggregates the numeric parameters shared by all algorithms.
type Config struct {
	// Gamma is the discount factor, in (0, 1].
	Gamma float64 `json:"gamma"`

	// Epsilon is the convergence tolerance for the iterative algorithms.
	Epsilon float64 `json:"epsilon"`

	// MaxIterations caps every iterative loop. Hitting it yields
	// ErrNotConverged rather than spinning forever.
	MaxIterations int `json:"max_iterations"`

	// TieTolerance is the slack within which two action values are treated
	// as equal when taking an arg-max.
	TieTolerance float64 `json:"tie_tolerance"`
}

// Validate ensures the configuration is safe to use.
func (c Config) Validate() error {
	if math.IsNaN(c.Gamma) || c.Gamma <= 0 || c.Gamma > 1 {
		return fmt.Errorf("%w: gamma must be in (0, 1], got %v", ErrInvalidConfig, c.Gamma)
	}
	if math.IsNaN(c.Epsilon) || c.Epsilon <= 0 {
		return fmt.Errorf("%w: epsilon must be > 0, got %v", ErrInvalidConfig, c.Epsilon)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("%w: max iterations must be > 0", ErrInvalidConfig)
	}
	if math.IsNaN(c.TieTolerance) || c.TieTolerance < 0 {
		return fmt.Errorf("%w: tie tolerance cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// SupportsEvaluation reports whether the linear-system based algorithms
// (policy evaluation and policy iteration) are defined for this discount.
func (c Config) SupportsEvaluation() bool {
	return c.Gamma < 1
}

// StoppingThreshold is the bound on the max-norm change between sweeps below
// which value and Q iteration stop.
func (c Config) StoppingThreshold() float64 {
	if c.Gamma >= 1 {
		return c.Epsilon
	}
	return c.Epsilon * (1 - c.Gamma) / c.Gamma
}

// DefaultConfig returns the parameters used by the grid-world scenarios.
func DefaultConfig() Config {
	return Config{
		Gamma:         0.99,
		Epsilon:       1e-14,
		MaxIterations: 10000,
		TieTolerance:  1e-12,
	}
}
