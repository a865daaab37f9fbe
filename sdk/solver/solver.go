// Package solver computes optimal utilities, Q-values and policies for finite
// MDPs with classic dynamic programming: value iteration, policy iteration and
// Q-value iteration, plus the conversions between the three representations.
package solver

import (
	"errors"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/dpsolver/mdp"
)

var (
	// ErrNotConverged is returned when an iterative algorithm reaches
	// Config.MaxIterations without meeting its stopping criterion.
	ErrNotConverged = errors.New("iteration cap exceeded before convergence")

	// ErrSingularSystem is returned when the policy-evaluation linear system
	// is singular or too ill-conditioned to trust.
	ErrSingularSystem = errors.New("policy evaluation system is singular or ill-conditioned")

	// ErrDiscountUnsupported is returned by evaluation-based algorithms when
	// gamma is 1.
	ErrDiscountUnsupported = errors.New("policy evaluation requires gamma < 1")

	// ErrInvalidPolicy is returned when a policy does not fit the model.
	ErrInvalidPolicy = errors.New("invalid policy")
)

// conditionLimit is the largest condition number accepted from the LU
// factorisation in policy evaluation.
const conditionLimit = 1e12

// Stats summarises a single solver call.
type Stats struct {
	Algorithm  Algorithm     `json:"algorithm"`
	Iterations int           `json:"iterations"`
	Residual   float64       `json:"residual"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Progress is emitted once per sweep (value and Q iteration) or once per
// evaluate/improve round (policy iteration).
type Progress struct {
	Algorithm Algorithm
	Iteration int
	// Residual is the max-norm change of the sweep. Zero for policy iteration.
	Residual float64
	// Changed counts states whose action changed. Policy iteration only.
	Changed int
	// Utility is the evaluated utility of the current policy. Policy
	// iteration only; the slice is owned by the receiver.
	Utility mdp.Utility
}

// Option customises a Solver.
type Option func(*Solver)

// WithLogger sets the logger used for per-call summaries.
func WithLogger(logger *log.Logger) Option {
	return func(s *Solver) {
		if logger != nil {
			s.logger = logger.WithPrefix("solver")
		}
	}
}

// WithClock replaces the wall clock used to time calls.
func WithClock(clock quartz.Clock) Option {
	return func(s *Solver) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithProgress registers a callback invoked synchronously during iteration.
func WithProgress(fn func(Progress)) Option {
	return func(s *Solver) {
		s.progress = fn
	}
}

// Solver binds a read-only model to a configuration. It holds no mutable
// state between calls, so one Solver may serve concurrent callers as long as
// the progress callback is itself safe for concurrent use.
type Solver struct {
	model    *mdp.Model
	cfg      Config
	logger   *log.Logger
	clock    quartz.Clock
	progress func(Progress)
	kernel   *kernel
}

// New validates cfg and prepares a solver for model.
func New(model *mdp.Model, cfg Config, opts ...Option) (*Solver, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Solver{
		model:  model,
		cfg:    cfg,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		clock:  quartz.NewReal(),
		kernel: newKernel(model),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Model returns the model the solver was built for.
func (s *Solver) Model() *mdp.Model { return s.model }

// Config returns the solver configuration.
func (s *Solver) Config() Config { return s.cfg }

func (s *Solver) report(p Progress) {
	if s.progress != nil {
		s.progress(p)
	}
}

func (s *Solver) finish(stats *Stats, start time.Time, err error) {
	stats.Elapsed = s.clock.Since(start)
	if err != nil {
		s.logger.Warn("solve failed", "algorithm", stats.Algorithm, "iterations", stats.Iterations, "residual", stats.Residual, "error", err)
		return
	}
	s.logger.Debug("solve finished", "algorithm", stats.Algorithm, "iterations", stats.Iterations, "residual", stats.Residual, "elapsed", stats.Elapsed)
}
