// Package simulator plays episodes of a fixed policy against a model by
// sampling successor states, and summarises the outcomes.
package simulator

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
	"gonum.org/v1/gonum/stat/sampleuv"

	"github.com/lox/dpsolver/internal/randutil"
	"github.com/lox/dpsolver/mdp"
)

// Config controls a batch of episodes.
type Config struct {
	Episodes int
	MaxSteps int
	Seed     int64
	Logger   *log.Logger
	Clock    quartz.Clock
}

// DefaultConfig returns a batch of 1000 episodes capped at 200 steps each.
func DefaultConfig() Config {
	return Config{
		Episodes: 1000,
		MaxSteps: 200,
		Seed:     1,
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.Episodes <= 0 {
		return fmt.Errorf("episodes must be positive, got %d", c.Episodes)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", c.MaxSteps)
	}
	return nil
}

// Episode is one sampled trajectory.
type Episode struct {
	// Path lists the visited states, start first.
	Path []int
	// Return is the undiscounted sum of the rewards of every visited state.
	Return float64
	// Terminal is the absorbing state reached, or -1 if MaxSteps ran out.
	Terminal int
	Steps    int
}

// Simulator samples trajectories of a fixed policy. It is not safe for
// concurrent use.
type Simulator struct {
	model  *mdp.Model
	policy mdp.Policy
	cfg    Config
	src    rand.Source
	logger *log.Logger
	clock  quartz.Clock
}

// New binds policy to model. The policy must name a valid action for every
// accessible state.
func New(model *mdp.Model, policy mdp.Policy, cfg Config) (*Simulator, error) {
	if model == nil {
		return nil, errors.New("model is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(policy) != model.NumStates() {
		return nil, fmt.Errorf("policy covers %d states, model has %d", len(policy), model.NumStates())
	}
	for _, s := range model.Accessible() {
		if policy[s] < 0 || int(policy[s]) >= model.NumActions() {
			return nil, fmt.Errorf("policy has no valid action for accessible state %d", s)
		}
	}

	sim := &Simulator{
		model:  model,
		policy: policy,
		cfg:    cfg,
		src:    randutil.NewSource(cfg.Seed),
		logger: cfg.Logger,
		clock:  cfg.Clock,
	}
	if sim.logger == nil {
		sim.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	sim.logger = sim.logger.WithPrefix("simulator")
	if sim.clock == nil {
		sim.clock = quartz.NewReal()
	}
	return sim, nil
}

// Reset reseeds the random source.
func (s *Simulator) Reset(seed int64) {
	s.src = randutil.NewSource(seed)
}

// Step samples the successor of state under the policy. done is true when
// state is not accessible, in which case state is returned unchanged.
func (s *Simulator) Step(state int) (next int, done bool) {
	if s.model.Kind(state) != mdp.Accessible {
		return state, true
	}
	row := s.model.Row(s.policy[state], state)
	next, ok := sampleuv.NewWeighted(row, s.src).Take()
	if !ok {
		return state, true
	}
	return next, false
}

// Episode plays one trajectory from start.
func (s *Simulator) Episode(start int) Episode {
	ep := Episode{Path: []int{start}, Return: s.model.Reward(start), Terminal: -1}
	state := start
	for ep.Steps < s.cfg.MaxSteps {
		if s.model.Kind(state) == mdp.Terminal {
			break
		}
		next, done := s.Step(state)
		if done {
			break
		}
		ep.Steps++
		ep.Path = append(ep.Path, next)
		ep.Return += s.model.Reward(next)
		state = next
	}
	if s.model.Kind(state) == mdp.Terminal {
		ep.Terminal = state
	}
	return ep
}

// Statistics summarises a batch of episodes.
type Statistics struct {
	Episodes int
	// TerminalCounts counts episodes per absorbing state reached.
	TerminalCounts map[int]int
	Truncated      int
	// SuccessRate is the fraction of episodes ending in a terminal with a
	// positive reward.
	SuccessRate  float64
	MeanReturn   float64
	StdDevReturn float64
	// ReturnCI95 is the 95% confidence interval of the mean return.
	ReturnCI95  [2]float64
	MeanSteps   float64
	StdDevSteps float64
	Elapsed     time.Duration
}

// TerminalRate returns the fraction of episodes that ended in terminal.
func (st *Statistics) TerminalRate(terminal int) float64 {
	if st.Episodes == 0 {
		return 0
	}
	return float64(st.TerminalCounts[terminal]) / float64(st.Episodes)
}

// Run plays cfg.Episodes episodes from start and summarises them.
func (s *Simulator) Run(start int) (*Statistics, error) {
	if start < 0 || start >= s.model.NumStates() {
		return nil, fmt.Errorf("start state %d out of range", start)
	}
	if s.model.Kind(start) == mdp.Inaccessible {
		return nil, fmt.Errorf("start state %d is inaccessible", start)
	}

	began := s.clock.Now()
	n := s.cfg.Episodes
	returns := make([]float64, n)
	steps := make([]float64, n)
	stats := &Statistics{Episodes: n, TerminalCounts: make(map[int]int)}
	successes := 0

	for i := 0; i < n; i++ {
		ep := s.Episode(start)
		returns[i] = ep.Return
		steps[i] = float64(ep.Steps)
		if ep.Terminal < 0 {
			stats.Truncated++
		} else {
			stats.TerminalCounts[ep.Terminal]++
			if s.model.Reward(ep.Terminal) > 0 {
				successes++
			}
		}
		s.logger.Debug("episode", "n", i, "steps", ep.Steps, "return", ep.Return, "terminal", ep.Terminal)
	}

	stats.SuccessRate = float64(successes) / float64(n)
	stats.MeanReturn, stats.StdDevReturn = stat.MeanStdDev(returns, nil)
	stats.MeanSteps, stats.StdDevSteps = stat.MeanStdDev(steps, nil)
	if n == 1 {
		stats.StdDevReturn, stats.StdDevSteps = 0, 0
	}
	stats.ReturnCI95 = confidenceInterval(stats.MeanReturn, stats.StdDevReturn, n)
	stats.Elapsed = s.clock.Since(began)

	s.logger.Info("simulation finished",
		"episodes", n,
		"success_rate", stats.SuccessRate,
		"mean_return", stats.MeanReturn,
		"truncated", stats.Truncated,
		"elapsed", stats.Elapsed)
	return stats, nil
}

// Run is a convenience wrapper around New and Simulator.Run.
func Run(model *mdp.Model, start int, policy mdp.Policy, cfg Config) (*Statistics, error) {
	sim, err := New(model, policy, cfg)
	if err != nil {
		return nil, err
	}
	return sim.Run(start)
}

func confidenceInterval(mean, sd float64, n int) [2]float64 {
	if n < 2 || sd == 0 {
		return [2]float64{mean, mean}
	}
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(0.975)
	half := t * sd / math.Sqrt(float64(n))
	return [2]float64{mean - half, mean + half}
}
