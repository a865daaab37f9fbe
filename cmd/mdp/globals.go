package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/mdp"
	"github.com/lox/dpsolver/sdk/solver"
)

// Globals holds flags shared by every command
type Globals struct {
	Config   string  `short:"c" default:"mdp.hcl" help:"Path to HCL configuration file"`
	Maze     string  `short:"m" default:"classic" help:"Maze to use, a preset or one defined in the config file"`
	LogLevel string  `short:"l" default:"info" enum:"debug,info,warn,error" help:"Log level"`
	Gamma    float64 `help:"Discount factor (overrides config)"`
	Epsilon  float64 `help:"Convergence tolerance (overrides config)"`

	stdout io.Writer
}

func (g *Globals) out() io.Writer {
	if g.stdout == nil {
		return os.Stdout
	}
	return g.stdout
}

func (g *Globals) logger() *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	level, err := log.ParseLevel(g.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// environment is everything a command needs to work on one maze.
type environment struct {
	config *maze.Config
	maze   *maze.Maze
	model  *mdp.Model
	solver solver.Config
	logger *log.Logger
}

func (g *Globals) load() (*environment, error) {
	cfg, err := maze.LoadConfig(g.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	sc := cfg.SolverConfig()
	if g.Gamma != 0 {
		sc.Gamma = g.Gamma
	}
	if g.Epsilon != 0 {
		sc.Epsilon = g.Epsilon
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	spec, err := cfg.Spec(g.Maze)
	if err != nil {
		return nil, err
	}
	m, err := maze.New(spec)
	if err != nil {
		return nil, err
	}
	model, err := m.Model()
	if err != nil {
		return nil, err
	}

	logger := g.logger()
	logger.Debug("loaded maze", "maze", m.Name(), "rows", m.Rows(), "cols", m.Cols(), "gamma", sc.Gamma, "epsilon", sc.Epsilon)
	return &environment{config: cfg, maze: m, model: model, solver: sc, logger: logger}, nil
}

func (e *environment) newSolver(opts ...solver.Option) (*solver.Solver, error) {
	opts = append([]solver.Option{solver.WithLogger(e.logger)}, opts...)
	return solver.New(e.model, e.solver, opts...)
}

// policy loads the utility and policy from a saved solution, or solves the
// maze with value iteration when path is empty.
func (e *environment) policy(path string) (mdp.Utility, mdp.Policy, error) {
	if path != "" {
		return e.fromSolution(path)
	}
	s, err := e.newSolver()
	if err != nil {
		return nil, nil, err
	}
	u, _, err := s.ValueIteration()
	if err != nil {
		return nil, nil, err
	}
	return u, s.PolicyFromUtility(u), nil
}

// fromSolution loads a saved solution for this maze.
func (e *environment) fromSolution(path string) (mdp.Utility, mdp.Policy, error) {
	sol, err := solver.LoadSolution(path)
	if err != nil {
		return nil, nil, err
	}
	if len(sol.Kinds) != e.model.NumStates() {
		return nil, nil, fmt.Errorf("solution %s has %d states, maze %s has %d", path, len(sol.Kinds), e.maze.Name(), e.model.NumStates())
	}
	for s, kind := range e.model.Kinds() {
		if sol.Kinds[s] != kind {
			row, col := e.maze.Position(s)
			return nil, nil, fmt.Errorf("solution %s does not fit maze %s: cell (%d,%d) is %s in the solution, %s in the maze",
				path, e.maze.Name(), row, col, sol.Kinds[s], kind)
		}
	}
	return sol.Utility, sol.Policy, nil
}

func (e *environment) terminalLabel(s int) string {
	row, col := e.maze.Position(s)
	return fmt.Sprintf("%q (%d,%d)", string(e.maze.Cell(s)), row, col)
}
