package maze

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/dpsolver/sdk/solver"
)

// Config is the contents of an mdp.hcl file.
type Config struct {
	Solver *SolverSettings `hcl:"solver,block"`
	Mazes  []MazeConfig    `hcl:"maze,block"`
}

// SolverSettings overrides the numeric solver parameters.
type SolverSettings struct {
	Gamma         float64  `hcl:"gamma,optional"`
	Epsilon       float64  `hcl:"epsilon,optional"`
	MaxIterations int      `hcl:"max_iterations,optional"`
	TieTolerance  *float64 `hcl:"tie_tolerance,optional"`
}

// MazeConfig defines a named maze
type MazeConfig struct {
	Name               string             `hcl:"name,label"`
	Layout             []string           `hcl:"layout"`
	StepReward         *float64           `hcl:"step_reward,optional"`
	SuccessProbability float64            `hcl:"success_probability,optional"`
	TerminalRewards    map[string]float64 `hcl:"terminal_rewards,optional"`
}

// DefaultConfig returns the configuration used when no file is present: the
// default solver parameters and only the built-in presets.
func DefaultConfig() *Config {
	defaults := solver.DefaultConfig()
	tol := defaults.TieTolerance
	return &Config{
		Solver: &SolverSettings{
			Gamma:         defaults.Gamma,
			Epsilon:       defaults.Epsilon,
			MaxIterations: defaults.MaxIterations,
			TieTolerance:  &tol,
		},
	}
}

// LoadConfig loads configuration from an HCL file. A missing file yields
// DefaultConfig.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	defaults := solver.DefaultConfig()
	if c.Solver == nil {
		c.Solver = &SolverSettings{}
	}
	if c.Solver.Gamma == 0 {
		c.Solver.Gamma = defaults.Gamma
	}
	if c.Solver.Epsilon == 0 {
		c.Solver.Epsilon = defaults.Epsilon
	}
	if c.Solver.MaxIterations == 0 {
		c.Solver.MaxIterations = defaults.MaxIterations
	}
	if c.Solver.TieTolerance == nil {
		tol := defaults.TieTolerance
		c.Solver.TieTolerance = &tol
	}

	for i := range c.Mazes {
		mz := &c.Mazes[i]
		if mz.StepReward == nil {
			step := DefaultStepReward
			mz.StepReward = &step
		}
		if mz.SuccessProbability == 0 {
			mz.SuccessProbability = DefaultSuccessProbability
		}
		if len(mz.TerminalRewards) == 0 {
			mz.TerminalRewards = DefaultTerminalRewards()
		}
	}
}

// Validate checks the solver block and every maze block.
func (c *Config) Validate() error {
	if err := c.SolverConfig().Validate(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Mazes))
	for _, mz := range c.Mazes {
		if seen[mz.Name] {
			return fmt.Errorf("maze %s: defined more than once", mz.Name)
		}
		seen[mz.Name] = true
		if err := mz.Spec().Validate(); err != nil {
			return fmt.Errorf("maze %s: %w", mz.Name, err)
		}
	}
	return nil
}

// SolverConfig converts the solver block into a solver.Config.
func (c *Config) SolverConfig() solver.Config {
	if c.Solver == nil {
		return solver.DefaultConfig()
	}
	cfg := solver.Config{
		Gamma:         c.Solver.Gamma,
		Epsilon:       c.Solver.Epsilon,
		MaxIterations: c.Solver.MaxIterations,
		TieTolerance:  solver.DefaultConfig().TieTolerance,
	}
	if c.Solver.TieTolerance != nil {
		cfg.TieTolerance = *c.Solver.TieTolerance
	}
	return cfg
}

// Spec returns the maze named name, preferring mazes defined in the file over
// the built-in presets.
func (c *Config) Spec(name string) (Spec, error) {
	for _, mz := range c.Mazes {
		if mz.Name == name {
			return mz.Spec(), nil
		}
	}
	return Preset(name)
}

// Spec converts the block into a maze Spec.
func (mc MazeConfig) Spec() Spec {
	spec := Spec{
		Name:               mc.Name,
		Layout:             append([]string(nil), mc.Layout...),
		StepReward:         DefaultStepReward,
		SuccessProbability: mc.SuccessProbability,
		TerminalRewards:    make(map[string]float64, len(mc.TerminalRewards)),
	}
	if mc.StepReward != nil {
		spec.StepReward = *mc.StepReward
	}
	for k, v := range mc.TerminalRewards {
		spec.TerminalRewards[k] = v
	}
	return spec
}
