package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/internal/render"
	"github.com/lox/dpsolver/internal/report"
	"github.com/lox/dpsolver/internal/simulator"
	"github.com/lox/dpsolver/internal/tui"
	"github.com/lox/dpsolver/sdk/solver"
)

// SolveCmd runs one algorithm and prints the result.
type SolveCmd struct {
	Algorithm string `short:"a" enum:"value,policy,q" default:"value" help:"Algorithm to run (value|policy|q)"`
	Out       string `short:"o" help:"Write the solution as JSON to this path"`
	Heatmap   string `help:"Write a utility heatmap PNG to this path"`
	Chart     string `help:"Write an HTML convergence chart to this path"`
	ShowQ     bool   `name:"show-q" help:"Also print the Q-value table (q algorithm only)"`
}

func (c *SolveCmd) Run(g *Globals) error {
	env, err := g.load()
	if err != nil {
		return err
	}
	algorithm, err := solver.ParseAlgorithm(c.Algorithm)
	if err != nil {
		return err
	}

	recorder := report.NewRecorder()
	s, err := env.newSolver(solver.WithProgress(recorder.Observe))
	if err != nil {
		return err
	}
	sol, err := s.Solve(algorithm)
	if err != nil {
		return err
	}
	sol.Name = env.maze.Name()
	sol.Rows, sol.Cols = env.maze.Rows(), env.maze.Cols()

	out := g.out()
	fmt.Fprintln(out, render.Summary(sol.Name, sol.Stats))
	fmt.Fprintln(out, render.UtilityTable(env.maze, sol.Utility))
	fmt.Fprintln(out, render.PolicyTable(env.maze, sol.Policy, sol.Utility))
	if c.ShowQ && sol.QValues != nil {
		fmt.Fprintln(out, render.QTable(env.maze, sol.QValues))
	}

	if c.Out != "" {
		if err := sol.Save(c.Out); err != nil {
			return fmt.Errorf("save solution: %w", err)
		}
		env.logger.Info("wrote solution", "path", c.Out)
	}
	if c.Heatmap != "" {
		title := fmt.Sprintf("%s utility (%s iteration, γ=%g)", sol.Name, algorithm, sol.Config.Gamma)
		if err := report.UtilityHeatmap(env.maze, sol.Utility, title, c.Heatmap); err != nil {
			return fmt.Errorf("write heatmap: %w", err)
		}
		env.logger.Info("wrote heatmap", "path", c.Heatmap)
	}
	if c.Chart != "" {
		if err := report.WriteConvergenceChart(recorder.Series(), sol.Name+" convergence", c.Chart); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
		env.logger.Info("wrote chart", "path", c.Chart)
	}
	return nil
}

// CheckCmd verifies that the algorithms agree.
type CheckCmd struct {
	Tolerance float64 `default:"1e-9" help:"Largest utility difference accepted between algorithms"`
	Chart     string  `help:"Write an HTML convergence chart of all three algorithms to this path"`
}

func (c *CheckCmd) Run(g *Globals) error {
	env, err := g.load()
	if err != nil {
		return err
	}
	recorder := report.NewRecorder()
	s, err := env.newSolver(solver.WithProgress(recorder.Observe))
	if err != nil {
		return err
	}

	result, err := s.Check(context.Background(), c.Tolerance)
	if err != nil {
		return err
	}
	out := g.out()
	for _, stats := range []solver.Stats{result.ValueRun, result.QRun, result.PolicyRun} {
		if stats.Iterations > 0 {
			fmt.Fprintln(out, render.Summary(env.maze.Name(), stats))
		}
	}
	fmt.Fprintln(out, render.CheckTable(result))

	if c.Chart != "" {
		if err := report.WriteConvergenceChart(recorder.Series(), env.maze.Name()+" convergence", c.Chart); err != nil {
			return fmt.Errorf("write chart: %w", err)
		}
	}
	if !result.Passed() {
		return errors.New("consistency check failed")
	}
	return nil
}

// RenderCmd prints a saved solution.
type RenderCmd struct {
	Solution string `short:"s" required:"" type:"existingfile" help:"Solution JSON written by solve --out"`
	Heatmap  string `help:"Write a utility heatmap PNG to this path"`
}

func (c *RenderCmd) Run(g *Globals) error {
	sol, err := solver.LoadSolution(c.Solution)
	if err != nil {
		return err
	}
	grid := render.SolutionGrid(sol)

	out := g.out()
	fmt.Fprintln(out, render.Summary(sol.Name, sol.Stats))
	fmt.Fprintln(out, render.UtilityTable(grid, sol.Utility))
	fmt.Fprintln(out, render.PolicyTable(grid, sol.Policy, sol.Utility))
	if sol.QValues != nil {
		fmt.Fprintln(out, render.QTable(grid, sol.QValues))
	}
	if c.Heatmap != "" {
		return report.UtilityHeatmap(grid, sol.Utility, sol.Name+" utility", c.Heatmap)
	}
	return nil
}

// PlayCmd simulates episodes of a policy.
type PlayCmd struct {
	Episodes int    `short:"n" default:"1000" help:"Number of episodes"`
	Seed     int64  `default:"1" help:"Random seed"`
	MaxSteps int    `default:"200" help:"Truncate episodes after this many steps"`
	Solution string `short:"s" type:"existingfile" help:"Play the policy from a saved solution instead of solving"`
}

func (c *PlayCmd) Run(g *Globals) error {
	env, err := g.load()
	if err != nil {
		return err
	}
	_, policy, err := env.policy(c.Solution)
	if err != nil {
		return err
	}

	stats, err := simulator.Run(env.model, env.maze.Start(), policy, simulator.Config{
		Episodes: c.Episodes,
		MaxSteps: c.MaxSteps,
		Seed:     c.Seed,
		Logger:   env.logger,
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(g.out(), render.SimulationTable(stats, env.terminalLabel))
	return nil
}

// ViewCmd animates episodes in the terminal.
type ViewCmd struct {
	Seed     int64         `default:"1" help:"Random seed"`
	Interval time.Duration `default:"300ms" help:"Delay between steps"`
	MaxSteps int           `default:"200" help:"Truncate episodes after this many steps"`
	Solution string        `short:"s" type:"existingfile" help:"View the policy from a saved solution instead of solving"`
}

func (c *ViewCmd) Run(g *Globals) error {
	env, err := g.load()
	if err != nil {
		return err
	}
	u, pi, err := env.policy(c.Solution)
	if err != nil {
		return err
	}

	viewer, err := tui.NewViewer(env.maze, env.model, pi, u, tui.Config{
		Seed:     c.Seed,
		Interval: c.Interval,
		MaxSteps: c.MaxSteps,
		Logger:   env.logger,
	})
	if err != nil {
		return err
	}
	return tui.Run(viewer)
}

// MazesCmd lists presets and mazes from the config file.
type MazesCmd struct{}

func (c *MazesCmd) Run(g *Globals) error {
	cfg, err := maze.LoadConfig(g.Config)
	if err != nil {
		return err
	}
	out := g.out()
	names := maze.PresetNames()
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
	}
	for _, mz := range cfg.Mazes {
		if !seen[mz.Name] {
			names = append(names, mz.Name)
		}
	}
	for _, name := range names {
		spec, err := cfg.Spec(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%dx%d)\n  %s\n", name, len(spec.Layout), len([]rune(spec.Layout[0])), strings.Join(spec.Layout, "\n  "))
	}
	return nil
}
