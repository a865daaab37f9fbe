// Package tui provides an interactive terminal viewer that animates episodes
// of a solved policy on its maze.
package tui

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/internal/render"
	"github.com/lox/dpsolver/internal/simulator"
	"github.com/lox/dpsolver/mdp"
)

var (
	titleStyle  = render.HeaderStyle.MarginBottom(1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96CEB4")).MarginTop(1)
)

// Config controls the viewer.
type Config struct {
	Seed     int64
	Interval time.Duration
	MaxSteps int
	Logger   *log.Logger
	Clock    quartz.Clock
}

// tickMsg advances the episode. gen ties it to the schedule that created it
// so ticks from before a pause or restart are dropped.
type tickMsg struct{ gen int }

// ViewerModel is the bubbletea model for the episode viewer.
type ViewerModel struct {
	maze    *maze.Maze
	model   *mdp.Model
	policy  mdp.Policy
	utility mdp.Utility
	sim     *simulator.Simulator
	cfg     Config
	logger  *log.Logger

	keys KeyMap
	help help.Model

	episode  int
	state    int
	steps    int
	ret      float64
	paused   bool
	done     bool
	quitting bool
	gen      int
}

// NewViewer prepares a viewer for policy on m.
func NewViewer(m *maze.Maze, model *mdp.Model, policy mdp.Policy, utility mdp.Utility, cfg Config) (*ViewerModel, error) {
	if cfg.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = 200
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if len(utility) != model.NumStates() {
		return nil, fmt.Errorf("utility covers %d states, model has %d", len(utility), model.NumStates())
	}

	sim, err := simulator.New(model, policy, simulator.Config{
		Episodes: 1,
		MaxSteps: cfg.MaxSteps,
		Seed:     cfg.Seed,
		Logger:   cfg.Logger,
		Clock:    cfg.Clock,
	})
	if err != nil {
		return nil, err
	}

	v := &ViewerModel{
		maze:    m,
		model:   model,
		policy:  policy,
		utility: utility,
		sim:     sim,
		cfg:     cfg,
		logger:  cfg.Logger.WithPrefix("tui"),
		keys:    DefaultKeyMap(),
		help:    help.New(),
	}
	v.restart()
	return v, nil
}

// restart begins a new episode. Episode n always replays the same
// trajectory for a given seed.
func (v *ViewerModel) restart() {
	v.episode++
	v.sim.Reset(v.cfg.Seed + int64(v.episode))
	v.state = v.maze.Start()
	v.steps = 0
	v.ret = v.model.Reward(v.state)
	v.done = v.model.Kind(v.state) != mdp.Accessible
	v.gen++
}

// tick schedules the next step on the injected clock.
func (v *ViewerModel) tick() tea.Cmd {
	gen := v.gen
	timer := v.cfg.Clock.NewTimer(v.cfg.Interval, "viewer", "tick")
	return func() tea.Msg {
		<-timer.C
		return tickMsg{gen: gen}
	}
}

// advance takes one step of the episode.
func (v *ViewerModel) advance() {
	if v.done {
		return
	}
	next, done := v.sim.Step(v.state)
	if done {
		v.done = true
		return
	}
	v.state = next
	v.steps++
	v.ret += v.model.Reward(next)
	if v.model.Kind(next) == mdp.Terminal || v.steps >= v.cfg.MaxSteps {
		v.done = true
		v.logger.Debug("episode finished", "episode", v.episode, "steps", v.steps, "return", v.ret)
	}
}

// Init starts the animation.
func (v *ViewerModel) Init() tea.Cmd {
	return v.tick()
}

// Update handles key presses and ticks.
func (v *ViewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if msg.gen != v.gen || v.paused || v.done {
			return v, nil
		}
		v.advance()
		if v.done {
			return v, nil
		}
		return v, v.tick()

	case tea.WindowSizeMsg:
		v.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, v.keys.Quit):
			v.quitting = true
			return v, tea.Quit
		case key.Matches(msg, v.keys.Pause):
			v.paused = !v.paused
			v.gen++
			if !v.paused && !v.done {
				return v, v.tick()
			}
		case key.Matches(msg, v.keys.Step):
			v.advance()
		case key.Matches(msg, v.keys.Restart):
			v.restart()
			if !v.paused {
				return v, v.tick()
			}
		}
	}
	return v, nil
}

// View renders the maze with the agent highlighted.
func (v *ViewerModel) View() string {
	if v.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s · seed %d", v.maze.Name(), v.cfg.Seed)))
	b.WriteByte('\n')
	b.WriteString(render.AgentTable(v.maze, v.policy, v.utility, v.state))
	b.WriteByte('\n')
	b.WriteString(statusStyle.Render(v.Status()))
	b.WriteString("\n\n")
	b.WriteString(v.help.View(v.keys))
	return b.String()
}

// Status summarises the episode in progress.
func (v *ViewerModel) Status() string {
	phase := "running"
	switch {
	case v.done && v.model.Kind(v.state) == mdp.Terminal:
		phase = fmt.Sprintf("finished at %q", string(v.maze.Cell(v.state)))
	case v.done:
		phase = "truncated"
	case v.paused:
		phase = "paused"
	}
	return fmt.Sprintf("episode %d · step %d · return %.2f · %s", v.episode, v.steps, v.ret, phase)
}

// State returns the agent's current state.
func (v *ViewerModel) State() int { return v.state }

// Done reports whether the current episode has ended.
func (v *ViewerModel) Done() bool { return v.done }

// Run starts the viewer on the alternate screen and blocks until it quits.
func Run(v *ViewerModel) error {
	_, err := tea.NewProgram(v, tea.WithAltScreen()).Run()
	return err
}
