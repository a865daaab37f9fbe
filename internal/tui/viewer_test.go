package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/mdp"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func lineViewer(t *testing.T) *ViewerModel {
	t.Helper()
	m, err := maze.New(maze.Spec{
		Name:               "line",
		Layout:             []string{"S..+"},
		StepReward:         -0.5,
		SuccessProbability: 1,
		TerminalRewards:    maze.DefaultTerminalRewards(),
	})
	require.NoError(t, err)
	model, err := m.Model()
	require.NoError(t, err)

	policy := mdp.Policy{maze.East, maze.East, maze.East, mdp.NoAction}
	utility := mdp.Utility{0, 0, 0, 1}
	v, err := NewViewer(m, model, policy, utility, Config{
		Seed:     1,
		Interval: 100 * time.Millisecond,
		Clock:    quartz.NewMock(t),
	})
	require.NoError(t, err)
	return v
}

func TestViewerStepsAndFinishes(t *testing.T) {
	v := lineViewer(t)
	assert.Equal(t, 0, v.State())
	assert.NotNil(t, v.Init())

	v.Update(runes("n"))
	assert.Equal(t, 1, v.State())

	_, cmd := v.Update(tickMsg{gen: v.gen})
	assert.Equal(t, 2, v.State())
	assert.NotNil(t, cmd, "ticks keep coming while running")

	_, cmd = v.Update(tickMsg{gen: v.gen})
	assert.Equal(t, 3, v.State())
	assert.Nil(t, cmd)
	assert.True(t, v.Done())
	assert.Contains(t, v.Status(), `finished at "+"`)
	assert.Contains(t, v.Status(), "return -0.50")
}

func TestViewerDropsStaleTicks(t *testing.T) {
	v := lineViewer(t)
	stale := v.gen

	v.Update(runes("r"))
	assert.Equal(t, 2, v.episode)

	v.Update(tickMsg{gen: stale})
	assert.Equal(t, 0, v.State())
}

func TestViewerPause(t *testing.T) {
	v := lineViewer(t)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.Nil(t, cmd)
	assert.Contains(t, v.Status(), "paused")

	v.Update(tickMsg{gen: v.gen})
	assert.Equal(t, 0, v.State(), "ticks are ignored while paused")

	v.Update(runes("n"))
	assert.Equal(t, 1, v.State(), "manual steps still work")

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeySpace})
	assert.NotNil(t, cmd)
	assert.Contains(t, v.Status(), "running")
}

func TestViewerRestartAndQuit(t *testing.T) {
	v := lineViewer(t)
	v.Update(runes("n"))
	v.Update(runes("n"))

	v.Update(runes("r"))
	assert.Equal(t, 0, v.State())
	assert.Equal(t, 2, v.episode)
	assert.Contains(t, v.View(), "line")

	_, cmd := v.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, v.View())
}

func TestNewViewerValidates(t *testing.T) {
	v := lineViewer(t)
	_, err := NewViewer(v.maze, v.model, v.policy, v.utility, Config{})
	assert.Error(t, err)

	_, err = NewViewer(v.maze, v.model, v.policy, mdp.Utility{0}, Config{Interval: time.Second})
	assert.Error(t, err)
}
