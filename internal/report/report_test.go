package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/mdp"
	"github.com/lox/dpsolver/sdk/solver"
)

func classic(t *testing.T) (*maze.Maze, *solver.Solver) {
	t.Helper()
	spec, err := maze.Preset("classic")
	require.NoError(t, err)
	m, err := maze.New(spec)
	require.NoError(t, err)
	model, err := m.Model()
	require.NoError(t, err)
	return m, mustSolver(t, model)
}

func mustSolver(t *testing.T, model *mdp.Model, opts ...solver.Option) *solver.Solver {
	t.Helper()
	s, err := solver.New(model, solver.DefaultConfig(), opts...)
	require.NoError(t, err)
	return s
}

func TestUtilityHeatmapWritesPNG(t *testing.T) {
	m, s := classic(t)
	u, _, err := s.ValueIteration()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "utility.png")
	require.NoError(t, UtilityHeatmap(m, u, "classic", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")))
}

func TestUtilityGridFlipsRows(t *testing.T) {
	m, s := classic(t)
	u, _, err := s.ValueIteration()
	require.NoError(t, err)

	g := utilityGrid{grid: m, u: u}
	c, r := g.Dims()
	assert.Equal(t, 4, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, 1.0, g.Z(3, 2), "goal sits top right")
	assert.True(t, math.IsNaN(g.Z(1, 1)), "wall")
}

func TestUtilityPlotRejectsMismatchedVector(t *testing.T) {
	m, _ := classic(t)
	_, err := UtilityPlot(m, mdp.Utility{1, 2}, "short")
	assert.Error(t, err)
}

func TestRecorderAndChart(t *testing.T) {
	_, s := classic(t)
	rec := NewRecorder()
	s = mustSolver(t, s.Model(), solver.WithProgress(rec.Observe))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); _, _, _ = s.ValueIteration() }()
	go func() { defer wg.Done(); _, _, _ = s.PolicyIteration() }()
	wg.Wait()

	series := rec.Series()
	require.Len(t, series, 2)
	assert.Equal(t, solver.AlgorithmValueIteration, series[0].Algorithm)
	assert.Equal(t, solver.AlgorithmPolicyIteration, series[1].Algorithm)
	assert.NotEmpty(t, series[0].Points)
	assert.Zero(t, series[1].Points[len(series[1].Points)-1], "policy iteration ends when nothing changes")

	var buf bytes.Buffer
	require.NoError(t, ConvergenceChart(series, "classic", &buf))
	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "value iteration (residual)")

	path := filepath.Join(t.TempDir(), "chart.html")
	require.NoError(t, WriteConvergenceChart(series, "classic", path))
	assert.FileExists(t, path)
}

func TestConvergenceChartNeedsSeries(t *testing.T) {
	assert.Error(t, ConvergenceChart(nil, "empty", &bytes.Buffer{}))
}
