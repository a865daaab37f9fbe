package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runWithConfig(t, filepath.Join(t.TempDir(), "absent.hcl"), args...)
}

func runWithConfig(t *testing.T, config string, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	var buf bytes.Buffer
	cli.Globals.stdout = &buf

	parser, err := kong.New(&cli, kong.Name("mdp"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	args = append([]string{"--config", config, "--log-level", "error"}, args...)
	ctx, err := parser.Parse(args)
	require.NoError(t, err)
	err = ctx.Run(&cli.Globals)
	return buf.String(), err
}

func TestSolveWritesArtifacts(t *testing.T) {
	dir := t.TempDir()
	sol := filepath.Join(dir, "solution.json")
	heatmap := filepath.Join(dir, "utility.png")
	chart := filepath.Join(dir, "convergence.html")

	out, err := run(t, "solve", "--algorithm", "q", "--show-q", "--out", sol, "--heatmap", heatmap, "--chart", chart)
	require.NoError(t, err)
	assert.Contains(t, out, "q iteration on classic")
	assert.Contains(t, out, "north")
	assert.FileExists(t, sol)
	assert.FileExists(t, heatmap)
	assert.FileExists(t, chart)

	out, err = run(t, "render", "--solution", sol)
	require.NoError(t, err)
	assert.Contains(t, out, "###")
	assert.Contains(t, out, "→")

	out, err = run(t, "play", "--episodes", "50", "--solution", sol)
	require.NoError(t, err)
	assert.Contains(t, out, "success rate")
}

func TestCheckPasses(t *testing.T) {
	out, err := run(t, "--maze", "cliff", "--gamma", "0.9", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "pass")
	assert.NotContains(t, out, "FAIL")
}

func TestGammaOverrideIsValidated(t *testing.T) {
	_, err := run(t, "--gamma", "2", "solve")
	assert.Error(t, err)
}

func TestUnknownMaze(t *testing.T) {
	_, err := run(t, "--maze", "labyrinth", "solve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown maze")
}

func TestMazesListsPresets(t *testing.T) {
	out, err := run(t, "mazes")
	require.NoError(t, err)
	for _, name := range []string{"bridge", "classic", "cliff"} {
		assert.Contains(t, out, name)
	}
}

func TestSolutionFromAnotherMazeIsRejected(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "mdp.hcl")
	require.NoError(t, os.WriteFile(config, []byte(`
maze "open" {
  layout = [
    "...+",
    "...-",
    "S...",
  ]
}
`), 0o644))
	sol := filepath.Join(dir, "classic.json")

	_, err := runWithConfig(t, config, "solve", "--out", sol)
	require.NoError(t, err)

	_, err = runWithConfig(t, config, "--maze", "open", "play", "--episodes", "5", "--solution", sol)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not fit maze open")

	out, err := runWithConfig(t, config, "play", "--episodes", "5", "--solution", sol)
	require.NoError(t, err)
	assert.Contains(t, out, "success rate")
}
