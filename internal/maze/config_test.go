package maze

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/dpsolver/sdk/solver"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mdp.hcl")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.hcl"))
	require.NoError(t, err)

	assert.Equal(t, solver.DefaultConfig(), cfg.SolverConfig())
	spec, err := cfg.Spec("classic")
	require.NoError(t, err)
	assert.Equal(t, "classic", spec.Name)
}

func TestLoadConfigDecodesBlocks(t *testing.T) {
	path := writeConfig(t, `
solver {
  gamma   = 0.9
  epsilon = 1e-6
}

maze "corridor" {
  layout = [
    "S..*",
  ]
  step_reward         = 0
  success_probability = 1
  terminal_rewards = {
    "*" = 5
  }
}

maze "plain" {
  layout = ["S.+"]
}
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	sc := cfg.SolverConfig()
	assert.Equal(t, 0.9, sc.Gamma)
	assert.Equal(t, 1e-6, sc.Epsilon)
	assert.Equal(t, solver.DefaultConfig().MaxIterations, sc.MaxIterations)

	corridor, err := cfg.Spec("corridor")
	require.NoError(t, err)
	assert.Equal(t, 0.0, corridor.StepReward, "explicit zero step reward survives defaults")
	assert.Equal(t, 1.0, corridor.SuccessProbability)
	assert.Equal(t, map[string]float64{"*": 5}, corridor.TerminalRewards)

	plain, err := cfg.Spec("plain")
	require.NoError(t, err)
	assert.Equal(t, DefaultStepReward, plain.StepReward)
	assert.Equal(t, DefaultSuccessProbability, plain.SuccessProbability)
	assert.Equal(t, DefaultTerminalRewards(), plain.TerminalRewards)

	m, err := New(corridor)
	require.NoError(t, err)
	assert.Equal(t, 5.0, m.Reward(3))
}

func TestLoadConfigWithoutSolverBlock(t *testing.T) {
	path := writeConfig(t, `maze "tiny" { layout = ["S+"] }`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultConfig(), cfg.SolverConfig())
}

func TestLoadConfigKeepsExplicitZeroTieTolerance(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `solver { tie_tolerance = 0 }`))
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.SolverConfig().TieTolerance)

	cfg, err = LoadConfig(writeConfig(t, `solver { gamma = 0.9 }`))
	require.NoError(t, err)
	assert.Equal(t, solver.DefaultConfig().TieTolerance, cfg.SolverConfig().TieTolerance)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"syntax", `solver {`, "parse"},
		{"bad gamma", `solver { gamma = 1.5 }`, "gamma"},
		{"ragged maze", `maze "x" { layout = ["S.", "..+"] }`, "maze x"},
		{"duplicate", `
maze "x" { layout = ["S+"] }
maze "x" { layout = ["S+"] }
`, "more than once"},
		{"missing layout", `maze "x" {}`, "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSampleConfigCompiles(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join("..", "..", "mdp.hcl"))
	require.NoError(t, err)
	require.Len(t, cfg.Mazes, 2)

	for _, name := range []string{"spiral", "gamble", "classic"} {
		spec, err := cfg.Spec(name)
		require.NoError(t, err, name)
		m, err := New(spec)
		require.NoError(t, err, name)
		_, err = m.Model()
		require.NoError(t, err, name)
	}

	spec, err := cfg.Spec("gamble")
	require.NoError(t, err)
	assert.Equal(t, 3.0, spec.TerminalRewards["*"])
	assert.Equal(t, DefaultSuccessProbability, spec.SuccessProbability)
}
