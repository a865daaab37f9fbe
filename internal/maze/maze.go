// Package maze builds grid-world MDPs from ASCII layouts. Each cell is a
// state; walls are inaccessible states, terminal cells are absorbing, and
// moves succeed with a configurable probability and otherwise slip to one of
// the two perpendicular directions.
package maze

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/dpsolver/mdp"
)

const (
	CellOpen  = '.'
	CellWall  = '#'
	CellStart = 'S'
)

// Compass actions, in index order.
const (
	North mdp.Action = iota
	East
	South
	West
	NumActions = 4
)

var (
	actionNames  = [NumActions]string{"north", "east", "south", "west"}
	actionArrows = [NumActions]string{"↑", "→", "↓", "←"}
	offsets      = [NumActions][2]int{{-1, 0}, {0, 1}, {1, 0}, {0, -1}}
)

// ActionName returns the lower-case compass name for a, or "none".
func ActionName(a mdp.Action) string {
	if a < 0 || a >= NumActions {
		return "none"
	}
	return actionNames[a]
}

// Arrow returns a single-glyph arrow for a, or "·" for mdp.NoAction.
func Arrow(a mdp.Action) string {
	if a < 0 || a >= NumActions {
		return "·"
	}
	return actionArrows[a]
}

// Default locomotion and reward parameters.
const (
	DefaultStepReward         = -0.04
	DefaultSuccessProbability = 0.8
)

// DefaultTerminalRewards maps terminal glyphs to their payoff.
func DefaultTerminalRewards() map[string]float64 {
	return map[string]float64{"+": 1, "-": -1}
}

// Spec describes a maze before it is compiled into a model.
type Spec struct {
	Name               string
	Layout             []string
	StepReward         float64
	SuccessProbability float64
	TerminalRewards    map[string]float64
}

// Validate ensures the layout is rectangular and uses only known glyphs.
func (s Spec) Validate() error {
	if len(s.Layout) == 0 {
		return errors.New("layout must have at least one row")
	}
	if s.SuccessProbability <= 0 || s.SuccessProbability > 1 {
		return fmt.Errorf("success probability must be in (0, 1], got %v", s.SuccessProbability)
	}
	terminals, err := s.terminalGlyphs()
	if err != nil {
		return err
	}
	width := len([]rune(s.Layout[0]))
	if width == 0 {
		return errors.New("layout rows cannot be empty")
	}
	starts := 0
	open := 0
	for r, line := range s.Layout {
		row := []rune(line)
		if len(row) != width {
			return fmt.Errorf("layout row %d has %d cells, want %d", r, len(row), width)
		}
		for c, ch := range row {
			switch {
			case ch == CellStart:
				starts++
				open++
			case ch == CellOpen:
				open++
			case ch == CellWall:
			default:
				if _, ok := terminals[ch]; !ok {
					return fmt.Errorf("unknown cell %q at row %d col %d", ch, r, c)
				}
			}
		}
	}
	if starts > 1 {
		return fmt.Errorf("layout has %d start cells, want at most one", starts)
	}
	if open == 0 {
		return errors.New("layout has no open cells")
	}
	return nil
}

func (s Spec) terminalGlyphs() (map[rune]float64, error) {
	out := make(map[rune]float64, len(s.TerminalRewards))
	for key, reward := range s.TerminalRewards {
		runes := []rune(key)
		if len(runes) != 1 {
			return nil, fmt.Errorf("terminal glyph %q must be a single character", key)
		}
		switch runes[0] {
		case CellOpen, CellWall, CellStart:
			return nil, fmt.Errorf("terminal glyph %q clashes with a reserved cell", key)
		}
		out[runes[0]] = reward
	}
	return out, nil
}

// Maze is a compiled, immutable grid world.
type Maze struct {
	name      string
	rows      int
	cols      int
	cells     []rune
	start     int
	spec      Spec
	terminals map[rune]float64
}

// New validates spec and compiles it into a Maze.
func New(spec Spec) (*Maze, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("maze %q: %w", spec.Name, err)
	}
	terminals, _ := spec.terminalGlyphs()

	m := &Maze{
		name:      spec.Name,
		rows:      len(spec.Layout),
		cols:      len([]rune(spec.Layout[0])),
		start:     -1,
		spec:      spec,
		terminals: terminals,
	}
	for _, line := range spec.Layout {
		m.cells = append(m.cells, []rune(line)...)
	}
	for s, ch := range m.cells {
		if ch == CellStart {
			m.start = s
			break
		}
	}
	if m.start < 0 {
		for s, ch := range m.cells {
			if ch == CellOpen {
				m.start = s
				break
			}
		}
	}
	return m, nil
}

func (m *Maze) Name() string { return m.name }
func (m *Maze) Rows() int    { return m.rows }
func (m *Maze) Cols() int    { return m.cols }

// Start returns the state index of the start cell.
func (m *Maze) Start() int { return m.start }

// NumStates returns rows·cols; walls count as (inaccessible) states.
func (m *Maze) NumStates() int { return len(m.cells) }

// StateAt maps a grid position to its state index.
func (m *Maze) StateAt(row, col int) int { return row*m.cols + col }

// Position maps a state index back to its grid position.
func (m *Maze) Position(s int) (row, col int) { return s / m.cols, s % m.cols }

// Cell returns the layout glyph of state s.
func (m *Maze) Cell(s int) rune { return m.cells[s] }

// Kind classifies state s.
func (m *Maze) Kind(s int) mdp.StateKind {
	switch ch := m.cells[s]; {
	case ch == CellWall:
		return mdp.Inaccessible
	case ch == CellOpen || ch == CellStart:
		return mdp.Accessible
	default:
		return mdp.Terminal
	}
}

// Reward returns the per-state reward: the terminal payoff, the step reward
// for open cells, and zero for walls.
func (m *Maze) Reward(s int) float64 {
	switch m.Kind(s) {
	case mdp.Terminal:
		return m.terminals[m.cells[s]]
	case mdp.Accessible:
		return m.spec.StepReward
	default:
		return 0
	}
}

// Move returns the state reached by moving one cell in direction a from s,
// ignoring slip. Moves into a wall or off the grid leave the agent in place.
func (m *Maze) Move(s int, a mdp.Action) int {
	row, col := m.Position(s)
	row += offsets[a][0]
	col += offsets[a][1]
	if row < 0 || row >= m.rows || col < 0 || col >= m.cols {
		return s
	}
	next := m.StateAt(row, col)
	if m.cells[next] == CellWall {
		return s
	}
	return next
}

// outcomes lists the directions actually travelled when a is chosen, with
// their probabilities.
func (m *Maze) outcomes(a mdp.Action) [3]struct {
	dir  mdp.Action
	prob float64
} {
	p := m.spec.SuccessProbability
	slip := (1 - p) / 2
	return [3]struct {
		dir  mdp.Action
		prob float64
	}{
		{a, p},
		{(a + 1) % NumActions, slip},
		{(a + NumActions - 1) % NumActions, slip},
	}
}

// Model compiles the maze into an MDP. Terminal and wall rows are
// self-loops.
func (m *Maze) Model() (*mdp.Model, error) {
	n := m.NumStates()
	kinds := make([]mdp.StateKind, n)
	rewards := make([]float64, n)
	for s := 0; s < n; s++ {
		kinds[s] = m.Kind(s)
		rewards[s] = m.Reward(s)
	}

	transitions := make([]*mat.Dense, NumActions)
	for a := mdp.Action(0); a < NumActions; a++ {
		p := mat.NewDense(n, n, nil)
		for s := 0; s < n; s++ {
			if kinds[s] != mdp.Accessible {
				p.Set(s, s, 1)
				continue
			}
			for _, o := range m.outcomes(a) {
				if o.prob == 0 {
					continue
				}
				next := m.Move(s, o.dir)
				p.Set(s, next, p.At(s, next)+o.prob)
			}
		}
		transitions[a] = p
	}

	model, err := mdp.NewModel(transitions, rewards, kinds)
	if err != nil {
		return nil, fmt.Errorf("maze %q: %w", m.name, err)
	}
	return model, nil
}

// String renders the layout back to text.
func (m *Maze) String() string {
	var b strings.Builder
	for r := 0; r < m.rows; r++ {
		b.WriteString(string(m.cells[r*m.cols : (r+1)*m.cols]))
		if r < m.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// TerminalGlyphs returns the terminal glyphs in a stable order.
func (m *Maze) TerminalGlyphs() []string {
	out := make([]string, 0, len(m.terminals))
	for ch := range m.terminals {
		out = append(out, string(ch))
	}
	sort.Strings(out)
	return out
}
