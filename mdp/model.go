// Package mdp defines the data model shared by the solver and the environments
// that feed it: a finite Markov decision process expressed as a per-action
// transition tensor, a per-state reward vector and a classification of every
// state as accessible, terminal or inaccessible.
package mdp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// StateKind classifies a state for the purposes of the dynamic-programming
// algorithms.
type StateKind uint8

const (
	// Accessible states are updated by every algorithm.
	Accessible StateKind = iota
	// Terminal states are absorbing: their utility is their reward.
	Terminal
	// Inaccessible states are never visited and are omitted from all sums.
	Inaccessible
)

func (k StateKind) String() string {
	switch k {
	case Accessible:
		return "accessible"
	case Terminal:
		return "terminal"
	case Inaccessible:
		return "inaccessible"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k StateKind) MarshalText() ([]byte, error) {
	switch k {
	case Accessible, Terminal, Inaccessible:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("unknown state kind %d", k)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *StateKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "accessible":
		*k = Accessible
	case "terminal":
		*k = Terminal
	case "inaccessible":
		*k = Inaccessible
	default:
		return fmt.Errorf("unknown state kind %q", text)
	}
	return nil
}

// ErrInvalidModel is returned when a transition model or reward vector breaks
// one of the structural invariants.
var ErrInvalidModel = errors.New("invalid model")

// StochasticTolerance bounds how far a transition row may drift from summing
// to one.
const StochasticTolerance = 1e-9

// Model is an immutable finite MDP. Transitions[a] is an S×S row-stochastic
// matrix, Rewards[s] the reward for being in state s.
type Model struct {
	transitions []*mat.Dense
	rewards     []float64
	kinds       []StateKind
}

// NewModel validates and wraps the supplied tensor, reward vector and state
// classification. The inputs are copied so later mutation by the caller does
// not leak into the model.
func NewModel(transitions []*mat.Dense, rewards []float64, kinds []StateKind) (*Model, error) {
	if len(transitions) == 0 {
		return nil, fmt.Errorf("%w: at least one action is required", ErrInvalidModel)
	}
	n := len(rewards)
	if n == 0 {
		return nil, fmt.Errorf("%w: at least one state is required", ErrInvalidModel)
	}
	if len(kinds) != n {
		return nil, fmt.Errorf("%w: %d state kinds for %d states", ErrInvalidModel, len(kinds), n)
	}

	m := &Model{
		transitions: make([]*mat.Dense, len(transitions)),
		rewards:     append([]float64(nil), rewards...),
		kinds:       append([]StateKind(nil), kinds...),
	}
	for a, p := range transitions {
		if p == nil {
			return nil, fmt.Errorf("%w: action %d has no transition matrix", ErrInvalidModel, a)
		}
		r, c := p.Dims()
		if r != n || c != n {
			return nil, fmt.Errorf("%w: action %d matrix is %dx%d, want %dx%d", ErrInvalidModel, a, r, c, n, n)
		}
		m.transitions[a] = mat.DenseCopyOf(p)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) validate() error {
	n := m.NumStates()
	for s, k := range m.kinds {
		if k > Inaccessible {
			return fmt.Errorf("%w: state %d has unknown kind %d", ErrInvalidModel, s, k)
		}
		if math.IsNaN(m.rewards[s]) || math.IsInf(m.rewards[s], 0) {
			return fmt.Errorf("%w: state %d reward is not finite", ErrInvalidModel, s)
		}
	}
	for a, p := range m.transitions {
		for s := 0; s < n; s++ {
			row := p.RawRowView(s)
			sum := 0.0
			for next, prob := range row {
				if prob < 0 || prob > 1 || math.IsNaN(prob) {
					return fmt.Errorf("%w: P[%d][%d][%d] = %v outside [0,1]", ErrInvalidModel, a, s, next, prob)
				}
				if prob > 0 && m.kinds[s] != Inaccessible && m.kinds[next] == Inaccessible {
					return fmt.Errorf("%w: state %d reaches inaccessible state %d under action %d", ErrInvalidModel, s, next, a)
				}
				sum += prob
			}
			if math.Abs(sum-1) > StochasticTolerance {
				return fmt.Errorf("%w: row %d of action %d sums to %v", ErrInvalidModel, s, a, sum)
			}
			if m.kinds[s] == Terminal && row[s] != 1 {
				return fmt.Errorf("%w: terminal state %d is not absorbing under action %d", ErrInvalidModel, s, a)
			}
		}
	}
	return nil
}

// NumStates returns S.
func (m *Model) NumStates() int { return len(m.rewards) }

// NumActions returns A.
func (m *Model) NumActions() int { return len(m.transitions) }

// Kind returns the classification of state s.
func (m *Model) Kind(s int) StateKind { return m.kinds[s] }

// Kinds returns a copy of the state classification.
func (m *Model) Kinds() []StateKind { return append([]StateKind(nil), m.kinds...) }

// Reward returns R[s].
func (m *Model) Reward(s int) float64 { return m.rewards[s] }

// Rewards returns a copy of the reward vector.
func (m *Model) Rewards() []float64 { return append([]float64(nil), m.rewards...) }

// Prob returns P[a][s][next].
func (m *Model) Prob(a Action, s, next int) float64 {
	return m.transitions[a].At(s, next)
}

// Row returns a read-only view of P[a][s][·]. Callers must not modify it.
func (m *Model) Row(a Action, s int) []float64 {
	return m.transitions[a].RawRowView(s)
}

// DontCareMask reports, per state, whether the chosen action matters. It is
// false at terminal and inaccessible states, where every action is
// equivalent.
func (m *Model) DontCareMask() []bool {
	mask := make([]bool, len(m.kinds))
	for s, k := range m.kinds {
		mask[s] = k == Accessible
	}
	return mask
}

// Accessible returns the indices of all accessible states in ascending order.
func (m *Model) Accessible() []int {
	return m.statesOfKind(Accessible)
}

// Terminals returns the indices of all terminal states in ascending order.
func (m *Model) Terminals() []int {
	return m.statesOfKind(Terminal)
}

func (m *Model) statesOfKind(kind StateKind) []int {
	var out []int
	for s, k := range m.kinds {
		if k == kind {
			out = append(out, s)
		}
	}
	return out
}
