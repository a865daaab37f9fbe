package mdp

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Action indexes the action space. Actions are identical across states.
type Action int

// NoAction marks states where no decision is taken (terminal or
// inaccessible).
const NoAction Action = -1

// Utility holds the expected discounted return per state. Entries for
// inaccessible states carry no meaning and are kept at zero; consult
// Model.Kind before reading them.
type Utility []float64

// Clone returns an independent copy.
func (u Utility) Clone() Utility {
	return append(Utility(nil), u...)
}

// MaxDiff returns the largest absolute difference between u and other over
// the states of m that are not inaccessible.
func (u Utility) MaxDiff(other Utility, m *Model) float64 {
	worst := 0.0
	for s := range u {
		if m.Kind(s) == Inaccessible {
			continue
		}
		if d := math.Abs(u[s] - other[s]); d > worst {
			worst = d
		}
	}
	return worst
}

// Policy maps each state to the chosen action, or NoAction.
type Policy []Action

// Clone returns an independent copy.
func (p Policy) Clone() Policy {
	return append(Policy(nil), p...)
}

// Equal reports whether p and other choose the same action at every state
// where mask is true. States outside the mask are don't-care.
func (p Policy) Equal(other Policy, mask []bool) bool {
	return len(p.Diff(other, mask)) == 0 && len(p) == len(other)
}

// Diff lists the masked states at which p and other disagree.
func (p Policy) Diff(other Policy, mask []bool) []int {
	var out []int
	for s := range p {
		if s >= len(other) {
			out = append(out, s)
			continue
		}
		if mask != nil && !mask[s] {
			continue
		}
		if p[s] != other[s] {
			out = append(out, s)
		}
	}
	return out
}

// QValues is an S×A matrix of state-action values.
type QValues struct {
	*mat.Dense
}

// NewQValues allocates a zeroed S×A matrix.
func NewQValues(states, actions int) *QValues {
	return &QValues{Dense: mat.NewDense(states, actions, nil)}
}

// NumStates returns S.
func (q *QValues) NumStates() int {
	r, _ := q.Dims()
	return r
}

// NumActions returns A.
func (q *QValues) NumActions() int {
	_, c := q.Dims()
	return c
}

// Clone returns an independent copy.
func (q *QValues) Clone() *QValues {
	return &QValues{Dense: mat.DenseCopyOf(q.Dense)}
}

type qvaluesJSON struct {
	States  int         `json:"states"`
	Actions int         `json:"actions"`
	Rows    [][]float64 `json:"rows"`
}

// MarshalJSON encodes the matrix row by row.
func (q *QValues) MarshalJSON() ([]byte, error) {
	r, c := q.Dims()
	out := qvaluesJSON{States: r, Actions: c, Rows: make([][]float64, r)}
	for s := 0; s < r; s++ {
		out.Rows[s] = mat.Row(nil, s, q.Dense)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the row-by-row encoding produced by MarshalJSON.
func (q *QValues) UnmarshalJSON(data []byte) error {
	var in qvaluesJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.States <= 0 || in.Actions <= 0 || len(in.Rows) != in.States {
		return fmt.Errorf("q-values: malformed shape %dx%d with %d rows", in.States, in.Actions, len(in.Rows))
	}
	dense := mat.NewDense(in.States, in.Actions, nil)
	for s, row := range in.Rows {
		if len(row) != in.Actions {
			return fmt.Errorf("q-values: row %d has %d entries, want %d", s, len(row), in.Actions)
		}
		dense.SetRow(s, row)
	}
	q.Dense = dense
	return nil
}
