package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/lox/dpsolver/mdp"
)

type successor struct {
	state int
	prob  float64
}

// kernel is a sparse view of the transition tensor restricted to the states
// the algorithms may read. Inaccessible targets are dropped when the kernel is
// built, so no sweep ever touches an inaccessible state's value.
type kernel struct {
	states     int
	actions    int
	kinds      []mdp.StateKind
	rewards    []float64
	accessible []int
	terminals  []int
	next       [][][]successor // [a][s] -> successors
}

func newKernel(m *mdp.Model) *kernel {
	k := &kernel{
		states:     m.NumStates(),
		actions:    m.NumActions(),
		kinds:      m.Kinds(),
		rewards:    m.Rewards(),
		accessible: m.Accessible(),
		terminals:  m.Terminals(),
		next:       make([][][]successor, m.NumActions()),
	}
	for a := range k.next {
		k.next[a] = make([][]successor, k.states)
		for _, s := range k.accessible {
			row := m.Row(mdp.Action(a), s)
			for n, p := range row {
				if p == 0 || k.kinds[n] == mdp.Inaccessible {
					continue
				}
				k.next[a][s] = append(k.next[a][s], successor{state: n, prob: p})
			}
		}
	}
	return k
}

// expect returns Σ P[a][s][s'] · v[s'] over the non-inaccessible successors.
func (k *kernel) expect(a, s int, v []float64) float64 {
	sum := 0.0
	for _, n := range k.next[a][s] {
		sum += n.prob * v[n.state]
	}
	return sum
}

// greedy returns the action maximising expect(a, s, v), preferring the lowest
// index among actions within tol of the best value.
func (k *kernel) greedy(s int, v []float64, tol float64) (mdp.Action, float64) {
	best := mdp.Action(0)
	bestValue := math.Inf(-1)
	for a := 0; a < k.actions; a++ {
		value := k.expect(a, s, v)
		if value > bestValue+tol {
			best = mdp.Action(a)
			bestValue = value
		}
	}
	return best, bestValue
}

// argmax mirrors greedy for an explicit row of action values.
func argmax(row []float64, tol float64) (mdp.Action, float64) {
	best := 0
	for a := 1; a < len(row); a++ {
		if row[a] > row[best]+tol {
			best = a
		}
	}
	return mdp.Action(best), row[best]
}

// noiseFloor is the smallest change that float64 arithmetic can meaningfully
// resolve for values of v's magnitude.
func noiseFloor(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	scale := math.Max(math.Abs(floats.Max(v)), math.Abs(floats.Min(v)))
	return 4 * scale * 0x1p-52
}
