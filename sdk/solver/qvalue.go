package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/lox/dpsolver/mdp"
)

// QIteration computes the optimal state-action values by Bellman-optimality
// sweeps on Q directly:
//
//	Q[s][a] = R[s] + γ · Σ P[a][s][s'] · max_a' Q[s'][a']
//
// Terminal rows hold the terminal reward under every action, so the row
// maximum equals the terminal utility used by value iteration. Inaccessible
// rows are zero.
func (s *Solver) QIteration() (*mdp.QValues, Stats, error) {
	start := s.clock.Now()
	stats := Stats{Algorithm: AlgorithmQIteration}

	k := s.kernel
	threshold := s.cfg.StoppingThreshold()
	current := s.initialQ()
	next := current.Clone()
	// values caches max_a' Q[s'][a'] for the sweep in progress.
	values := utilityFromRows(current.Dense, k.kinds)

	for stats.Iterations < s.cfg.MaxIterations {
		stats.Iterations++
		residual := 0.0
		for _, st := range k.accessible {
			row := next.RawRowView(st)
			for a := range row {
				q := k.rewards[st] + s.cfg.Gamma*k.expect(a, st, values)
				if d := math.Abs(q - current.At(st, a)); d > residual {
					residual = d
				}
				row[a] = q
			}
		}
		stats.Residual = residual
		current, next = next, current
		values = utilityFromRows(current.Dense, k.kinds)
		s.report(Progress{Algorithm: AlgorithmQIteration, Iteration: stats.Iterations, Residual: residual})

		if residual < threshold || residual <= noiseFloor(values) {
			s.finish(&stats, start, nil)
			return current, stats, nil
		}
	}

	err := fmt.Errorf("q iteration: %w (%d iterations, residual %g)", ErrNotConverged, stats.Iterations, stats.Residual)
	s.finish(&stats, start, err)
	return nil, stats, err
}

func (s *Solver) initialQ() *mdp.QValues {
	q := mdp.NewQValues(s.kernel.states, s.kernel.actions)
	for _, t := range s.kernel.terminals {
		row := q.RawRowView(t)
		for a := range row {
			row[a] = s.kernel.rewards[t]
		}
	}
	return q
}

// UtilityFromQ returns U[s] = max_a Q[s][a]. Inaccessible states are zero.
func UtilityFromQ(q *mdp.QValues, m *mdp.Model) mdp.Utility {
	return utilityFromRows(q.Dense, m.Kinds())
}

func utilityFromRows(q *mat.Dense, kinds []mdp.StateKind) mdp.Utility {
	u := make(mdp.Utility, len(kinds))
	for s, kind := range kinds {
		if kind == mdp.Inaccessible {
			continue
		}
		u[s] = floats.Max(q.RawRowView(s))
	}
	return u
}

// PolicyFromQ returns π[s] = argmax_a Q[s][a] with the same lowest-index
// tie-break as PolicyFromUtility. Terminal and inaccessible states receive
// mdp.NoAction.
func PolicyFromQ(q *mdp.QValues, m *mdp.Model, tol float64) mdp.Policy {
	pi := noActionPolicy(m.NumStates())
	for s := range pi {
		if m.Kind(s) != mdp.Accessible {
			continue
		}
		pi[s], _ = argmax(q.RawRowView(s), tol)
	}
	return pi
}
