package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/lox/dpsolver/mdp"
)

// PolicyFromUtility derives the greedy policy for u with a one-step
// lookahead. Ties within tol go to the lowest action index; terminal and
// inaccessible states receive mdp.NoAction.
func PolicyFromUtility(m *mdp.Model, u mdp.Utility, tol float64) mdp.Policy {
	return greedyPolicy(newKernel(m), u, tol)
}

// PolicyFromUtility derives the greedy policy for u using the solver's tie
// tolerance.
func (s *Solver) PolicyFromUtility(u mdp.Utility) mdp.Policy {
	return greedyPolicy(s.kernel, u, s.cfg.TieTolerance)
}

func greedyPolicy(k *kernel, u mdp.Utility, tol float64) mdp.Policy {
	pi := noActionPolicy(k.states)
	for _, s := range k.accessible {
		pi[s], _ = k.greedy(s, u, tol)
	}
	return pi
}

func noActionPolicy(n int) mdp.Policy {
	pi := make(mdp.Policy, n)
	for i := range pi {
		pi[i] = mdp.NoAction
	}
	return pi
}

// PolicyEvaluation returns the exact utility of the fixed policy pi by
// solving (I − γ·P_π)·U = R directly. Terminal rows are identity rows so a
// terminal's utility is its reward; inaccessible states are left out of the
// system entirely.
func (s *Solver) PolicyEvaluation(pi mdp.Policy) (mdp.Utility, error) {
	if !s.cfg.SupportsEvaluation() {
		return nil, fmt.Errorf("policy evaluation: %w (gamma=%v)", ErrDiscountUnsupported, s.cfg.Gamma)
	}
	if err := s.checkPolicy(pi); err != nil {
		return nil, err
	}
	return s.evaluate(pi)
}

func (s *Solver) checkPolicy(pi mdp.Policy) error {
	k := s.kernel
	if len(pi) != k.states {
		return fmt.Errorf("%w: %d entries for %d states", ErrInvalidPolicy, len(pi), k.states)
	}
	for _, st := range k.accessible {
		if pi[st] < 0 || int(pi[st]) >= k.actions {
			return fmt.Errorf("%w: state %d has action %d outside [0,%d)", ErrInvalidPolicy, st, pi[st], k.actions)
		}
	}
	return nil
}

func (s *Solver) evaluate(pi mdp.Policy) (mdp.Utility, error) {
	k := s.kernel
	index := make([]int, k.states)
	n := 0
	for st, kind := range k.kinds {
		if kind == mdp.Inaccessible {
			index[st] = -1
			continue
		}
		index[st] = n
		n++
	}

	a := mat.NewDense(n, n, nil)
	b := mat.NewVecDense(n, nil)
	for st, kind := range k.kinds {
		i := index[st]
		if i < 0 {
			continue
		}
		a.Set(i, i, 1)
		b.SetVec(i, k.rewards[st])
		if kind == mdp.Terminal {
			continue
		}
		for _, next := range k.next[pi[st]][st] {
			j := index[next.state]
			a.Set(i, j, a.At(i, j)-s.cfg.Gamma*next.prob)
		}
	}

	var lu mat.LU
	lu.Factorize(a)
	if cond := lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > conditionLimit {
		return nil, fmt.Errorf("policy evaluation: %w (condition number %g)", ErrSingularSystem, cond)
	}
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, b); err != nil {
		return nil, fmt.Errorf("policy evaluation: %w: %v", ErrSingularSystem, err)
	}

	u := make(mdp.Utility, k.states)
	for st, i := range index {
		if i >= 0 {
			u[st] = x.AtVec(i)
		}
	}
	return u, nil
}

// PolicyIteration alternates exact evaluation and greedy improvement,
// starting from action 0 at every accessible state, until the policy is
// stable under the don't-care mask.
func (s *Solver) PolicyIteration() (mdp.Policy, Stats, error) {
	start := s.clock.Now()
	stats := Stats{Algorithm: AlgorithmPolicyIteration}

	if !s.cfg.SupportsEvaluation() {
		err := fmt.Errorf("policy iteration: %w (gamma=%v)", ErrDiscountUnsupported, s.cfg.Gamma)
		s.finish(&stats, start, err)
		return nil, stats, err
	}

	k := s.kernel
	mask := s.model.DontCareMask()
	pi := noActionPolicy(k.states)
	for _, st := range k.accessible {
		pi[st] = 0
	}

	for stats.Iterations < s.cfg.MaxIterations {
		stats.Iterations++
		u, err := s.evaluate(pi)
		if err != nil {
			s.finish(&stats, start, err)
			return nil, stats, err
		}

		improved := s.improve(pi, u)
		changed := len(improved.Diff(pi, mask))
		s.report(Progress{Algorithm: AlgorithmPolicyIteration, Iteration: stats.Iterations, Changed: changed, Utility: u.Clone()})

		if changed == 0 {
			s.finish(&stats, start, nil)
			return pi, stats, nil
		}
		pi = improved
	}

	err := fmt.Errorf("policy iteration: %w (%d iterations)", ErrNotConverged, stats.Iterations)
	s.finish(&stats, start, err)
	return nil, stats, err
}

// improve returns the greedy policy for u, keeping the incumbent action
// wherever no alternative beats it by more than the tie tolerance.
func (s *Solver) improve(pi mdp.Policy, u mdp.Utility) mdp.Policy {
	k := s.kernel
	tol := s.cfg.TieTolerance
	out := pi.Clone()
	for _, st := range k.accessible {
		best, bestValue := k.greedy(st, u, tol)
		if bestValue > k.expect(int(pi[st]), st, u)+tol {
			out[st] = best
		}
	}
	return out
}
