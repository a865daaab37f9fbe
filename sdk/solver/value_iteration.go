package solver

import (
	"fmt"
	"math"

	"github.com/lox/dpsolver/mdp"
)

// ValueIteration computes the optimal utility vector by repeated synchronous
// Bellman-optimality sweeps. Terminal states are pinned to their reward and
// inaccessible states stay at zero and are never read.
func (s *Solver) ValueIteration() (mdp.Utility, Stats, error) {
	start := s.clock.Now()
	stats := Stats{Algorithm: AlgorithmValueIteration}

	k := s.kernel
	threshold := s.cfg.StoppingThreshold()
	current := s.initialUtility()
	next := current.Clone()

	for stats.Iterations < s.cfg.MaxIterations {
		stats.Iterations++
		residual := 0.0
		for _, st := range k.accessible {
			_, best := k.greedy(st, current, 0)
			next[st] = k.rewards[st] + s.cfg.Gamma*best
			if d := math.Abs(next[st] - current[st]); d > residual {
				residual = d
			}
		}
		stats.Residual = residual
		current, next = next, current
		s.report(Progress{Algorithm: AlgorithmValueIteration, Iteration: stats.Iterations, Residual: residual})

		if residual < threshold || residual <= noiseFloor(current) {
			s.finish(&stats, start, nil)
			return current, stats, nil
		}
	}

	err := fmt.Errorf("value iteration: %w (%d iterations, residual %g)", ErrNotConverged, stats.Iterations, stats.Residual)
	s.finish(&stats, start, err)
	return nil, stats, err
}

// initialUtility is U₀: zero everywhere except terminals, which hold their
// reward for the whole run.
func (s *Solver) initialUtility() mdp.Utility {
	u := make(mdp.Utility, s.kernel.states)
	for _, t := range s.kernel.terminals {
		u[t] = s.kernel.rewards[t]
	}
	return u
}
