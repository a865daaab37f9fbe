package solver

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/lox/dpsolver/internal/fileutil"
	"github.com/lox/dpsolver/mdp"
)

const solutionFileVersion = 1

// Solution captures the artifacts of a solver run so presentation and
// simulation tools can consume them without re-solving.
type Solution struct {
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Name        string          `json:"name,omitempty"`
	Algorithm   Algorithm       `json:"algorithm"`
	Config      Config          `json:"config"`
	Stats       Stats           `json:"stats"`
	Rows        int             `json:"rows,omitempty"`
	Cols        int             `json:"cols,omitempty"`
	Actions     int             `json:"actions"`
	Kinds       []mdp.StateKind `json:"kinds"`
	Utility     mdp.Utility     `json:"utility"`
	Policy      mdp.Policy      `json:"policy"`
	QValues     *mdp.QValues    `json:"qvalues,omitempty"`
}

// Solve runs the requested algorithm and fills in whichever of utility,
// policy and Q-values it does not produce directly. Policy iteration
// utilities come from evaluating the returned policy.
func (s *Solver) Solve(algorithm Algorithm) (*Solution, error) {
	sol := &Solution{
		Version:     solutionFileVersion,
		GeneratedAt: s.clock.Now().UTC(),
		Algorithm:   algorithm,
		Config:      s.cfg,
		Actions:     s.model.NumActions(),
		Kinds:       s.model.Kinds(),
	}

	switch algorithm {
	case AlgorithmValueIteration:
		u, stats, err := s.ValueIteration()
		if err != nil {
			return nil, err
		}
		sol.Utility, sol.Stats = u, stats
		sol.Policy = s.PolicyFromUtility(u)
	case AlgorithmPolicyIteration:
		pi, stats, err := s.PolicyIteration()
		if err != nil {
			return nil, err
		}
		u, err := s.PolicyEvaluation(pi)
		if err != nil {
			return nil, err
		}
		sol.Policy, sol.Utility, sol.Stats = pi, u, stats
	case AlgorithmQIteration:
		q, stats, err := s.QIteration()
		if err != nil {
			return nil, err
		}
		sol.QValues, sol.Stats = q, stats
		sol.Utility = UtilityFromQ(q, s.model)
		sol.Policy = PolicyFromQ(q, s.model, s.cfg.TieTolerance)
	default:
		return nil, fmt.Errorf("unknown algorithm %d", algorithm)
	}
	return sol, nil
}

// Validate checks the solution's internal consistency.
func (sol *Solution) Validate() error {
	if sol.Version != solutionFileVersion {
		return fmt.Errorf("unsupported solution version %d", sol.Version)
	}
	if err := sol.Config.Validate(); err != nil {
		return err
	}
	n := len(sol.Kinds)
	if n == 0 {
		return errors.New("solution has no states")
	}
	if len(sol.Utility) != n || len(sol.Policy) != n {
		return fmt.Errorf("solution vectors do not match %d states", n)
	}
	if sol.Rows*sol.Cols != 0 && sol.Rows*sol.Cols != n {
		return fmt.Errorf("solution grid %dx%d does not match %d states", sol.Rows, sol.Cols, n)
	}
	if sol.Actions <= 0 {
		return fmt.Errorf("solution has %d actions, want at least one", sol.Actions)
	}
	for s, kind := range sol.Kinds {
		a := sol.Policy[s]
		if kind == mdp.Accessible && (a < 0 || int(a) >= sol.Actions) {
			return fmt.Errorf("%w: state %d has action %d outside [0,%d)", ErrInvalidPolicy, s, a, sol.Actions)
		}
	}
	if sol.QValues != nil {
		if sol.QValues.NumStates() != n {
			return fmt.Errorf("solution q-values cover %d states, want %d", sol.QValues.NumStates(), n)
		}
		if sol.QValues.NumActions() != sol.Actions {
			return fmt.Errorf("solution q-values cover %d actions, want %d", sol.QValues.NumActions(), sol.Actions)
		}
	}
	return nil
}

// Save writes the solution to disk as indented JSON. The file is replaced
// atomically.
func (sol *Solution) Save(path string) error {
	if sol == nil {
		return errors.New("nil solution")
	}
	if path == "" {
		return errors.New("destination path is required")
	}
	data, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return fmt.Errorf("encode solution: %w", err)
	}
	return fileutil.WriteFileAtomic(path, append(data, '\n'), 0o644)
}

// LoadSolution reads a solution written by Save.
func LoadSolution(path string) (*Solution, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sol Solution
	if err := json.NewDecoder(f).Decode(&sol); err != nil {
		return nil, fmt.Errorf("decode solution: %w", err)
	}
	if err := sol.Validate(); err != nil {
		return nil, err
	}
	return &sol, nil
}
