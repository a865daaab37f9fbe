package solver

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/lox/dpsolver/mdp"
)

// CheckStatus is the outcome of one consistency property.
type CheckStatus uint8

const (
	CheckPassed CheckStatus = iota
	CheckFailed
	CheckSkipped
)

func (c CheckStatus) String() string {
	switch c {
	case CheckPassed:
		return "pass"
	case CheckFailed:
		return "FAIL"
	case CheckSkipped:
		return "skip"
	default:
		return "unknown"
	}
}

// CheckResult records one property evaluation.
type CheckResult struct {
	Name   string
	Status CheckStatus
	Detail string
}

// CheckReport aggregates the cross-algorithm consistency properties along
// with the artifacts they were computed from.
type CheckReport struct {
	Results   []CheckResult
	Utility   mdp.Utility
	Policy    mdp.Policy
	QValues   *mdp.QValues
	ValueRun  Stats
	QRun      Stats
	PolicyRun Stats
}

// Passed reports whether no property failed.
func (r *CheckReport) Passed() bool {
	for _, res := range r.Results {
		if res.Status == CheckFailed {
			return false
		}
	}
	return true
}

func (r *CheckReport) String() string {
	var b strings.Builder
	for _, res := range r.Results {
		fmt.Fprintf(&b, "[%s] %s", res.Status, res.Name)
		if res.Detail != "" {
			fmt.Fprintf(&b, ": %s", res.Detail)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (r *CheckReport) add(name string, ok bool, detail string) {
	status := CheckPassed
	if !ok {
		status = CheckFailed
	}
	r.Results = append(r.Results, CheckResult{Name: name, Status: status, Detail: detail})
}

func (r *CheckReport) skip(name, detail string) {
	r.Results = append(r.Results, CheckResult{Name: name, Status: CheckSkipped, Detail: detail})
}

// Check runs value iteration, Q iteration and (when gamma < 1) policy
// iteration concurrently against the shared read-only model, then verifies
// that their results agree. Agreement on utilities is measured against
// tolerance; policies are compared under the don't-care mask. Cancelling ctx
// stops the check before any property is evaluated.
func (s *Solver) Check(ctx context.Context, tolerance float64) (*CheckReport, error) {
	report := &CheckReport{}
	evaluation := s.cfg.SupportsEvaluation()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		u, stats, err := s.ValueIteration()
		report.Utility, report.ValueRun = u, stats
		return err
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		q, stats, err := s.QIteration()
		report.QValues, report.QRun = q, stats
		return err
	})
	if evaluation {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pi, stats, err := s.PolicyIteration()
			report.Policy, report.PolicyRun = pi, stats
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("check: %w", err)
	}

	mask := s.model.DontCareMask()
	optimal := s.PolicyFromUtility(report.Utility)

	again, _, err := s.ValueIteration()
	if err != nil {
		return nil, err
	}
	diff := again.MaxDiff(report.Utility, s.model)
	report.add("value iteration is repeatable", diff <= tolerance, fmt.Sprintf("max diff %.3g", diff))

	qUtility := UtilityFromQ(report.QValues, s.model)
	diff = qUtility.MaxDiff(report.Utility, s.model)
	report.add("max over Q equals value iteration utility", diff <= tolerance, fmt.Sprintf("max diff %.3g", diff))

	qPolicy := PolicyFromQ(report.QValues, s.model, s.cfg.TieTolerance)
	report.add("arg-max over Q equals greedy policy", qPolicy.Equal(optimal, mask), describeDiff(qPolicy, optimal, mask))

	if !evaluation {
		reason := fmt.Sprintf("gamma=%v does not support policy evaluation", s.cfg.Gamma)
		report.skip("greedy policy evaluates to value iteration utility", reason)
		report.skip("policy iteration equals greedy policy", reason)
		report.Policy = optimal
		return report, nil
	}

	evaluated, err := s.PolicyEvaluation(optimal)
	if err != nil {
		return nil, err
	}
	diff = evaluated.MaxDiff(report.Utility, s.model)
	report.add("greedy policy evaluates to value iteration utility", diff <= tolerance, fmt.Sprintf("max diff %.3g", diff))
	report.add("policy iteration equals greedy policy", report.Policy.Equal(optimal, mask), describeDiff(report.Policy, optimal, mask))

	return report, nil
}

func describeDiff(a, b mdp.Policy, mask []bool) string {
	diff := a.Diff(b, mask)
	if len(diff) == 0 {
		return ""
	}
	return fmt.Sprintf("disagree at states %v", diff)
}
