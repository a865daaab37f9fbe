package report

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/lox/dpsolver/internal/fileutil"
	"github.com/lox/dpsolver/sdk/solver"
)

// Series is the per-iteration trace of one algorithm. For value and Q
// iteration the points are sweep residuals; for policy iteration they are
// the number of states whose action changed.
type Series struct {
	Algorithm solver.Algorithm
	Points    []float64
}

// Name labels the series in charts.
func (s Series) Name() string {
	if s.Algorithm == solver.AlgorithmPolicyIteration {
		return "policy iteration (changed states)"
	}
	return fmt.Sprintf("%s iteration (residual)", s.Algorithm)
}

// Recorder collects solver progress into series. It is safe for concurrent
// use, so it can observe the parallel runs of a consistency check.
type Recorder struct {
	mu     sync.Mutex
	points map[solver.Algorithm][]float64
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{points: make(map[solver.Algorithm][]float64)}
}

// Observe records one progress event. Pass it to solver.WithProgress.
func (r *Recorder) Observe(p solver.Progress) {
	v := p.Residual
	if p.Algorithm == solver.AlgorithmPolicyIteration {
		v = float64(p.Changed)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points[p.Algorithm] = append(r.points[p.Algorithm], v)
}

// Series returns the recorded traces ordered by algorithm.
func (r *Recorder) Series() []Series {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Series, 0, len(r.points))
	for algorithm, points := range r.points {
		out = append(out, Series{Algorithm: algorithm, Points: append([]float64(nil), points...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Algorithm < out[j].Algorithm })
	return out
}

// ConvergenceChart renders an HTML line chart of series to w. The y axis is
// logarithmic; zero points are left as gaps.
func ConvergenceChart(series []Series, title string, w io.Writer) error {
	if len(series) == 0 {
		return fmt.Errorf("no series to chart")
	}

	longest := 0
	for _, s := range series {
		if len(s.Points) > longest {
			longest = len(s.Points)
		}
	}
	xs := make([]int, longest)
	for i := range xs {
		xs[i] = i + 1
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "iteration"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "change", Type: "log"}),
	)
	line.SetXAxis(xs)
	for _, s := range series {
		data := make([]opts.LineData, len(s.Points))
		for i, v := range s.Points {
			if v > 0 {
				data[i] = opts.LineData{Value: v}
			}
		}
		line.AddSeries(s.Name(), data)
	}
	return line.Render(w)
}

// WriteConvergenceChart writes the chart to path atomically.
func WriteConvergenceChart(series []Series, title, path string) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return ConvergenceChart(series, title, w)
	})
}
