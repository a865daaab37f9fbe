// Package report writes graphical artifacts of a solve: a utility heatmap
// and a convergence chart.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/lox/dpsolver/internal/fileutil"
	"github.com/lox/dpsolver/internal/render"
	"github.com/lox/dpsolver/mdp"
)

const cellSize = 64

// utilityGrid adapts a utility vector to plotter.GridXYZ. Plot rows grow
// upwards, so grid row 0 is drawn at the top.
type utilityGrid struct {
	grid render.Grid
	u    mdp.Utility
}

func (g utilityGrid) Dims() (c, r int) { return g.grid.Cols(), g.grid.Rows() }
func (g utilityGrid) X(c int) float64  { return float64(c) }
func (g utilityGrid) Y(r int) float64  { return float64(r) }

func (g utilityGrid) Z(c, r int) float64 {
	s := g.state(c, r)
	if g.grid.Kind(s) == mdp.Inaccessible {
		return math.NaN()
	}
	return g.u[s]
}

func (g utilityGrid) state(c, r int) int {
	return (g.grid.Rows()-1-r)*g.grid.Cols() + c
}

// UtilityPlot builds a heatmap of u over grid with the value printed in
// every accessible or terminal cell. Walls are drawn in dark grey.
func UtilityPlot(grid render.Grid, u mdp.Utility, title string) (*plot.Plot, error) {
	if len(u) != grid.Rows()*grid.Cols() {
		return nil, fmt.Errorf("utility has %d entries for a %dx%d grid", len(u), grid.Rows(), grid.Cols())
	}
	data := utilityGrid{grid: grid, u: u}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	hm := plotter.NewHeatMap(data, palette.Heat(16, 1))
	hm.NaN = color.Gray{Y: 0x40}
	if hm.Min == hm.Max {
		hm.Max = hm.Min + 1
	}
	p.Add(hm)

	var labels plotter.XYLabels
	cols, rows := data.Dims()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			if grid.Kind(data.state(c, r)) == mdp.Inaccessible {
				continue
			}
			labels.XYs = append(labels.XYs, plotter.XY{X: float64(c), Y: float64(r)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.3f", data.Z(c, r)))
		}
	}
	if len(labels.Labels) > 0 {
		l, err := plotter.NewLabels(labels)
		if err != nil {
			return nil, fmt.Errorf("heatmap labels: %w", err)
		}
		p.Add(l)
	}
	return p, nil
}

// WriteUtilityHeatmap renders the heatmap as PNG to w.
func WriteUtilityHeatmap(w io.Writer, grid render.Grid, u mdp.Utility, title string) error {
	p, err := UtilityPlot(grid, u, title)
	if err != nil {
		return err
	}
	width := vg.Points(float64(grid.Cols()*cellSize + 40))
	height := vg.Points(float64(grid.Rows()*cellSize + 60))
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render heatmap: %w", err)
	}
	_, err = wt.WriteTo(w)
	return err
}

// UtilityHeatmap writes the heatmap PNG to path atomically.
func UtilityHeatmap(grid render.Grid, u mdp.Utility, title, path string) error {
	return fileutil.WriteAtomic(path, 0o644, func(w io.Writer) error {
		return WriteUtilityHeatmap(w, grid, u, title)
	})
}
