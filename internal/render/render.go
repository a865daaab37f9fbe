// Package render draws utilities, policies and reports as terminal tables.
package render

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/dpsolver/internal/maze"
	"github.com/lox/dpsolver/internal/simulator"
	"github.com/lox/dpsolver/mdp"
	"github.com/lox/dpsolver/sdk/solver"
)

const wallGlyph = "###"

// Grid is the geometry needed to lay states out row-major.
type Grid interface {
	Rows() int
	Cols() int
	Kind(s int) mdp.StateKind
}

type solutionGrid struct {
	rows, cols int
	kinds      []mdp.StateKind
}

func (g solutionGrid) Rows() int                { return g.rows }
func (g solutionGrid) Cols() int                { return g.cols }
func (g solutionGrid) Kind(s int) mdp.StateKind { return g.kinds[s] }

// SolutionGrid recovers the grid layout recorded in a saved solution. A
// solution without grid dimensions is laid out as a single row.
func SolutionGrid(sol *solver.Solution) Grid {
	rows, cols := sol.Rows, sol.Cols
	if rows*cols == 0 {
		rows, cols = 1, len(sol.Kinds)
	}
	return solutionGrid{rows: rows, cols: cols, kinds: sol.Kinds}
}

// UtilityTable renders u with three decimals per cell.
func UtilityTable(g Grid, u mdp.Utility) string {
	return grid(g, func(s int) (string, lipgloss.Style) {
		switch g.Kind(s) {
		case mdp.Inaccessible:
			return wallGlyph, WallStyle
		case mdp.Terminal:
			return fmt.Sprintf("%.3f", u[s]), terminalStyle(u[s])
		default:
			return fmt.Sprintf("%.3f", u[s]), CellStyle
		}
	})
}

// PolicyTable renders pi as arrows. Terminals show the sign of their utility.
func PolicyTable(g Grid, pi mdp.Policy, u mdp.Utility) string {
	return AgentTable(g, pi, u, -1)
}

// AgentTable is PolicyTable with the cell at agent highlighted.
func AgentTable(g Grid, pi mdp.Policy, u mdp.Utility, agent int) string {
	return grid(g, func(s int) (string, lipgloss.Style) {
		text, style := policyCell(g, pi, u, s)
		if s == agent {
			style = AgentStyle
		}
		return text, style
	})
}

func policyCell(g Grid, pi mdp.Policy, u mdp.Utility, s int) (string, lipgloss.Style) {
	switch g.Kind(s) {
	case mdp.Inaccessible:
		return wallGlyph, WallStyle
	case mdp.Terminal:
		switch {
		case u[s] > 0:
			return "+", GoalStyle
		case u[s] < 0:
			return "-", PitStyle
		default:
			return "0", CellStyle
		}
	default:
		return maze.Arrow(pi[s]), CellStyle
	}
}

func terminalStyle(v float64) lipgloss.Style {
	if v < 0 {
		return PitStyle
	}
	return GoalStyle
}

func grid(g Grid, cell func(s int) (string, lipgloss.Style)) string {
	rows := make([][]string, g.Rows())
	styles := make([][]lipgloss.Style, g.Rows())
	for r := range rows {
		rows[r] = make([]string, g.Cols())
		styles[r] = make([]lipgloss.Style, g.Cols())
		for c := range rows[r] {
			rows[r][c], styles[r][c] = cell(r*g.Cols() + c)
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		BorderRow(true).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 || row >= len(styles) || col >= len(styles[row]) {
				return CellStyle
			}
			return styles[row][col]
		}).
		Rows(rows...)
	return t.Render()
}

// QTable lists the action values of every accessible state.
func QTable(g Grid, q *mdp.QValues) string {
	headers := []string{"state"}
	for a := 0; a < q.NumActions(); a++ {
		headers = append(headers, maze.ActionName(mdp.Action(a)))
	}

	var rows [][]string
	for s := 0; s < q.NumStates(); s++ {
		if g.Kind(s) != mdp.Accessible {
			continue
		}
		row := []string{fmt.Sprintf("(%d,%d)", s/g.Cols(), s%g.Cols())}
		for _, v := range q.RawRowView(s) {
			row = append(row, fmt.Sprintf("%.4f", v))
		}
		rows = append(rows, row)
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return CellStyle
		}).
		Headers(headers...).
		Rows(rows...).
		Render()
}

// Summary is a one-line description of a solver call.
func Summary(name string, stats solver.Stats) string {
	return fmt.Sprintf("%s iteration on %s: %d iterations, residual %.3g, %s",
		stats.Algorithm, name, stats.Iterations, stats.Residual, stats.Elapsed)
}

// CheckTable renders a consistency report.
func CheckTable(report *solver.CheckReport) string {
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		rows = append(rows, []string{statusStyle(res.Status).Render(res.Status.String()), res.Name, res.Detail})
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return HeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("status", "property", "detail").
		Rows(rows...).
		Render()
}

func statusStyle(status solver.CheckStatus) lipgloss.Style {
	switch status {
	case solver.CheckPassed:
		return PassStyle
	case solver.CheckFailed:
		return FailStyle
	default:
		return SkipStyle
	}
}

// SimulationTable renders episode statistics. label names terminal states.
func SimulationTable(stats *simulator.Statistics, label func(s int) string) string {
	rows := [][]string{
		{"episodes", fmt.Sprintf("%d", stats.Episodes)},
		{"success rate", fmt.Sprintf("%.1f%%", 100*stats.SuccessRate)},
		{"mean return", fmt.Sprintf("%.3f ± %.3f", stats.MeanReturn, stats.StdDevReturn)},
		{"95% interval", fmt.Sprintf("[%.3f, %.3f]", stats.ReturnCI95[0], stats.ReturnCI95[1])},
		{"mean steps", fmt.Sprintf("%.1f ± %.1f", stats.MeanSteps, stats.StdDevSteps)},
	}

	terminals := make([]int, 0, len(stats.TerminalCounts))
	for s := range stats.TerminalCounts {
		terminals = append(terminals, s)
	}
	sort.Ints(terminals)
	for _, s := range terminals {
		rows = append(rows, []string{"ended at " + label(s), fmt.Sprintf("%.1f%%", 100*stats.TerminalRate(s))})
	}
	if stats.Truncated > 0 {
		rows = append(rows, []string{"truncated", fmt.Sprintf("%d", stats.Truncated)})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(BorderStyle).
		StyleFunc(func(row, col int) lipgloss.Style {
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Rows(rows...).
		Render()
}
