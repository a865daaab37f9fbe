package render

import "github.com/charmbracelet/lipgloss"

// Cell styles shared by every table.
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1)

	CellStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1).
			Align(lipgloss.Right)

	WallStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262")).
			Padding(0, 1)

	GoalStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true).
			Padding(0, 1).
			Align(lipgloss.Right)

	PitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true).
			Padding(0, 1).
			Align(lipgloss.Right)

	AgentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFD700")).
			Bold(true).
			Padding(0, 1)

	BorderStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7D56F4"))

	PassStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	FailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	SkipStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7"))
)
