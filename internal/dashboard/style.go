package dashboard

import "github.com/charmbracelet/lipgloss"

var (
	borderASCII = lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	paneStyle  = lipgloss.NewStyle().Border(borderASCII).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230"))
	clockStyle = lipgloss.NewStyle().Bold(true).Padding(0, 2)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	doneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242")).Strikethrough(true)
	userStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))

	phaseStyles = map[string]lipgloss.Style{
		"focus":       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		"short_break": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("79")),
		"long_break":  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		"":            lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250")),
	}
)
