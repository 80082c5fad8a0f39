package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"worktrack/internal/session"
)

var (
	colorRed    = lipgloss.Color("#FF5F5F")
	colorGreen  = lipgloss.Color("#5FD75F")
	colorYellow = lipgloss.Color("#FFD75F")
	colorBlue   = lipgloss.Color("#5FAFFF")
	colorCyan   = lipgloss.Color("#00D7D7")
	colorGray   = lipgloss.Color("#808080")
	colorWhite  = lipgloss.Color("#FFFFFF")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorCyan)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorWhite)

	payableStyle = lipgloss.NewStyle().
			Foreground(colorGreen).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			MarginTop(1)

	timestampStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed).
			Bold(true)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Bold(true)

	footerDescStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorGray).
			Padding(0, 1)
)

// stateBadge renders the session state as a colored pill.
func stateBadge(s session.State) string {
	color := colorGray
	switch s {
	case session.Working:
		color = colorGreen
	case session.NormalBreak:
		color = colorBlue
	case session.OfficeBreak:
		color = colorCyan
	case session.Inactive:
		color = colorRed
	}
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#000000")).
		Background(color).
		Padding(0, 1).
		Render(string(s))
}
