package tui

import "github.com/charmbracelet/lipgloss"

func ac(light, dark string) lipgloss.AdaptiveColor {
	return lipgloss.AdaptiveColor{Light: light, Dark: dark}
}

var (
	colorMuted      = ac("240", "243")
	colorAccent     = ac("27", "62")
	colorSelectedBg = ac("#e9e9e9", "#262626")
	colorSelectedFg = ac("235", "255")
	colorError      = ac("160", "203")
	colorWarning    = ac("130", "214")

	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorMuted)
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(2).Bold(true).
			Foreground(colorSelectedFg).Background(colorSelectedBg)
	pathStyle    = lipgloss.NewStyle().Foreground(colorMuted)
	emptyStyle   = lipgloss.NewStyle().Foreground(colorMuted).Italic(true).PaddingLeft(2)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning)
	footerStyle  = lipgloss.NewStyle().Faint(true)
	labelStyle   = lipgloss.NewStyle().Width(8).Foreground(colorMuted)

	tableHeaderStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	tableCellStyle   = lipgloss.NewStyle().Padding(0, 1)

	buttonStyle        = lipgloss.NewStyle().Padding(0, 1).Foreground(colorMuted)
	buttonFocusedStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).
				Foreground(colorSelectedFg).Background(colorAccent)
)
