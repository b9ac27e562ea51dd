// Package color provides the semantic terminal styles used by the report
// renderer. Colors adapt to dark and light backgrounds and degrade to plain
// text where the terminal (or NO_COLOR) disables color; lipgloss handles the
// capability detection.
package color

import "github.com/charmbracelet/lipgloss"

// Semantic styles for report output. Initialized for a dark background;
// call Initialize to re-derive them after background detection.
var (
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Muted   lipgloss.Style
)

func init() {
	Initialize(lipgloss.HasDarkBackground())
}

// Initialize rebuilds the style set for the given background mode.
func Initialize(isDarkMode bool) {
	lipgloss.SetHasDarkBackground(isDarkMode)

	Header = lipgloss.NewStyle().Bold(true)
	Success = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "28", Dark: "42"})
	Warning = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "130", Dark: "214"})
	Error = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "124", Dark: "196"}).Bold(true)
	Info = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "25", Dark: "39"})
	Muted = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "245", Dark: "240"})
}
