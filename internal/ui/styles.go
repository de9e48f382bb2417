package ui

import "github.com/charmbracelet/lipgloss"

// 门户配色，亮/暗终端自适应。
var (
	colorSpirit  = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#5EEAD4"}
	colorEmber   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FBBF24"}
	colorBlood   = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FB7185"}
	colorText    = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#CDD6F4"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}
	colorSurface = lipgloss.AdaptiveColor{Light: "#F5F5F5", Dark: "#181825"}
)

// Styles groups the rendered pieces of the portal screen.
type Styles struct {
	Title     lipgloss.Style
	Tagline   lipgloss.Style
	Header    lipgloss.Style
	User      lipgloss.Style
	Floating  lipgloss.Style
	Persona   lipgloss.Style
	Timestamp lipgloss.Style
	Status    lipgloss.Style
	Recording lipgloss.Style
	Problem   lipgloss.Style
	Help      lipgloss.Style
	Input     lipgloss.Style
	Modal     lipgloss.Style
}

// DefaultStyles returns the portal theme.
func DefaultStyles() Styles {
	return Styles{
		Title:     lipgloss.NewStyle().Bold(true).Foreground(colorSpirit),
		Tagline:   lipgloss.NewStyle().Italic(true).Foreground(colorMuted),
		Header:    lipgloss.NewStyle().Background(colorSurface).Padding(0, 1),
		User:      lipgloss.NewStyle().Foreground(colorText),
		Floating:  lipgloss.NewStyle().Foreground(colorText).Italic(true),
		Persona:   lipgloss.NewStyle().Foreground(colorSpirit),
		Timestamp: lipgloss.NewStyle().Foreground(colorMuted),
		Status:    lipgloss.NewStyle().Foreground(colorMuted),
		Recording: lipgloss.NewStyle().Bold(true).Foreground(colorBlood),
		Problem:   lipgloss.NewStyle().Foreground(colorEmber),
		Help:      lipgloss.NewStyle().Foreground(colorMuted),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSpirit).
			Padding(0, 1),
		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlood).
			Padding(1, 2),
	}
}
