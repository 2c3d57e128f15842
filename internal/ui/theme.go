package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/linever/internal/config"
)

// Catppuccin Mocha palette.
const (
	defaultGreen  = "#a6e3a1"
	defaultBlue   = "#89b4fa"
	defaultYellow = "#f9e2af"
	defaultRed    = "#f38ba8"
	defaultMuted  = "#5a6278"
)

// Theme holds the styles used for report status tags.
type Theme struct {
	Unchanged lipgloss.Style
	Modified  lipgloss.Style
	Missing   lipgloss.Style
	New       lipgloss.Style
	Detail    lipgloss.Style
}

// NewTheme builds a Theme from the default palette with any overrides from
// the config file applied.
func NewTheme(tc config.ThemeConfig) *Theme {
	pick := func(override *string, fallback string) lipgloss.Color {
		if override != nil {
			return lipgloss.Color(*override)
		}
		return lipgloss.Color(fallback)
	}

	return &Theme{
		Unchanged: lipgloss.NewStyle().Foreground(pick(tc.Green, defaultGreen)),
		Modified:  lipgloss.NewStyle().Foreground(pick(tc.Yellow, defaultYellow)).Bold(true),
		Missing:   lipgloss.NewStyle().Foreground(pick(tc.Red, defaultRed)).Bold(true),
		New:       lipgloss.NewStyle().Foreground(pick(tc.Blue, defaultBlue)),
		Detail:    lipgloss.NewStyle().Foreground(pick(tc.Muted, defaultMuted)),
	}
}
