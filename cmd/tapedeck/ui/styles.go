// Package ui is the bubbletea front panel of the tape deck.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the panel colors.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Warning    lipgloss.Color
	Danger     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light panel.
func LightTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#101F38"),
		Primary:    lipgloss.Color("#101F38"),
		Accent:     lipgloss.Color("#8BC34A"),
		Muted:      lipgloss.Color("#6b7280"),
		Border:     lipgloss.Color("#dce0e5"),
		Warning:    lipgloss.Color("#FFC107"),
		Danger:     lipgloss.Color("#e53935"),
	}
}

// DarkTheme returns the dark panel.
func DarkTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#f2f2f2"),
		Primary:    lipgloss.Color("#8BC34A"),
		Accent:     lipgloss.Color("#4db6ac"),
		Muted:      lipgloss.Color("#8a96a8"),
		Border:     lipgloss.Color("#2a3850"),
		Warning:    lipgloss.Color("#FFC107"),
		Danger:     lipgloss.Color("#e53935"),
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG ("fg;bg"), then from
// TAPEDECK_THEME, defaulting to dark.
func DetectTheme() Theme {
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil {
			if (bg >= 0 && bg <= 6) || bg == 8 {
				return DarkTheme()
			}
			return LightTheme()
		}
	}
	if strings.EqualFold(os.Getenv("TAPEDECK_THEME"), "light") {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles are the lipgloss styles of the panel.
type Styles struct {
	Theme Theme

	Panel    lipgloss.Style
	Title    lipgloss.Style
	Label    lipgloss.Style
	Display  lipgloss.Style
	Key      lipgloss.Style
	Value    lipgloss.Style
	Muted    lipgloss.Style
	Tape     lipgloss.Style
	Head     lipgloss.Style
	Current  lipgloss.Style
	Target   lipgloss.Style
	Info     lipgloss.Style
	Warn     lipgloss.Style
	Status   lipgloss.Style
	ErrorMsg lipgloss.Style
}

// NewStyles builds the panel styles for theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			Padding(0, 1),
		Title:    lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Label:    lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Display:  lipgloss.NewStyle().Bold(true).Foreground(theme.Foreground),
		Key:      lipgloss.NewStyle().Foreground(theme.Muted).Width(11),
		Value:    lipgloss.NewStyle().Foreground(theme.Foreground),
		Muted:    lipgloss.NewStyle().Foreground(theme.Muted),
		Tape:     lipgloss.NewStyle().Foreground(theme.Border),
		Head:     lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Current:  lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		Target:   lipgloss.NewStyle().Underline(true).Foreground(theme.Accent),
		Info:     lipgloss.NewStyle().Foreground(theme.Muted),
		Warn:     lipgloss.NewStyle().Foreground(theme.Warning),
		Status:   lipgloss.NewStyle().Italic(true).Foreground(theme.Muted),
		ErrorMsg: lipgloss.NewStyle().Foreground(theme.Danger),
	}
}
