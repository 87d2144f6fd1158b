package render

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/elonfeng/clusterboard/pkg/rank"
)

// Colors used across the output.
var (
	colorPrimary   = lipgloss.Color("62")  // Purple
	colorSecondary = lipgloss.Color("241") // Gray
	colorMuted     = lipgloss.Color("240") // Darker gray
	colorHigh      = lipgloss.Color("78")  // Green
	colorMedium    = lipgloss.Color("220") // Yellow
	colorLow       = lipgloss.Color("208") // Orange
	colorError     = lipgloss.Color("196") // Red
)

// Header style for section titles.
var Header = lipgloss.NewStyle().
	Bold(true).
	Foreground(colorPrimary)

// Muted style for hidden rows and secondary text.
var Muted = lipgloss.NewStyle().
	Foreground(colorMuted)

// Secondary style for descriptions.
var Secondary = lipgloss.NewStyle().
	Foreground(colorSecondary)

// Warning style for service advisories.
var Warning = lipgloss.NewStyle().
	Foreground(colorMedium).
	Italic(true)

// ErrorStyle for displaying errors.
var ErrorStyle = lipgloss.NewStyle().
	Foreground(colorError).
	Bold(true)

// Selected style for the row under the cursor.
var Selected = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorPrimary)

var tierStyles = map[rank.Tier]lipgloss.Style{
	rank.TierHigh:   lipgloss.NewStyle().Foreground(colorHigh).Bold(true),
	rank.TierMedium: lipgloss.NewStyle().Foreground(colorMedium),
	rank.TierLow:    lipgloss.NewStyle().Foreground(colorLow),
	rank.TierZero:   lipgloss.NewStyle().Foreground(colorMuted),
}

// TierStyle returns the style for a score tier.
func TierStyle(t rank.Tier) lipgloss.Style {
	if s, ok := tierStyles[t]; ok {
		return s
	}
	return lipgloss.NewStyle()
}

var badgeColors = map[string]lipgloss.Color{
	"A": colorHigh,
	"B": lipgloss.Color("114"),
	"C": colorMedium,
	"D": colorLow,
	"E": colorError,
}

// BadgeStyle returns the style for a grade badge class.
func BadgeStyle(badge string) lipgloss.Style {
	s := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("0")).
		Padding(0, 1)
	if c, ok := badgeColors[badge]; ok {
		return s.Background(c)
	}
	return s.Background(colorSecondary)
}
