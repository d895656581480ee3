package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/qdash/pkg/model"
	"github.com/vanderheijden86/qdash/pkg/reconcile"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// StatusFg returns the chart color for a status as a terminal color. On
// 16-color terminals the three known statuses map to their nearest ANSI
// colors so slices stay distinguishable.
func StatusFg(s model.Status) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		switch s {
		case model.StatusCompleted:
			return lipgloss.ANSIColor(2)
		case model.StatusQueued:
			return lipgloss.ANSIColor(3)
		case model.StatusRejected:
			return lipgloss.ANSIColor(1)
		default:
			return lipgloss.ANSIColor(7)
		}
	}
	return lipgloss.Color(reconcile.ColorFor(s))
}

// SliceFg returns the color of slice i as carried in the chart data. Below
// ANSI256 it falls back to StatusFg's nearest ANSI color.
func SliceFg(data reconcile.ChartData, i int) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 || i >= len(data.Colors) || data.Colors[i] == "" {
		return StatusFg(model.Status(data.Labels[i]))
	}
	return lipgloss.Color(data.Colors[i])
}

type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	Base     lipgloss.Style
	Header   lipgloss.Style
	Title    lipgloss.Style
	Panel    lipgloss.Style
	Modal    lipgloss.Style
	Notice   lipgloss.Style
	Footer   lipgloss.Style
	Spinner  lipgloss.Style
	Selected lipgloss.Style

	MutedText lipgloss.Style
	WarnText  lipgloss.Style
	ErrorText lipgloss.Style
	OKText    lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive).
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   ColorPrimary,
		Secondary: ColorSecondary,
		Subtext:   ColorSubtext,

		Border:    ColorBgHighlight,
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     ColorMuted,
	}

	t.Base = r.NewStyle().Foreground(ColorText)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Title = r.NewStyle().Foreground(t.Primary).Bold(true)

	t.Panel = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	t.Modal = r.NewStyle().
		Border(lipgloss.ThickBorder()).
		BorderForeground(ColorDanger).
		Padding(1, 3)

	t.Notice = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.Footer = r.NewStyle().Foreground(t.Subtext)
	t.Spinner = r.NewStyle().Foreground(ColorInfo).Bold(true)
	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Foreground(ColorText).
		Bold(true)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.WarnText = r.NewStyle().Foreground(ColorWarning)
	t.ErrorText = r.NewStyle().Foreground(ColorDanger).Bold(true)
	t.OKText = r.NewStyle().Foreground(ColorSuccess)

	return t
}

// ForMode pins the theme to light or dark backgrounds. "auto" (or empty)
// leaves detection to the renderer.
func ForMode(r *lipgloss.Renderer, mode string) Theme {
	switch mode {
	case "dark":
		r.SetHasDarkBackground(true)
	case "light":
		r.SetHasDarkBackground(false)
	}
	return DefaultTheme(r)
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
