package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Palette. Adaptive colors keep the output readable on light terminals.
var (
	AccentColor  = lipgloss.AdaptiveColor{Light: "#5A3FC0", Dark: "#8C6CFF"}
	OkayColor    = lipgloss.AdaptiveColor{Light: "#1E8A44", Dark: "#43BF6D"}
	FailColor    = lipgloss.AdaptiveColor{Light: "#C62828", Dark: "#FF5F5F"}
	CautionColor = lipgloss.AdaptiveColor{Light: "#B26A00", Dark: "#FFB347"}
	MutedColor   = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
	TextColor    = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#EDEDED"}
)

// Output is kept between these widths regardless of the terminal.
const (
	MinTerminalWidth = 60
	MaxContentWidth  = 100
)

var (
	bold  = lipgloss.NewStyle().Bold(true)
	plain = lipgloss.NewStyle().Foreground(TextColor)

	MutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	SpinnerStyle = lipgloss.NewStyle().Foreground(AccentColor)

	HeaderTitleStyle = bold.Foreground(TextColor).PaddingLeft(2)
	HeaderMetaStyle  = MutedStyle.PaddingLeft(2)

	ResultKeyStyle = MutedStyle.Width(15)
	ErrorTextStyle = lipgloss.NewStyle().Foreground(FailColor)

	TableHeaderStyle = bold.Foreground(AccentColor)
	TableCellStyle   = plain
)

// Markers prefixed to result titles.
const (
	SuccessMarker = "✓"
	FailureMarker = "✗"
	WarningMarker = "⚠"
)

// IsInteractive reports whether f is a terminal.
func IsInteractive(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// GetTerminalWidth returns the stdout width clamped to the supported range.
// Non-terminals get MinTerminalWidth.
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return MinTerminalWidth
	}
	return clampWidth(width)
}

func clampWidth(width int) int {
	return min(max(width, MinTerminalWidth), MaxContentWidth)
}

// RenderHorizontalDivider repeats char width times in the accent color.
func RenderHorizontalDivider(width int, char string) string {
	return lipgloss.NewStyle().Foreground(AccentColor).Render(strings.Repeat(char, max(width, 0)))
}
