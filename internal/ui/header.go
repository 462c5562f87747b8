package ui

import (
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Header is the boxed banner printed before long-running commands: an
// uppercased title, the command line, and key/value parameters.
type Header struct {
	Title   string
	Command string
	Params  map[string]string // rendered in key order
	Width   int
}

func NewHeader(title, command string, params map[string]string) *Header {
	return &Header{Title: title, Command: command, Params: params, Width: GetTerminalWidth()}
}

func (h *Header) SetWidth(width int) *Header {
	h.Width = width
	return h
}

func (h *Header) Render() string {
	width := clampWidth(h.Width)

	parts := []string{
		HeaderTitleStyle.Render(strings.ToUpper(h.Title)),
		HeaderMetaStyle.Render(h.Command),
	}
	if len(h.Params) > 0 {
		parts = append(parts, RenderHorizontalDivider(width-6, "─"))
		for _, key := range sortedKeys(h.Params) {
			parts = append(parts, HeaderMetaStyle.Render(key+":")+" "+plain.Render(h.Params[key]))
		}
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Width(width - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (h *Header) String() string {
	return h.Render()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
