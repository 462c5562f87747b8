package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DeviceRow is one line of a device table.
type DeviceRow struct {
	Name     string
	Address  string
	LastSeen time.Time // zero hides the column value
}

// DeviceTable renders rows as an aligned table.
type DeviceTable struct {
	Title string
	Rows  []DeviceRow
	Width int
}

// NewDeviceTable creates a table sized to the terminal.
func NewDeviceTable(title string, rows []DeviceRow) *DeviceTable {
	return &DeviceTable{Title: title, Rows: rows, Width: GetTerminalWidth()}
}

// Render returns the styled table.
func (t *DeviceTable) Render() string {
	if len(t.Rows) == 0 {
		return MutedStyle.Render("  No devices found.")
	}

	nameWidth, addrWidth := len("NAME"), len("ADDRESS")
	showSeen := false
	for _, row := range t.Rows {
		nameWidth = max(nameWidth, lipgloss.Width(displayName(row.Name)))
		addrWidth = max(addrWidth, lipgloss.Width(row.Address))
		if !row.LastSeen.IsZero() {
			showSeen = true
		}
	}

	cell := func(s string, w int) string {
		return s + strings.Repeat(" ", max(0, w-lipgloss.Width(s)))
	}

	var lines []string
	if t.Title != "" {
		lines = append(lines, HeaderTitleStyle.Render(t.Title), "")
	}

	header := "  " + cell("NAME", nameWidth) + "  " + cell("ADDRESS", addrWidth)
	if showSeen {
		header += "  LAST SEEN"
	}
	lines = append(lines, TableHeaderStyle.Render(header))

	for _, row := range t.Rows {
		line := "  " + cell(displayName(row.Name), nameWidth) + "  " + cell(row.Address, addrWidth)
		if showSeen && !row.LastSeen.IsZero() {
			line += "  " + row.LastSeen.Local().Format(time.DateTime)
		}
		lines = append(lines, TableCellStyle.Render(line))
	}

	lines = append(lines, "", MutedStyle.Render(fmt.Sprintf("  %d device(s)", len(t.Rows))))
	return strings.Join(lines, "\n")
}

// String implements fmt.Stringer
func (t *DeviceTable) String() string {
	return t.Render()
}

func displayName(name string) string {
	if name == "" {
		return "-"
	}
	return name
}
