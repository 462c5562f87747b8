package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/aio-mgr/aiomgr/internal/wire"
)

// ResultType selects the framing of a Result box.
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
	ResultWarning
)

type resultLook struct {
	label  string
	marker string
	color  lipgloss.TerminalColor
}

var resultLooks = map[ResultType]resultLook{
	ResultSuccess: {"SUCCESS", SuccessMarker, OkayColor},
	ResultFailure: {"FAILED", FailureMarker, FailColor},
	ResultWarning: {"WARNING", WarningMarker, CautionColor},
}

// Result is a bordered box reporting the outcome of a command.
type Result struct {
	Type            ResultType
	Title           string
	Details         map[string]string // rendered in key order
	Error           error
	Troubleshooting []string
	Width           int
}

func newResult(typ ResultType, title string) *Result {
	return &Result{Type: typ, Title: title, Width: GetTerminalWidth()}
}

func NewSuccessResult(title string, details map[string]string) *Result {
	r := newResult(ResultSuccess, title)
	r.Details = details
	return r
}

// NewFailureResult reports err with optional troubleshooting hints.
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	r := newResult(ResultFailure, title)
	r.Error = err
	r.Troubleshooting = troubleshooting
	return r
}

func NewWarningResult(title string, details map[string]string) *Result {
	r := newResult(ResultWarning, title)
	r.Details = details
	return r
}

// NewResponseResult presents a device response. OKAY renders as success,
// anything else as failure. The status goes in the title; every other key
// becomes a detail line.
func NewResponseResult(title string, resp wire.Response) *Result {
	typ := ResultFailure
	if resp.OK() {
		typ = ResultSuccess
	}
	r := newResult(typ, fmt.Sprintf("%s (%s)", title, resp.Status()))
	for _, key := range resp.Keys() {
		if key != wire.KeyStatus {
			r.AddDetail(key, fmt.Sprint(resp[key]))
		}
	}
	return r
}

func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

func (r *Result) AddDetail(key, value string) *Result {
	if r.Details == nil {
		r.Details = make(map[string]string)
	}
	r.Details[key] = value
	return r
}

func (r *Result) Render() string {
	look, ok := resultLooks[r.Type]
	if !ok {
		look = resultLooks[ResultSuccess]
	}
	width := clampWidth(r.Width)

	title := bold.Foreground(look.color).
		Render(fmt.Sprintf("   %s  %s  ─  %s", look.marker, look.label, r.Title))

	var b strings.Builder
	b.WriteString("\n" + title + "\n\n")
	for _, key := range sortedKeys(r.Details) {
		b.WriteString(ResultKeyStyle.Render("   "+key+":") + " " + plain.Render(r.Details[key]) + "\n")
	}
	if len(r.Details) > 0 {
		b.WriteString("\n")
	}
	if r.Error != nil {
		b.WriteString(ErrorTextStyle.Render("   Error: "+r.Error.Error()) + "\n\n")
	}
	if len(r.Troubleshooting) > 0 {
		b.WriteString(renderHints(r.Troubleshooting, width) + "\n\n")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(look.color).
		Width(width-2).
		Padding(0, 2).
		Render(strings.TrimSuffix(b.String(), "\n"))
}

func (r *Result) String() string {
	return r.Render()
}

func renderHints(hints []string, width int) string {
	lines := make([]string, 0, len(hints)+2)
	lines = append(lines, bold.Foreground(MutedColor).Render("Troubleshooting:"), "")
	for _, h := range hints {
		lines = append(lines, MutedStyle.Render("  • "+h))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Width(max(width-12, 40)).
		Padding(0, 1).
		MarginLeft(3).
		Render(strings.Join(lines, "\n"))
}

// RenderSuccess is shorthand for NewSuccessResult(...).Render().
func RenderSuccess(title string, details map[string]string) string {
	return NewSuccessResult(title, details).Render()
}

// RenderFailure is shorthand for NewFailureResult(...).Render().
func RenderFailure(title string, err error, troubleshooting []string) string {
	return NewFailureResult(title, err, troubleshooting).Render()
}
