package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// ScanFunc performs the work shown by the spinner.
type ScanFunc func(ctx context.Context) error

type scanDoneMsg struct {
	err error
}

// ScanModel shows a spinner with elapsed time until its ScanFunc returns.
type ScanModel struct {
	spinner spinner.Model
	label   string
	start   time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	fn      ScanFunc

	done        bool
	interrupted bool
	err         error
}

// NewScanModel creates a model that runs fn under ctx.
func NewScanModel(ctx context.Context, label string, fn ScanFunc) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	ctx, cancel := context.WithCancel(ctx)
	return ScanModel{
		spinner: s,
		label:   label,
		start:   time.Now(),
		ctx:     ctx,
		cancel:  cancel,
		fn:      fn,
	}
}

// Init implements tea.Model
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.run)
}

func (m ScanModel) run() tea.Msg {
	return scanDoneMsg{err: m.fn(m.ctx)}
}

// Update implements tea.Model
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case scanDoneMsg:
		m.done = true
		m.err = msg.err
		m.cancel()
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			// The scan returns promptly once its context is cancelled.
			m.interrupted = true
			m.cancel()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model
func (m ScanModel) View() string {
	if m.done {
		return ""
	}
	elapsed := time.Since(m.start).Truncate(100 * time.Millisecond)
	status := fmt.Sprintf("%s %s %s", m.spinner.View(), m.label, MutedStyle.Render(elapsed.String()))
	if m.interrupted {
		status += MutedStyle.Render("  (stopping)")
	}
	return "  " + status + "\n"
}

// Err returns the ScanFunc's error once done.
func (m ScanModel) Err() error {
	return m.err
}

// Interrupted reports whether the user cancelled the scan.
func (m ScanModel) Interrupted() bool {
	return m.interrupted
}

// RunScan runs fn, animating a spinner on out when interactive is true.
func RunScan(ctx context.Context, label string, out io.Writer, interactive bool, fn ScanFunc) error {
	if !interactive {
		return fn(ctx)
	}

	model := NewScanModel(ctx, label, fn)
	defer model.cancel()

	final, err := tea.NewProgram(model, tea.WithOutput(out)).Run()
	if err != nil {
		return fmt.Errorf("scan display failed: %w", err)
	}
	m := final.(ScanModel)
	if m.interrupted && m.err == nil {
		return context.Canceled
	}
	return m.err
}
