package ui

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/aio-mgr/aiomgr/internal/wire"
)

func TestHeaderRender(t *testing.T) {
	h := NewHeader("Device scan", "aio-mgr scan aio*", map[string]string{
		"Tries":   "3",
		"Pattern": "aio*",
	}).SetWidth(80)

	out := h.Render()
	if !strings.Contains(out, "DEVICE SCAN") {
		t.Errorf("header should contain uppercased title, got:\n%s", out)
	}
	if !strings.Contains(out, "aio-mgr scan aio*") {
		t.Error("header should contain command")
	}
	if strings.Index(out, "Pattern:") > strings.Index(out, "Tries:") {
		t.Error("params should be rendered in key order")
	}
}

func TestResultRender(t *testing.T) {
	tests := []struct {
		name   string
		result *Result
		want   []string
	}{
		{
			name:   "success",
			result: NewSuccessResult("Saved", map[string]string{"Devices": "2"}),
			want:   []string{"SUCCESS", "Saved", "Devices:", "2"},
		},
		{
			name:   "failure",
			result: NewFailureResult("Connect failed", errors.New("refused"), []string{"Check the port"}),
			want:   []string{"FAILED", "Connect failed", "refused", "Troubleshooting:", "Check the port"},
		},
		{
			name:   "warning",
			result: NewWarningResult("No devices", nil),
			want:   []string{"WARNING", "No devices"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.result.SetWidth(80).Render()
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("Render() missing %q in:\n%s", w, out)
				}
			}
		})
	}
}

func TestNewResponseResult(t *testing.T) {
	ok := NewResponseResult("ping", wire.OK("reply", "pong", wire.KeyID, uint64(2)))
	if ok.Type != ResultSuccess {
		t.Errorf("OKAY response Type = %v, want success", ok.Type)
	}
	if ok.Details["reply"] != "pong" || ok.Details["id"] != "2" {
		t.Errorf("Details = %v", ok.Details)
	}
	if _, has := ok.Details[wire.KeyStatus]; has {
		t.Error("status should be in the title, not the details")
	}
	if !strings.Contains(ok.Title, "OKAY") {
		t.Errorf("Title = %q, want status", ok.Title)
	}

	denied := NewResponseResult("connect", wire.NewResponse(wire.StatusDenied, wire.KeyError, "invalid token"))
	if denied.Type != ResultFailure {
		t.Errorf("DENIED response Type = %v, want failure", denied.Type)
	}
}

func TestDeviceTable(t *testing.T) {
	table := NewDeviceTable("Devices", []DeviceRow{
		{Name: "aio-lab-1", Address: "192.168.1.40:5312"},
		{Name: "", Address: "10.0.0.9:5312", LastSeen: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	})

	out := table.Render()
	for _, w := range []string{"NAME", "ADDRESS", "LAST SEEN", "aio-lab-1", "192.168.1.40:5312", "2 device(s)"} {
		if !strings.Contains(out, w) {
			t.Errorf("Render() missing %q in:\n%s", w, out)
		}
	}

	empty := NewDeviceTable("", nil).Render()
	if !strings.Contains(empty, "No devices found") {
		t.Errorf("empty table = %q", empty)
	}
}

func TestScanModelDone(t *testing.T) {
	m := NewScanModel(context.Background(), "Scanning", func(context.Context) error { return nil })

	if view := m.View(); !strings.Contains(view, "Scanning") {
		t.Errorf("View() = %q, want label", view)
	}

	wantErr := errors.New("boom")
	next, cmd := m.Update(scanDoneMsg{err: wantErr})
	sm := next.(ScanModel)
	if !errors.Is(sm.Err(), wantErr) {
		t.Errorf("Err() = %v, want %v", sm.Err(), wantErr)
	}
	if cmd == nil {
		t.Fatal("done message should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("done message should return tea.Quit")
	}
	if sm.View() != "" {
		t.Error("View() should be empty once done")
	}
}

func TestScanModelInterrupt(t *testing.T) {
	m := NewScanModel(context.Background(), "Scanning", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	sm := next.(ScanModel)
	if !sm.Interrupted() {
		t.Error("ctrl+c should mark the scan interrupted")
	}
	if sm.ctx.Err() == nil {
		t.Error("ctrl+c should cancel the scan context")
	}
	if msg := sm.run(); msg.(scanDoneMsg).err != nil {
		t.Errorf("run() err = %v", msg.(scanDoneMsg).err)
	}
	if !strings.Contains(sm.View(), "stopping") {
		t.Error("View() should show stopping state")
	}
}

func TestScanModelTick(t *testing.T) {
	m := NewScanModel(context.Background(), "Scanning", func(context.Context) error { return nil })
	_, cmd := m.Update(spinner.TickMsg{ID: m.spinner.ID()})
	if cmd == nil {
		t.Error("spinner tick should schedule the next tick")
	}
}

func TestRunScanNonInteractive(t *testing.T) {
	called := false
	err := RunScan(context.Background(), "Scanning", io.Discard, false, func(context.Context) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("RunScan() error = %v", err)
	}
	if !called {
		t.Error("RunScan() should call fn")
	}
}
