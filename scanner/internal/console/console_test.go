package console

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eaglebank/scanpoint/scanner/internal/reconcile"
)

type mockController struct {
	payloads []string
	confirms []string
	lists    int
	shows    int
	clears   int
}

func (m *mockController) HandlePayload(ctx context.Context, raw string) *reconcile.Task {
	m.payloads = append(m.payloads, raw)
	return nil
}

func (m *mockController) Confirm(ctx context.Context, input string) (*reconcile.Task, error) {
	m.confirms = append(m.confirms, input)
	return nil, nil
}

func (m *mockController) ListSubjects(ctx context.Context) *reconcile.Task {
	m.lists++
	return nil
}

func (m *mockController) Show()  { m.shows++ }
func (m *mockController) Clear() { m.clears++ }

func TestExec(t *testing.T) {
	tests := []struct {
		name         string
		line         string
		wantPayloads []string
		wantConfirms []string
		wantLists    int
		wantShows    int
		wantClears   int
		wantQuit     bool
		wantOut      string
	}{
		{name: "scan command", line: `scan {"id":"7","full_name":"Alice"}`, wantPayloads: []string{`{"id":"7","full_name":"Alice"}`}},
		{name: "bare payload", line: `{"id":"8"}`, wantPayloads: []string{`{"id":"8"}`}},
		{name: "scan without payload", line: "scan", wantOut: "usage: scan <payload>"},
		{name: "submit command", line: "submit -30", wantConfirms: []string{"-30"}},
		{name: "submit without value still validates", line: "submit", wantConfirms: []string{""}},
		{name: "submit non-integer is passed through", line: "submit abc", wantConfirms: []string{"abc"}},
		{name: "bare signed number", line: "+15", wantConfirms: []string{"+15"}},
		{name: "list", line: "LIST", wantLists: 1},
		{name: "show", line: "show", wantShows: 1},
		{name: "clear", line: "clear", wantClears: 1},
		{name: "help", line: "help", wantOut: "commands:"},
		{name: "quit", line: "quit", wantQuit: true},
		{name: "blank line", line: "   "},
		{name: "unknown", line: "dance", wantOut: `unknown command "dance"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{}
			var out bytes.Buffer
			quit := New(ctrl, &out).Exec(context.Background(), tt.line)

			if quit != tt.wantQuit {
				t.Errorf("[%s] expected quit=%v", tt.name, tt.wantQuit)
			}
			if strings.Join(ctrl.payloads, "|") != strings.Join(tt.wantPayloads, "|") {
				t.Errorf("[%s] payloads: expected %v got %v", tt.name, tt.wantPayloads, ctrl.payloads)
			}
			if strings.Join(ctrl.confirms, "|") != strings.Join(tt.wantConfirms, "|") || len(ctrl.confirms) != len(tt.wantConfirms) {
				t.Errorf("[%s] confirms: expected %q got %q", tt.name, tt.wantConfirms, ctrl.confirms)
			}
			if ctrl.lists != tt.wantLists || ctrl.shows != tt.wantShows || ctrl.clears != tt.wantClears {
				t.Errorf("[%s] unexpected calls: %+v", tt.name, ctrl)
			}
			if tt.wantOut != "" && !strings.Contains(out.String(), tt.wantOut) {
				t.Errorf("[%s] expected output containing %q, got %q", tt.name, tt.wantOut, out.String())
			}
		})
	}
}

func TestRunStopsAtQuit(t *testing.T) {
	ctrl := &mockController{}
	in := strings.NewReader("list\n5\nquit\nlist\n")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := New(ctrl, &bytes.Buffer{}).Run(ctx, in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl.lists != 1 || len(ctrl.confirms) != 1 {
		t.Errorf("expected commands after quit to be ignored, got %+v", ctrl)
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	ctrl := &mockController{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := New(ctrl, &bytes.Buffer{}).Run(ctx, strings.NewReader("show\n")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ctrl.shows != 1 {
		t.Errorf("expected 1 show, got %d", ctrl.shows)
	}
}
