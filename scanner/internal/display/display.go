// Package display renders controller output as plain text lines.
package display

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Terminal writes one line per message to w. Errors are prefixed so they
// stand out in a scrolling console.
type Terminal struct {
	mu         sync.Mutex
	w          io.Writer
	timestamps bool
	now        func() time.Time
}

func NewTerminal(w io.Writer, timestamps bool) *Terminal {
	return &Terminal{w: w, timestamps: timestamps, now: time.Now}
}

func (t *Terminal) ShowStatus(msg string) {
	t.write("", msg)
}

func (t *Terminal) ShowError(msg string) {
	t.write("! ", msg)
}

func (t *Terminal) write(prefix, msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	line := prefix + msg
	if t.timestamps {
		line = t.now().Format("15:04:05") + " " + line
	}
	if _, err := fmt.Fprintln(t.w, line); err != nil {
		slog.Error("display write failed", "error", err)
	}
}
