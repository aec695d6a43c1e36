// Package console turns operator command lines into controller calls.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/eaglebank/scanpoint/scanner/internal/reconcile"
)

// Controller is the subset of *reconcile.Controller the console drives.
type Controller interface {
	HandlePayload(ctx context.Context, raw string) *reconcile.Task
	Confirm(ctx context.Context, input string) (*reconcile.Task, error)
	ListSubjects(ctx context.Context) *reconcile.Task
	Show()
	Clear()
}

const usage = `commands:
  scan <payload>   use <payload> as if it had been scanned
  submit <delta>   apply a signed integer delta (a bare number works too)
  list             list every subject
  show             show the current subject
  clear            forget the current subject
  help             this text
  quit             exit`

type Console struct {
	ctrl Controller
	out  io.Writer
}

func New(ctrl Controller, out io.Writer) *Console {
	return &Console{ctrl: ctrl, out: out}
}

// Run reads commands from r until EOF, quit, or ctx ends. Commands never
// wait for the network; results arrive through the display.
func (c *Console) Run(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	errc := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return <-errc
			}
			if quit := c.Exec(ctx, line); quit {
				return nil
			}
		}
	}
}

// Exec runs a single command line and reports whether it asked to quit.
func (c *Console) Exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "scan":
		if arg == "" {
			fmt.Fprintln(c.out, "usage: scan <payload>")
			return false
		}
		c.ctrl.HandlePayload(ctx, arg)
	case "submit", "s":
		c.confirm(ctx, arg)
	case "list", "ls":
		c.ctrl.ListSubjects(ctx)
	case "show":
		c.ctrl.Show()
	case "clear":
		c.ctrl.Clear()
	case "help", "?":
		fmt.Fprintln(c.out, usage)
	case "quit", "exit", "q":
		return true
	default:
		if strings.HasPrefix(line, "{") {
			c.ctrl.HandlePayload(ctx, line)
			return false
		}
		if isNumeric(line) {
			c.confirm(ctx, line)
			return false
		}
		fmt.Fprintf(c.out, "unknown command %q (try help)\n", cmd)
	}
	return false
}

func (c *Console) confirm(ctx context.Context, input string) {
	if _, err := c.ctrl.Confirm(ctx, input); err != nil {
		slog.Debug("confirmation rejected", "input", input, "error", err)
	}
}

func isNumeric(s string) bool {
	s = strings.TrimLeft(s, "+-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
