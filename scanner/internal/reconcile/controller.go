// Package reconcile drives the scan, fetch and submit workflow.
//
// Decoding is synchronous and happens once per Tick. Every gateway call runs
// on its own goroutine and reports back through a Task; results that arrive
// after the operator moved on to another subject are discarded. The balance
// on screen only ever comes from the server.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eaglebank/scanpoint/scanner/internal/frames"
	"github.com/eaglebank/scanpoint/scanner/internal/gateway"
	"github.com/eaglebank/scanpoint/scanner/internal/payload"
	"github.com/eaglebank/scanpoint/scanner/internal/session"
	"github.com/eaglebank/scanpoint/shared/models"
	"github.com/eaglebank/scanpoint/shared/utils"
)

type Decoder interface {
	TryDecode(frame *frames.Frame) (string, bool)
}

type Gateway interface {
	FetchSubject(ctx context.Context, id string) (models.SubjectView, error)
	FetchAllSubjects(ctx context.Context) ([]models.SubjectView, error)
	SubmitDelta(ctx context.Context, req gateway.TransactionRequest) (gateway.TransactionResult, error)
}

// Display receives plain text only.
type Display interface {
	ShowStatus(msg string)
	ShowError(msg string)
}

type Option func(*Controller)

// WithRescanInterval ignores a payload identical to the previous one seen
// less than d ago. Zero disables the check.
func WithRescanInterval(d time.Duration) Option {
	return func(c *Controller) { c.rescan = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithRequestIDs overrides how confirmation idempotency keys are generated.
func WithRequestIDs(next func() string) Option {
	return func(c *Controller) { c.newRequestID = next }
}

type Controller struct {
	decoder Decoder
	gateway Gateway
	display Display
	session *session.Session

	rescan       time.Duration
	now          func() time.Time
	newRequestID func() string

	// mu orders result application against scans and confirmations.
	mu          sync.Mutex
	gen         uint64
	awaiting    bool
	submitting  bool
	shown       *session.Subject
	lastPayload string
	lastSeen    time.Time

	wg sync.WaitGroup
}

func New(dec Decoder, gw Gateway, disp Display, sess *session.Session, opts ...Option) *Controller {
	c := &Controller{
		decoder:      dec,
		gateway:      gw,
		display:      disp,
		session:      sess,
		now:          time.Now,
		newRequestID: utils.NewRequestID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.submitting:
		return Submitting
	case c.awaiting:
		return AwaitingDecode
	}
	if _, ok := c.session.Active(); ok {
		return HasSubject
	}
	return Idle
}

// Displayed returns the subject currently on screen. It can differ from the
// active subject when the latest fetch failed.
func (c *Controller) Displayed() (session.Subject, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.shown == nil {
		return session.Subject{}, false
	}
	return *c.shown, true
}

// Tick makes one decode attempt on frame. It returns the fetch started for a
// newly scanned subject, or nil.
func (c *Controller) Tick(ctx context.Context, frame *frames.Frame) *Task {
	raw, ok := c.decoder.TryDecode(frame)
	if !ok {
		return nil
	}
	return c.HandlePayload(ctx, raw)
}

// HandlePayload parses decoded text, makes it the active subject and starts
// fetching it. Unparseable text is logged and leaves everything unchanged.
func (c *Controller) HandlePayload(ctx context.Context, raw string) *Task {
	ref, err := payload.Parse(raw)
	if err != nil {
		slog.Warn("ignoring scanned payload", "error", err)
		return nil
	}

	c.mu.Lock()
	now := c.now()
	if c.rescan > 0 && raw == c.lastPayload && now.Sub(c.lastSeen) < c.rescan {
		c.lastSeen = now
		c.mu.Unlock()
		return nil
	}
	c.lastPayload, c.lastSeen = raw, now

	c.session.SetActive(ref)
	c.gen++
	gen := c.gen
	c.awaiting = true
	c.mu.Unlock()

	slog.Info("subject scanned", "id", ref.ID, "name", ref.DisplayName)
	c.display.ShowStatus(fmt.Sprintf("Loading %s...", labelFor(ref)))

	task := newTask()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		view, err := c.gateway.FetchSubject(ctx, ref.ID)
		task.finish(c.applyFetch(ref, gen, view, err))
	}()
	return task
}

func (c *Controller) applyFetch(ref payload.SubjectRef, gen uint64, view models.SubjectView, fetchErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || !c.session.IsActive(ref.ID) {
		slog.Info("discarding stale fetch result", "id", ref.ID, "error", fetchErr)
		return ErrDiscarded
	}
	c.awaiting = false

	if fetchErr != nil {
		slog.Warn("fetch subject failed", "id", ref.ID, "error", fetchErr)
		if errors.Is(fetchErr, gateway.ErrNotFound) {
			c.display.ShowError(fmt.Sprintf("Error: %s not found", labelFor(ref)))
		} else {
			c.display.ShowError("Error: " + fetchErr.Error())
		}
		return fetchErr
	}

	if view.ID != "" && view.ID.String() != ref.ID {
		slog.Warn("discarding fetch result for a different subject", "requested", ref.ID, "got", view.ID)
		c.display.ShowError(fmt.Sprintf("Error: server answered for subject %s, not %s", view.ID, ref.ID))
		return fmt.Errorf("%w: requested %s, got %s", ErrSubjectMismatch, ref.ID, view.ID)
	}

	subj := session.Subject{ID: ref.ID, DisplayName: view.FullName, Balance: view.Balance}
	if subj.DisplayName == "" {
		subj.DisplayName = ref.DisplayName
	}
	c.session.AcceptSubject(ref.ID, subj)
	c.shown = &subj
	c.display.ShowStatus(formatSubject(subj))
	return nil
}

// Confirm validates operator input and submits it as a delta against the
// subject active right now. Validation failures are shown, returned, and
// never reach the gateway.
func (c *Controller) Confirm(ctx context.Context, input string) (*Task, error) {
	delta, err := parseDelta(input)
	if err != nil {
		c.display.ShowError(err.Error())
		return nil, err
	}

	c.mu.Lock()
	ref, ok := c.session.Active()
	if !ok {
		c.mu.Unlock()
		c.display.ShowError(ErrNoActiveSubject.Error())
		return nil, ErrNoActiveSubject
	}
	if c.submitting {
		c.mu.Unlock()
		c.display.ShowError(ErrSubmissionPending.Error())
		return nil, ErrSubmissionPending
	}
	c.submitting = true
	name := c.nameFor(ref)
	c.mu.Unlock()

	req := gateway.TransactionRequest{SubjectID: ref.ID, Delta: delta, RequestID: c.newRequestID()}
	slog.Info("submitting delta", "id", ref.ID, "delta", delta, "request_id", req.RequestID)
	c.display.ShowStatus(fmt.Sprintf("Submitting %+d for %s...", delta, name))

	task := newTask()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res, err := c.gateway.SubmitDelta(ctx, req)
		task.finish(c.applySubmit(ref.ID, name, req, res, err))
	}()
	return task, nil
}

func (c *Controller) applySubmit(id, name string, req gateway.TransactionRequest, res gateway.TransactionResult, submitErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submitting = false

	if submitErr != nil {
		slog.Warn("submit delta failed", "id", id, "delta", req.Delta, "request_id", req.RequestID, "error", submitErr)
		c.display.ShowError("Error: " + submitErr.Error())
		return submitErr
	}

	slog.Info("delta applied", "id", id, "delta", req.Delta, "new_balance", res.NewBalance, "message", res.Message)
	if !c.session.IsActive(id) {
		c.display.ShowStatus(fmt.Sprintf("Score for %s updated to %d", name, res.NewBalance))
		return nil
	}

	subj := session.Subject{ID: id, DisplayName: name, Balance: res.NewBalance}
	c.session.AcceptSubject(id, subj)
	c.shown = &subj
	// Fetches issued before this point may carry an older balance.
	c.gen++
	c.awaiting = false
	c.display.ShowStatus(fmt.Sprintf("Balance updated! New score: %d", res.NewBalance))
	return nil
}

// ListSubjects fetches every subject and renders one line per subject.
func (c *Controller) ListSubjects(ctx context.Context) *Task {
	task := newTask()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		views, err := c.gateway.FetchAllSubjects(ctx)
		if err != nil {
			slog.Warn("fetch subjects failed", "error", err)
			c.display.ShowError("Error: " + err.Error())
			task.finish(err)
			return
		}
		if len(views) == 0 {
			c.display.ShowStatus("No subjects registered")
		}
		for _, v := range views {
			c.display.ShowStatus(fmt.Sprintf("%s - %d", v.FullName, v.Balance))
		}
		task.finish(nil)
	}()
	return task
}

// Show re-renders the subject on screen.
func (c *Controller) Show() {
	if subj, ok := c.Displayed(); ok {
		c.display.ShowStatus(formatSubject(subj))
		return
	}
	c.display.ShowStatus("No subject scanned")
}

// Clear forgets the active subject. Results still in flight are discarded.
func (c *Controller) Clear() {
	c.mu.Lock()
	c.session.Clear()
	c.gen++
	c.awaiting = false
	c.shown = nil
	c.lastPayload = ""
	c.mu.Unlock()
	c.display.ShowStatus("Session cleared")
}

// Wait blocks until every started task has finished.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// Run ticks the decoder at fps frames per second until ctx ends or src is
// exhausted. A tick never waits on the network.
func (c *Controller) Run(ctx context.Context, src frames.Source, fps int) error {
	if fps <= 0 {
		return fmt.Errorf("fps must be positive, got %d", fps)
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			frame, err := src.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("frame source failed", "error", err)
				continue
			}
			c.Tick(ctx, frame)
		}
	}
}

func (c *Controller) nameFor(ref payload.SubjectRef) string {
	if subj, ok := c.session.Subject(); ok && subj.ID == ref.ID && subj.DisplayName != "" {
		return subj.DisplayName
	}
	return labelFor(ref)
}

func parseDelta(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrEmptyInput
	}
	delta, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrNotAnInteger
	}
	return delta, nil
}

func labelFor(ref payload.SubjectRef) string {
	if ref.DisplayName != "" {
		return ref.DisplayName
	}
	return "subject " + ref.ID
}

func formatSubject(s session.Subject) string {
	return fmt.Sprintf("%s (%s) - balance %d", s.DisplayName, s.ID, s.Balance)
}
