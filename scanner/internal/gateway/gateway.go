// Package gateway is the scanner's only network client. Every call returns
// either a decoded success value or a typed failure; nothing is retried and
// no local state is touched.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eaglebank/scanpoint/scanner/internal/payload"
	"github.com/eaglebank/scanpoint/shared/models"
)

const maxBodyBytes = 1 << 20

// TransactionRequest is built per confirmation and not retained.
type TransactionRequest struct {
	SubjectID string
	Delta     int64
	RequestID string
}

// TransactionResult is the server's post-state after applying a delta.
type TransactionResult struct {
	Message    string
	NewBalance int64
}

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client for the service rooted at baseURL. timeout bounds each
// call end to end.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// subjectReply mirrors models.SubjectView with the balance left unset when
// the server omits it.
type subjectReply struct {
	ID       models.SubjectID `json:"id"`
	FullName string           `json:"full_name"`
	Balance  *int64           `json:"balance"`
}

func (s subjectReply) view() (models.SubjectView, bool) {
	if s.Balance == nil {
		return models.SubjectView{}, false
	}
	return models.SubjectView{ID: s.ID, FullName: s.FullName, Balance: *s.Balance}, true
}

type scoreReply struct {
	Message  string `json:"message"`
	NewScore *int64 `json:"new_score"`
}

// FetchSubject reads the authoritative state of one subject.
func (c *Client) FetchSubject(ctx context.Context, id string) (models.SubjectView, error) {
	var reply subjectReply
	resp, err := c.do(ctx, "fetch subject", http.MethodGet, "/user/"+url.PathEscape(id), nil, nil, &reply)
	if err != nil {
		return models.SubjectView{}, err
	}
	view, ok := reply.view()
	if !ok {
		return models.SubjectView{}, resp.missing("balance")
	}
	return view, nil
}

// FetchAllSubjects lists every subject known to the service. One entry
// without a balance fails the whole call.
func (c *Client) FetchAllSubjects(ctx context.Context) ([]models.SubjectView, error) {
	var list struct {
		Users []subjectReply `json:"users"`
	}
	resp, err := c.do(ctx, "fetch subjects", http.MethodGet, "/users", nil, nil, &list)
	if err != nil {
		return nil, err
	}
	views := make([]models.SubjectView, 0, len(list.Users))
	for _, u := range list.Users {
		view, ok := u.view()
		if !ok {
			return nil, resp.missing("balance")
		}
		views = append(views, view)
	}
	return views, nil
}

// SubmitDelta asks the service to apply req.Delta. The subject id is coerced
// to the integer key the endpoint requires; a non-numeric id fails with a
// payload.ParseError before any request is made.
func (c *Client) SubmitDelta(ctx context.Context, req TransactionRequest) (TransactionResult, error) {
	userID, err := payload.NumericID(req.SubjectID)
	if err != nil {
		return TransactionResult{}, err
	}

	headers := http.Header{}
	if req.RequestID != "" {
		headers.Set(models.RequestIDHeader, req.RequestID)
	}

	var reply scoreReply
	body := models.ScoreUpdateRequest{UserID: userID, ScoreChange: req.Delta}
	resp, err := c.do(ctx, "submit delta", http.MethodPost, "/update-score", headers, body, &reply)
	if err != nil {
		return TransactionResult{}, err
	}
	if reply.NewScore == nil {
		return TransactionResult{}, resp.missing("new_score")
	}
	return TransactionResult{Message: reply.Message, NewBalance: *reply.NewScore}, nil
}

// response is a decoded success reply, kept so callers can report a body
// that lacks a required field.
type response struct {
	status int
	body   []byte
}

func (r *response) missing(field string) error {
	return &ServerError{Status: r.status, Body: string(r.body), Err: fmt.Errorf("response has no %s", field)}
}

func (c *Client) do(ctx context.Context, op, method, path string, headers http.Header, in, out any) (*response, error) {
	var reqBody io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", op, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	for key, values := range headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		nerr := classify(op, err)
		slog.Warn("gateway call failed", "op", op, "path", path, "kind", nerr.Kind.String(), "error", err)
		return nil, nerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classify(op, err)
	}
	slog.Debug("gateway call", "op", op, "path", path, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ServerError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, &ServerError{Status: resp.StatusCode, Body: string(data), Err: err}
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

func classify(op string, err error) *NetworkError {
	kind := Unreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = Timeout
	}
	return &NetworkError{Kind: kind, Op: op, Err: err}
}
