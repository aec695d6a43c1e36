package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/eaglebank/scanpoint/scanner/internal/payload"
	"github.com/eaglebank/scanpoint/shared/models"
)

// fakeRemote is a minimal stand-in for the score service.
type fakeRemote struct {
	users    map[string]models.SubjectView
	status   int // forced status for every route when non-zero
	body     string
	delay    time.Duration
	calls    atomic.Int32

	mu       sync.Mutex
	lastBody models.ScoreUpdateRequest
	lastReq  string
}

func (f *fakeRemote) last() (models.ScoreUpdateRequest, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody, f.lastReq
}

func (f *fakeRemote) router() *mux.Router {
	r := mux.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.calls.Add(1)
			if f.delay > 0 {
				select {
				case <-time.After(f.delay):
				case <-req.Context().Done():
					return
				}
			}
			if f.status != 0 {
				w.WriteHeader(f.status)
				w.Write([]byte(f.body))
				return
			}
			next.ServeHTTP(w, req)
		})
	})
	r.HandleFunc("/user/{id}", func(w http.ResponseWriter, req *http.Request) {
		u, ok := f.users[mux.Vars(req)["id"]]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"User not found"}`))
			return
		}
		json.NewEncoder(w).Encode(u)
	}).Methods(http.MethodGet)
	r.HandleFunc("/users", func(w http.ResponseWriter, req *http.Request) {
		list := models.SubjectListView{Users: []models.SubjectView{}}
		for _, u := range f.users {
			list.Users = append(list.Users, u)
		}
		json.NewEncoder(w).Encode(list)
	}).Methods(http.MethodGet)
	r.HandleFunc("/update-score", func(w http.ResponseWriter, req *http.Request) {
		var body models.ScoreUpdateRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.lastBody, f.lastReq = body, req.Header.Get(models.RequestIDHeader)
		f.mu.Unlock()
		json.NewEncoder(w).Encode(models.ScoreUpdateResult{Message: "Score updated", NewScore: 100 + body.ScoreChange})
	}).Methods(http.MethodPost)
	return r
}

func newTestGateway(t *testing.T, f *fakeRemote, timeout time.Duration) *Client {
	t.Helper()
	srv := httptest.NewServer(f.router())
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", timeout)
}

func TestFetchSubject(t *testing.T) {
	f := &fakeRemote{users: map[string]models.SubjectView{
		"7": {ID: "7", FullName: "Alice", Balance: 100},
	}}
	gw := newTestGateway(t, f, time.Second)

	got, err := gw.FetchSubject(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "7" || got.FullName != "Alice" || got.Balance != 100 {
		t.Errorf("unexpected subject: %+v", got)
	}
}

func TestFetchSubjectNumericIDInResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":7,"full_name":"Alice","balance":100}`))
	}))
	defer srv.Close()

	got, err := New(srv.URL, time.Second).FetchSubject(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "7" {
		t.Errorf("expected id 7, got %q", got.ID)
	}
}

func TestFetchSubjectFailures(t *testing.T) {
	tests := []struct {
		name       string
		remote     *fakeRemote
		timeout    time.Duration
		wantStatus int
		wantNet    NetworkKind
		notFound   bool
	}{
		{name: "unknown subject", remote: &fakeRemote{}, wantStatus: http.StatusNotFound, notFound: true},
		{name: "server unavailable", remote: &fakeRemote{status: http.StatusServiceUnavailable, body: "down"}, wantStatus: http.StatusServiceUnavailable},
		{name: "bad body on success", remote: &fakeRemote{status: http.StatusOK, body: "<html>"}, wantStatus: http.StatusOK},
		{name: "timeout", remote: &fakeRemote{delay: 500 * time.Millisecond}, timeout: 50 * time.Millisecond, wantNet: Timeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			timeout := tt.timeout
			if timeout == 0 {
				timeout = time.Second
			}
			gw := newTestGateway(t, tt.remote, timeout)
			_, err := gw.FetchSubject(context.Background(), "7")
			if err == nil {
				t.Fatalf("[%s] expected error", tt.name)
			}
			if errors.Is(err, ErrNotFound) != tt.notFound {
				t.Errorf("[%s] errors.Is(ErrNotFound) = %v, want %v", tt.name, !tt.notFound, tt.notFound)
			}
			if tt.wantNet != 0 {
				var nerr *NetworkError
				if !errors.As(err, &nerr) || nerr.Kind != tt.wantNet {
					t.Fatalf("[%s] expected network error %v, got %v", tt.name, tt.wantNet, err)
				}
				return
			}
			var serr *ServerError
			if !errors.As(err, &serr) || serr.Status != tt.wantStatus {
				t.Fatalf("[%s] expected server error %d, got %v", tt.name, tt.wantStatus, err)
			}
		})
	}
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).FetchAllSubjects(context.Background())
	var nerr *NetworkError
	if !errors.As(err, &nerr) || nerr.Kind != Unreachable {
		t.Fatalf("expected unreachable network error, got %v", err)
	}
}

func TestFetchAllSubjects(t *testing.T) {
	f := &fakeRemote{users: map[string]models.SubjectView{
		"7": {ID: "7", FullName: "Alice", Balance: 100},
		"8": {ID: "8", FullName: "Bob", Balance: 5},
	}}
	got, err := newTestGateway(t, f, time.Second).FetchAllSubjects(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 subjects, got %d", len(got))
	}
}

func TestSubmitDelta(t *testing.T) {
	f := &fakeRemote{}
	gw := newTestGateway(t, f, time.Second)

	res, err := gw.SubmitDelta(context.Background(), TransactionRequest{SubjectID: "7", Delta: -30, RequestID: "req-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.NewBalance != 70 || res.Message != "Score updated" {
		t.Errorf("unexpected result: %+v", res)
	}
	body, requestID := f.last()
	if body.UserID != 7 || body.ScoreChange != -30 {
		t.Errorf("unexpected request body: %+v", body)
	}
	if requestID != "req-1" {
		t.Errorf("expected request id header req-1, got %q", requestID)
	}
}

func TestSubmitDeltaServerError(t *testing.T) {
	f := &fakeRemote{status: http.StatusServiceUnavailable, body: `{"message":"maintenance"}`}
	_, err := newTestGateway(t, f, time.Second).SubmitDelta(context.Background(), TransactionRequest{SubjectID: "7", Delta: 5})

	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("expected server error, got %v", err)
	}
	if serr.Status != http.StatusServiceUnavailable || serr.Body != `{"message":"maintenance"}` {
		t.Errorf("unexpected server error: %+v", serr)
	}
}

func TestSubmitDeltaNonNumericID(t *testing.T) {
	f := &fakeRemote{}
	_, err := newTestGateway(t, f, time.Second).SubmitDelta(context.Background(), TransactionRequest{SubjectID: "u-9f", Delta: 5})

	if !errors.Is(err, payload.ErrInvalidID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Errorf("expected no network call, got %d", f.calls.Load())
	}
}

func TestSuccessReplyWithoutBalanceIsAnError(t *testing.T) {
	tests := []struct {
		name string
		body string
		call func(gw *Client) error
	}{
		{
			name: "fetch without balance",
			body: `{"id":"9"}`,
			call: func(gw *Client) error {
				_, err := gw.FetchSubject(context.Background(), "7")
				return err
			},
		},
		{
			name: "list entry without balance",
			body: `{"users":[{"id":"7","full_name":"Alice","balance":100},{"id":"8","full_name":"Bob"}]}`,
			call: func(gw *Client) error {
				_, err := gw.FetchAllSubjects(context.Background())
				return err
			},
		},
		{
			name: "submit without new_score",
			body: `{"message":"ok"}`,
			call: func(gw *Client) error {
				_, err := gw.SubmitDelta(context.Background(), TransactionRequest{SubjectID: "7", Delta: 5})
				return err
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newTestGateway(t, &fakeRemote{status: http.StatusOK, body: tt.body}, time.Second)
			err := tt.call(gw)

			var serr *ServerError
			if !errors.As(err, &serr) {
				t.Fatalf("[%s] expected server error, got %v", tt.name, err)
			}
			if serr.Status != http.StatusOK || serr.Err == nil || serr.Body != tt.body {
				t.Errorf("[%s] unexpected server error: %+v", tt.name, serr)
			}
		})
	}
}

func TestZeroBalanceIsKept(t *testing.T) {
	f := &fakeRemote{status: http.StatusOK, body: `{"message":"ok","new_score":0}`}
	res, err := newTestGateway(t, f, time.Second).SubmitDelta(context.Background(), TransactionRequest{SubjectID: "7", Delta: -100})
	if err != nil {
		t.Fatalf("explicit zero must be accepted, got %v", err)
	}
	if res.NewBalance != 0 {
		t.Errorf("expected 0, got %d", res.NewBalance)
	}
}
