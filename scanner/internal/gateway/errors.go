package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound matches a *ServerError whose status is 404.
var ErrNotFound = errors.New("subject not found")

type NetworkKind int

const (
	Unreachable NetworkKind = iota + 1
	Timeout
)

func (k NetworkKind) String() string {
	if k == Timeout {
		return "timeout"
	}
	return "unreachable"
}

// NetworkError means no HTTP response was received.
type NetworkError struct {
	Kind NetworkKind
	Op   string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: server %s: %v", e.Op, e.Kind, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError carries a non-success status with the raw response body, or a
// success status whose body could not be decoded (Err set).
type ServerError struct {
	Status int
	Body   string
	Err    error
}

func (e *ServerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid response (status %d): %v", e.Status, e.Err)
	}
	if e.Body == "" {
		return fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Body)
}

func (e *ServerError) Unwrap() error { return e.Err }

func (e *ServerError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}
