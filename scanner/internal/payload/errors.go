package payload

import (
	"errors"
	"fmt"
)

// Kind classifies why a scanned payload was rejected.
type Kind int

const (
	Malformed Kind = iota + 1
	MissingID
	InvalidID
)

func (k Kind) String() string {
	switch k {
	case Malformed:
		return "malformed payload"
	case MissingID:
		return "missing id"
	case InvalidID:
		return "invalid id"
	default:
		return "unknown"
	}
}

// ParseError is returned by Parse and NumericID.
type ParseError struct {
	Kind Kind
	Err  error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is match on kind alone, e.g. errors.Is(err, ErrMissingID).
func (e *ParseError) Is(target error) bool {
	var t *ParseError
	if !errors.As(target, &t) {
		return false
	}
	return t.Err == nil && t.Kind == e.Kind
}

var (
	ErrMalformed = &ParseError{Kind: Malformed}
	ErrMissingID = &ParseError{Kind: MissingID}
	ErrInvalidID = &ParseError{Kind: InvalidID}
)
