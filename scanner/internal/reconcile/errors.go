package reconcile

import (
	"errors"
)

// ErrDiscarded is the outcome of a fetch whose subject was superseded before
// the response arrived.
var ErrDiscarded = errors.New("result discarded: active subject changed")

// ErrSubjectMismatch is the outcome of a fetch whose reply names a subject
// other than the one requested. Nothing from the reply is shown or cached.
var ErrSubjectMismatch = errors.New("result discarded: reply is for another subject")

type ValidationKind int

const (
	EmptyInput ValidationKind = iota + 1
	NotAnInteger
	NoActiveSubject
	SubmissionPending
)

// ValidationError blocks a submission before any network call.
type ValidationError struct {
	Kind ValidationKind
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case EmptyInput:
		return "Please enter a value"
	case NotAnInteger:
		return "Error: enter an integer"
	case NoActiveSubject:
		return "Error: scan a code first"
	case SubmissionPending:
		return "Error: a submission is already in progress"
	default:
		return "Error: invalid input"
	}
}

func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	return errors.As(target, &t) && t.Kind == e.Kind
}

var (
	ErrEmptyInput        = &ValidationError{Kind: EmptyInput}
	ErrNotAnInteger      = &ValidationError{Kind: NotAnInteger}
	ErrNoActiveSubject   = &ValidationError{Kind: NoActiveSubject}
	ErrSubmissionPending = &ValidationError{Kind: SubmissionPending}
)
