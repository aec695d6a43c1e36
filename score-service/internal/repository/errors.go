package repository

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	// ErrRequestConflict means a request id was replayed with a different
	// user or score change than the one it was first applied with.
	ErrRequestConflict = errors.New("request id already used for a different update")
)
