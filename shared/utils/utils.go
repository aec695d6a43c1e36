package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// NewRequestID returns a fresh idempotency key for one operator confirmation.
func NewRequestID() string {
	return uuid.NewString()
}

// ValidateRequestID reports whether id is a canonical UUID.
func ValidateRequestID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// ParseUserID converts the textual form of a user id into the numeric key
// used by the store. Surrounding whitespace is ignored; zero, negative and
// non-decimal values are rejected.
func ParseUserID(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
