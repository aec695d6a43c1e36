package events

import "time"

// Event types
const (
	UserRegistered = "user.registered"
	ScoreUpdated   = "score.updated"
	SessionCreated = "session.created"
)

// Stream names
const (
	UserEventsStream    = "user.events"
	ScoreEventsStream   = "score.events"
	SessionEventsStream = "session.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

type UserRegisteredEvent struct {
	UserID   int64  `json:"userId"`
	FullName string `json:"fullName"`
}

type ScoreUpdatedEvent struct {
	TransactionID int64  `json:"transactionId"`
	UserID        int64  `json:"userId"`
	Change        int64  `json:"change"`
	NewScore      int64  `json:"newScore"`
	RequestID     string `json:"requestId,omitempty"`
}

type SessionCreatedEvent struct {
	SessionID   int64  `json:"sessionId"`
	SessionName string `json:"sessionName"`
}
