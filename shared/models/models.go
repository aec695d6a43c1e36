package models

import "time"

// User is the write model of a scannable account holder. Score is the
// authoritative balance and is only ever changed by the score service.
type User struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Score     int64     `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

// Transaction records one applied score change. ScoreAfter is the balance
// the change produced; RequestID ties it to the client confirmation.
type Transaction struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	Score           int64     `json:"score"`
	ScoreAfter      int64     `json:"score_after"`
	RequestID       string    `json:"-"`
	TransactionTime time.Time `json:"transaction_time"`
}

// Session is a named scanning session kept for the operator log.
type Session struct {
	ID          int64     `json:"id"`
	SessionName string    `json:"session_name"`
	CreatedAt   time.Time `json:"created_at"`
}
