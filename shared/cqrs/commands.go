package cqrs

type RegisterUserCommand struct {
	FullName string
}

// UpdateScoreCommand applies ScoreChange to a user's balance. RequestID is
// the client-supplied idempotency key; an empty RequestID is never deduplicated.
type UpdateScoreCommand struct {
	UserID      int64
	ScoreChange int64
	RequestID   string
}

type CreateSessionCommand struct {
	SessionName string
}
