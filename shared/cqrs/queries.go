package cqrs

// ---------- User queries ----------

// GetUserQuery fetches the current view of a single user.
type GetUserQuery struct {
	UserID int64
}

// ListUsersQuery fetches every registered user.
type ListUsersQuery struct{}

// ---------- Transaction queries ----------

// ListTransactionsQuery fetches applied score changes, newest first.
// A zero UserID lists all users.
type ListTransactionsQuery struct {
	UserID int64
}

// ---------- Session queries ----------

type ListSessionsQuery struct{}
