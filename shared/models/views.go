package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// SubjectID is an opaque account identifier. It decodes from either a JSON
// string or a JSON number and always encodes as a string, so numeric-looking
// ids survive a round trip with their original text.
type SubjectID string

func (id *SubjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("empty subject id")
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = SubjectID(s)
		return nil
	case 'n':
		*id = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("subject id must be a string or number: %w", err)
	}
	*id = SubjectID(n.String())
	return nil
}

func (id SubjectID) String() string { return string(id) }

// FormatSubjectID renders a numeric user id the way it travels on the wire.
func FormatSubjectID(id int64) SubjectID {
	return SubjectID(strconv.FormatInt(id, 10))
}

// SubjectView is the read projection served by GET /user/{id} and GET /users.
type SubjectView struct {
	ID       SubjectID `json:"id"`
	FullName string    `json:"full_name"`
	Balance  int64     `json:"balance"`
}

// SubjectListView is the envelope of GET /users.
type SubjectListView struct {
	Users []SubjectView `json:"users"`
}

// ScorePayload is the content encoded into a scannable code.
type ScorePayload struct {
	ID       SubjectID `json:"id"`
	FullName string    `json:"full_name"`
}

// ScoreUpdateRequest is the body of POST /update-score.
type ScoreUpdateRequest struct {
	UserID      int64 `json:"user_id"`
	ScoreChange int64 `json:"score_change"`
}

// ScoreUpdateResult is the authoritative post-state returned by POST /update-score.
type ScoreUpdateResult struct {
	Message  string `json:"message"`
	NewScore int64  `json:"new_score"`
}

// TransactionListView is the envelope of GET /transactions.
type TransactionListView struct {
	Transactions []Transaction `json:"transactions"`
}

// SessionListView is the envelope of GET /sessions.
type SessionListView struct {
	Sessions []Session `json:"sessions"`
}

// RequestIDHeader carries the client's idempotency key for a score update.
const RequestIDHeader = "X-Request-ID"
