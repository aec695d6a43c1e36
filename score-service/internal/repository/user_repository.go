package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eaglebank/scanpoint/score-service/internal/db"
	"github.com/eaglebank/scanpoint/shared/models"
)

// UserWriteRepository handles all state-mutating operations for users and
// their score ledger. It works against the SQL store only.
type UserWriteRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewUserWriteRepository(conn *sql.DB, dialect db.Dialect) *UserWriteRepository {
	return &UserWriteRepository{db: conn, dialect: dialect}
}

func (r *UserWriteRepository) Create(ctx context.Context, user *models.User) error {
	query := r.dialect.Rebind(`
		INSERT INTO users (full_name, score, created_at)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	if err := r.db.QueryRowContext(ctx, query, user.FullName, user.Score, user.CreatedAt).Scan(&user.ID); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// ApplyScoreChange adds change to the user's score and records the
// transaction atomically. When requestID was already applied the stored
// transaction is returned with replayed set and nothing is written.
func (r *UserWriteRepository) ApplyScoreChange(ctx context.Context, userID, change int64, requestID string, at time.Time) (txn *models.Transaction, replayed bool, err error) {
	if requestID != "" {
		prior, err := r.findByRequestID(ctx, requestID)
		if err != nil {
			return nil, false, err
		}
		if prior != nil {
			return checkReplay(prior, userID, change)
		}
	}

	txn, err = r.apply(ctx, userID, change, requestID, at)
	if err == nil || requestID == "" || errors.Is(err, ErrUserNotFound) {
		return txn, false, err
	}

	// A concurrent request with the same id may have won the unique index.
	prior, lookupErr := r.findByRequestID(ctx, requestID)
	if lookupErr != nil || prior == nil {
		return nil, false, err
	}
	return checkReplay(prior, userID, change)
}

func (r *UserWriteRepository) apply(ctx context.Context, userID, change int64, requestID string, at time.Time) (*models.Transaction, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txn := &models.Transaction{UserID: userID, Score: change, RequestID: requestID, TransactionTime: at}

	err = tx.QueryRowContext(ctx,
		r.dialect.Rebind(`UPDATE users SET score = score + ? WHERE id = ? RETURNING score`),
		change, userID,
	).Scan(&txn.ScoreAfter)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update score: %w", err)
	}

	err = tx.QueryRowContext(ctx, r.dialect.Rebind(`
		INSERT INTO transactions (user_id, score, score_after, request_id, transaction_time)
		VALUES (?, ?, ?, ?, ?)
		RETURNING id
	`), userID, change, txn.ScoreAfter, nullString(requestID), at).Scan(&txn.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to record transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit score change: %w", err)
	}
	return txn, nil
}

func (r *UserWriteRepository) findByRequestID(ctx context.Context, requestID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id, user_id, score, score_after, transaction_time
		FROM transactions
		WHERE request_id = ?
	`), requestID).Scan(&txn.ID, &txn.UserID, &txn.Score, &txn.ScoreAfter, &txn.TransactionTime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up request: %w", err)
	}
	txn.RequestID = requestID
	return &txn, nil
}

func checkReplay(prior *models.Transaction, userID, change int64) (*models.Transaction, bool, error) {
	if prior.UserID != userID || prior.Score != change {
		return nil, false, ErrRequestConflict
	}
	return prior, true, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
