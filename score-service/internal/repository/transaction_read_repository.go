package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/scanpoint/score-service/internal/db"
	"github.com/eaglebank/scanpoint/shared/models"
)

const transactionListLimit = 500

type TransactionReadRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewTransactionReadRepository(conn *sql.DB, dialect db.Dialect) *TransactionReadRepository {
	return &TransactionReadRepository{db: conn, dialect: dialect}
}

// List returns the most recent transactions, newest first. A zero userID
// lists every user.
func (r *TransactionReadRepository) List(ctx context.Context, userID int64) ([]models.Transaction, error) {
	query := `
		SELECT id, user_id, score, score_after, transaction_time
		FROM transactions`
	args := []any{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, transactionListLimit)

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txns := []models.Transaction{}
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Score, &t.ScoreAfter, &t.TransactionTime); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
