package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/eaglebank/scanpoint/score-service/internal/db"
	"github.com/eaglebank/scanpoint/shared/models"
)

// SessionRepository stores the operator's named scanning sessions.
type SessionRepository struct {
	db      *sql.DB
	dialect db.Dialect
}

func NewSessionRepository(conn *sql.DB, dialect db.Dialect) *SessionRepository {
	return &SessionRepository{db: conn, dialect: dialect}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	query := r.dialect.Rebind(`
		INSERT INTO sessions (session_name, created_at)
		VALUES (?, ?)
		RETURNING id
	`)
	if err := r.db.QueryRowContext(ctx, query, s.SessionName, s.CreatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) List(ctx context.Context) ([]models.Session, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, session_name, created_at FROM sessions ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.SessionName, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
