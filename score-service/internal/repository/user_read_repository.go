package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/eaglebank/scanpoint/score-service/internal/db"
	"github.com/eaglebank/scanpoint/shared/models"
	sharedredis "github.com/eaglebank/scanpoint/shared/redis"
	goredis "github.com/redis/go-redis/v9"
)

const (
	subjectViewKeyPrefix = "user:view:"
	subjectViewTTL       = 10 * time.Minute
)

// UserReadRepository serves subject views from Redis and falls back to the
// SQL store, warming the cache on every cold read.
type UserReadRepository struct {
	db      *sql.DB
	dialect db.Dialect
	cache   *sharedredis.ViewCache[models.SubjectView]
}

func NewUserReadRepository(conn *sql.DB, dialect db.Dialect, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:      conn,
		dialect: dialect,
		cache:   sharedredis.NewViewCache[models.SubjectView](redisClient, subjectViewKeyPrefix, subjectViewTTL),
	}
}

func (r *UserReadRepository) GetByID(ctx context.Context, id int64) (*models.SubjectView, error) {
	if view, ok := r.cache.Get(ctx, cacheKey(id)); ok {
		return view, nil
	}
	return r.Refresh(ctx, id)
}

// Refresh reloads one view from the SQL store and caches it. The view is
// versioned by the user's latest transaction id, read in the same statement,
// so a reload that races a score update cannot overwrite its invalidation.
func (r *UserReadRepository) Refresh(ctx context.Context, id int64) (*models.SubjectView, error) {
	var (
		userID  int64
		version int64
		view    models.SubjectView
	)
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(`
		SELECT id, full_name, score,
			(SELECT COALESCE(MAX(t.id), 0) FROM transactions t WHERE t.user_id = users.id)
		FROM users WHERE id = ?`), id,
	).Scan(&userID, &view.FullName, &view.Balance, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	view.ID = models.FormatSubjectID(userID)

	r.cache.Set(ctx, cacheKey(userID), version, &view)
	return &view, nil
}

// List reads every user from the SQL store in registration order.
func (r *UserReadRepository) List(ctx context.Context) ([]models.SubjectView, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, full_name, score FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	views := []models.SubjectView{}
	for rows.Next() {
		var (
			id   int64
			view models.SubjectView
		)
		if err := rows.Scan(&id, &view.FullName, &view.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		view.ID = models.FormatSubjectID(id)
		views = append(views, view)
	}
	return views, rows.Err()
}

// CacheSubjectView stores a view that has no transactions yet.
func (r *UserReadRepository) CacheSubjectView(ctx context.Context, view *models.SubjectView) {
	r.cache.Set(ctx, view.ID.String(), 0, view)
}

// InvalidateSubjectView drops the cached view so the next read goes to the
// SQL store. transactionID is the change that made it stale; cache writes
// loaded before it are refused.
func (r *UserReadRepository) InvalidateSubjectView(ctx context.Context, id, transactionID int64) {
	r.cache.Invalidate(ctx, cacheKey(id), transactionID)
}

func cacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
