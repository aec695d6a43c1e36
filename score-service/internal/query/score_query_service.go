package query

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eaglebank/scanpoint/score-service/internal/repository"
	"github.com/eaglebank/scanpoint/shared/cqrs"
	"github.com/eaglebank/scanpoint/shared/events"
	"github.com/eaglebank/scanpoint/shared/models"
)

type ScoreQueryService struct {
	userRepo        *repository.UserReadRepository
	transactionRepo *repository.TransactionReadRepository
	sessionRepo     *repository.SessionRepository
}

func NewScoreQueryService(
	userRepo *repository.UserReadRepository,
	transactionRepo *repository.TransactionReadRepository,
	sessionRepo *repository.SessionRepository,
) *ScoreQueryService {
	return &ScoreQueryService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		sessionRepo:     sessionRepo,
	}
}

func (s *ScoreQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.SubjectView, error) {
	return s.userRepo.GetByID(ctx, q.UserID)
}

func (s *ScoreQueryService) ListUsers(ctx context.Context, _ cqrs.ListUsersQuery) ([]models.SubjectView, error) {
	return s.userRepo.List(ctx)
}

func (s *ScoreQueryService) ListTransactions(ctx context.Context, q cqrs.ListTransactionsQuery) ([]models.Transaction, error) {
	return s.transactionRepo.List(ctx, q.UserID)
}

func (s *ScoreQueryService) ListSessions(ctx context.Context, _ cqrs.ListSessionsQuery) ([]models.Session, error) {
	return s.sessionRepo.List(ctx)
}

// HandleScoreEvent projects score.updated events into the subject view cache
// by reloading the view from the store. Redelivery is harmless.
func (s *ScoreQueryService) HandleScoreEvent(ctx context.Context, event events.Event) error {
	if event.Type != events.ScoreUpdated {
		return nil
	}
	var data events.ScoreUpdatedEvent
	if err := events.DecodeData(event, &data); err != nil {
		return err
	}
	view, err := s.userRepo.Refresh(ctx, data.UserID)
	if err != nil {
		return fmt.Errorf("failed to project score for user %d: %w", data.UserID, err)
	}
	slog.Debug("subject view refreshed", "user_id", data.UserID, "balance", view.Balance, "transaction_id", data.TransactionID)
	return nil
}
