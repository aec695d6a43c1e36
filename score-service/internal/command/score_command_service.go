package command

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/eaglebank/scanpoint/score-service/internal/repository"
	"github.com/eaglebank/scanpoint/shared/cqrs"
	"github.com/eaglebank/scanpoint/shared/events"
	"github.com/eaglebank/scanpoint/shared/models"
)

const (
	msgScoreUpdated   = "Score updated successfully"
	msgAlreadyApplied = "Score already updated for this request"
)

// ScoreCommandService writes users, scores and sessions and keeps the read
// model in sync.
type ScoreCommandService struct {
	writeRepo   *repository.UserWriteRepository
	readRepo    *repository.UserReadRepository
	sessionRepo *repository.SessionRepository
	publisher   *events.Publisher
	now         func() time.Time
}

func NewScoreCommandService(
	writeRepo *repository.UserWriteRepository,
	readRepo *repository.UserReadRepository,
	sessionRepo *repository.SessionRepository,
	publisher *events.Publisher,
) *ScoreCommandService {
	return &ScoreCommandService{
		writeRepo:   writeRepo,
		readRepo:    readRepo,
		sessionRepo: sessionRepo,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *ScoreCommandService) RegisterUser(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.SubjectView, error) {
	user := &models.User{
		FullName:  strings.TrimSpace(cmd.FullName),
		CreatedAt: s.now(),
	}
	if err := s.writeRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	view := &models.SubjectView{ID: models.FormatSubjectID(user.ID), FullName: user.FullName, Balance: user.Score}
	s.readRepo.CacheSubjectView(ctx, view)
	if err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserRegistered, events.UserRegisteredEvent{
		UserID:   user.ID,
		FullName: user.FullName,
	}); err != nil {
		slog.Error("failed to publish user.registered", "user_id", user.ID, "error", err)
	}
	return view, nil
}

// UpdateScore applies a signed change. A replayed RequestID returns the
// balance recorded when it was first applied.
func (s *ScoreCommandService) UpdateScore(ctx context.Context, cmd cqrs.UpdateScoreCommand) (*models.ScoreUpdateResult, error) {
	txn, replayed, err := s.writeRepo.ApplyScoreChange(ctx, cmd.UserID, cmd.ScoreChange, cmd.RequestID, s.now())
	if err != nil {
		return nil, err
	}
	if replayed {
		slog.Info("score update replayed", "user_id", cmd.UserID, "request_id", cmd.RequestID, "transaction_id", txn.ID)
		return &models.ScoreUpdateResult{Message: msgAlreadyApplied, NewScore: txn.ScoreAfter}, nil
	}

	// Reads fall through to the store until the projector re-warms the view.
	s.readRepo.InvalidateSubjectView(ctx, cmd.UserID, txn.ID)
	if err := s.publisher.Publish(ctx, events.ScoreEventsStream, events.ScoreUpdated, events.ScoreUpdatedEvent{
		TransactionID: txn.ID,
		UserID:        cmd.UserID,
		Change:        cmd.ScoreChange,
		NewScore:      txn.ScoreAfter,
		RequestID:     cmd.RequestID,
	}); err != nil {
		slog.Error("failed to publish score.updated", "user_id", cmd.UserID, "error", err)
	}

	slog.Info("score updated", "user_id", cmd.UserID, "change", cmd.ScoreChange, "new_score", txn.ScoreAfter)
	return &models.ScoreUpdateResult{Message: msgScoreUpdated, NewScore: txn.ScoreAfter}, nil
}

func (s *ScoreCommandService) CreateSession(ctx context.Context, cmd cqrs.CreateSessionCommand) (*models.Session, error) {
	session := &models.Session{
		SessionName: strings.TrimSpace(cmd.SessionName),
		CreatedAt:   s.now(),
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := s.publisher.Publish(ctx, events.SessionEventsStream, events.SessionCreated, events.SessionCreatedEvent{
		SessionID:   session.ID,
		SessionName: session.SessionName,
	}); err != nil {
		slog.Error("failed to publish session.created", "session_id", session.ID, "error", err)
	}
	return session, nil
}
