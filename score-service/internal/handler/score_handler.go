package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/eaglebank/scanpoint/score-service/internal/repository"
	"github.com/eaglebank/scanpoint/shared/cqrs"
	"github.com/eaglebank/scanpoint/shared/middleware"
	"github.com/eaglebank/scanpoint/shared/models"
	"github.com/eaglebank/scanpoint/shared/utils"
)

// ScoreCommander defines the write-side operations used by ScoreHandler.
type ScoreCommander interface {
	RegisterUser(context.Context, cqrs.RegisterUserCommand) (*models.SubjectView, error)
	UpdateScore(context.Context, cqrs.UpdateScoreCommand) (*models.ScoreUpdateResult, error)
	CreateSession(context.Context, cqrs.CreateSessionCommand) (*models.Session, error)
}

// ScoreQuerier defines the read-side operations used by ScoreHandler.
type ScoreQuerier interface {
	GetUser(context.Context, cqrs.GetUserQuery) (*models.SubjectView, error)
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]models.SubjectView, error)
	ListTransactions(context.Context, cqrs.ListTransactionsQuery) ([]models.Transaction, error)
	ListSessions(context.Context, cqrs.ListSessionsQuery) ([]models.Session, error)
}

type ScoreHandler struct {
	commands ScoreCommander
	queries  ScoreQuerier
}

type RegisterRequest struct {
	FullName string `json:"full_name" validate:"required,notblank,max=100"`
}

// UpdateScoreRequest uses pointers so that a missing field is told apart
// from an explicit zero.
type UpdateScoreRequest struct {
	UserID      *int64 `json:"user_id" validate:"required,gt=0"`
	ScoreChange *int64 `json:"score_change" validate:"required"`
}

type CreateSessionRequest struct {
	SessionName string `json:"session_name" validate:"required,notblank,max=100"`
}

func NewScoreHandler(commands ScoreCommander, queries ScoreQuerier) *ScoreHandler {
	return &ScoreHandler{commands: commands, queries: queries}
}

func (h *ScoreHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.RegisterUser(c.Request.Context(), cqrs.RegisterUserCommand{FullName: req.FullName})
	if err != nil {
		slog.Error("register user failed", "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to register user")
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *ScoreHandler) GetUser(c *gin.Context) {
	userID, err := utils.ParseUserID(c.Param("id"))
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user id")
		return
	}

	view, err := h.queries.GetUser(c.Request.Context(), cqrs.GetUserQuery{UserID: userID})
	if err != nil {
		h.respondReadError(c, err, "Failed to get user")
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ScoreHandler) ListUsers(c *gin.Context) {
	views, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{})
	if err != nil {
		h.respondReadError(c, err, "Failed to list users")
		return
	}
	c.JSON(http.StatusOK, models.SubjectListView{Users: views})
}

// UpdateScore applies a signed score change. A client-supplied X-Request-ID
// makes the call safe to repeat.
func (h *ScoreHandler) UpdateScore(c *gin.Context) {
	var req UpdateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	cmd := cqrs.UpdateScoreCommand{UserID: *req.UserID, ScoreChange: *req.ScoreChange}
	if id, supplied := middleware.GetRequestID(c); supplied {
		if !utils.ValidateRequestID(id) {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid "+middleware.RequestIDHeader)
			return
		}
		cmd.RequestID = id
	}

	result, err := h.commands.UpdateScore(c.Request.Context(), cmd)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		case errors.Is(err, repository.ErrRequestConflict):
			middleware.RespondWithError(c, http.StatusConflict, "Request id was already used for a different update")
		default:
			slog.Error("update score failed", "user_id", cmd.UserID, "error", err)
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to update score")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *ScoreHandler) ListTransactions(c *gin.Context) {
	var q cqrs.ListTransactionsQuery
	if raw := c.Query("user_id"); raw != "" {
		userID, err := utils.ParseUserID(raw)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadRequest, "Invalid user id")
			return
		}
		q.UserID = userID
	}

	txns, err := h.queries.ListTransactions(c.Request.Context(), q)
	if err != nil {
		h.respondReadError(c, err, "Failed to list transactions")
		return
	}
	c.JSON(http.StatusOK, models.TransactionListView{Transactions: txns})
}

func (h *ScoreHandler) ListSessions(c *gin.Context) {
	sessions, err := h.queries.ListSessions(c.Request.Context(), cqrs.ListSessionsQuery{})
	if err != nil {
		h.respondReadError(c, err, "Failed to list sessions")
		return
	}
	c.JSON(http.StatusOK, models.SessionListView{Sessions: sessions})
}

func (h *ScoreHandler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	session, err := h.commands.CreateSession(c.Request.Context(), cqrs.CreateSessionCommand{SessionName: req.SessionName})
	if err != nil {
		slog.Error("create session failed", "error", err)
		middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create session")
		return
	}
	c.JSON(http.StatusCreated, session)
}

func (h *ScoreHandler) respondReadError(c *gin.Context, err error, msg string) {
	if errors.Is(err, repository.ErrUserNotFound) {
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	}
	slog.Error(msg, "path", c.Request.URL.Path, "error", err)
	middleware.RespondWithError(c, http.StatusInternalServerError, msg)
}

func queryInt(c *gin.Context, key string, fallback, lo, hi int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, false
	}
	return n, true
}
