package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	scorecmd "github.com/eaglebank/scanpoint/score-service/internal/command"
	"github.com/eaglebank/scanpoint/score-service/internal/db"
	"github.com/eaglebank/scanpoint/score-service/internal/handler"
	scoreqry "github.com/eaglebank/scanpoint/score-service/internal/query"
	"github.com/eaglebank/scanpoint/score-service/internal/repository"
	"github.com/eaglebank/scanpoint/shared/events"
	"github.com/eaglebank/scanpoint/shared/middleware"
	redisClient "github.com/eaglebank/scanpoint/shared/redis"
)

const streamMaxLen = 10000

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Database connection (write store)
	dialect, err := db.ParseDialect(getEnv("DATABASE_TYPE", "sqlite"))
	if err != nil {
		fatal("invalid DATABASE_TYPE", err)
	}
	conn, err := db.Open(ctx, dialect, getEnv("DATABASE_URL", "file:scores.db"))
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer conn.Close()
	if err := db.CreateSchema(ctx, conn, dialect); err != nil {
		fatal("failed to create schema", err)
	}

	// Redis connection (read model cache + event streaming)
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	redis, err := redisClient.NewClient(ctx, getEnv("REDIS_ADDR", "localhost:6379"), os.Getenv("REDIS_PASSWORD"), redisDB)
	if err != nil {
		fatal("failed to connect to redis", err)
	}
	defer redis.Close()

	// --- CQRS wiring ---
	publisher := events.NewPublisher(redis.Client, streamMaxLen)

	writeRepo := repository.NewUserWriteRepository(conn, dialect)
	readRepo := repository.NewUserReadRepository(conn, dialect, redis.Client)
	transactionRepo := repository.NewTransactionReadRepository(conn, dialect)
	sessionRepo := repository.NewSessionRepository(conn, dialect)

	commandSvc := scorecmd.NewScoreCommandService(writeRepo, readRepo, sessionRepo, publisher)
	querySvc := scoreqry.NewScoreQueryService(readRepo, transactionRepo, sessionRepo)

	scoreHandler := handler.NewScoreHandler(commandSvc, querySvc)

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestIDMiddleware(), middleware.LoggingMiddleware())

	router.POST("/register", scoreHandler.Register)
	router.GET("/qr", scoreHandler.GetQR)
	router.GET("/users", scoreHandler.ListUsers)
	router.GET("/user/:id", scoreHandler.GetUser)
	router.POST("/update-score", scoreHandler.UpdateScore)
	router.GET("/transactions", scoreHandler.ListTransactions)
	router.GET("/sessions", scoreHandler.ListSessions)
	router.POST("/sessions", scoreHandler.CreateSession)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Projector: re-warms subject views after each score change.
	go func() {
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "score-service-group",
			Consumer: getEnv("CONSUMER_NAME", "score-consumer-1"),
			Stream:   events.ScoreEventsStream,
			Handler:  querySvc.HandleScoreEvent,

			ReclaimAfter: 30 * time.Second,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("subscriber stopped", "error", err)
		}
	}()

	port := getEnv("PORT", "8000")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("score service starting", "port", port, "database", dialect)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("failed to start server", err)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}
