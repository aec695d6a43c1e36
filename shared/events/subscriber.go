package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Handler func(ctx context.Context, event Event) error

// Subscriber consumes one stream through a consumer group. A message whose
// handler fails stays pending; when ReclaimAfter is set it is claimed again
// once it has been idle that long.
type Subscriber struct {
	client *redis.Client
	cfg    SubscriberConfig
}

type SubscriberConfig struct {
	Group    string
	Consumer string
	Stream   string
	Handler  Handler

	BatchSize     int64
	BlockDuration time.Duration
	// ReclaimAfter of zero never redelivers failed messages.
	ReclaimAfter time.Duration
}

func NewSubscriber(client *redis.Client, config SubscriberConfig) *Subscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	return &Subscriber{client: client, cfg: config}
}

// Start creates the consumer group if needed, then polls until ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	slog.Info("subscriber started", "stream", s.cfg.Stream, "group", s.cfg.Group, "consumer", s.cfg.Consumer)

	for ctx.Err() == nil {
		if _, err := s.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Error("subscriber read failed", "stream", s.cfg.Stream, "error", err)
			time.Sleep(time.Second)
		}
	}
	slog.Info("subscriber stopping", "stream", s.cfg.Stream)
	return ctx.Err()
}

// Poll reclaims stale pending messages, then does one blocking group read.
// It returns how many messages were handled and acknowledged. Messages that
// cannot be decoded are acknowledged and dropped without counting.
func (s *Subscriber) Poll(ctx context.Context) (int, error) {
	handled := 0
	if s.cfg.ReclaimAfter > 0 {
		claimed, _, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.cfg.Stream,
			Group:    s.cfg.Group,
			Consumer: s.cfg.Consumer,
			MinIdle:  s.cfg.ReclaimAfter,
			Start:    "0-0",
			Count:    s.cfg.BatchSize,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return 0, fmt.Errorf("failed to reclaim pending messages: %w", err)
		}
		handled += s.dispatch(ctx, claimed)
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, ">"},
		Count:    s.cfg.BatchSize,
		Block:    s.cfg.BlockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return handled, nil
	}
	if err != nil {
		return handled, fmt.Errorf("failed to read from stream: %w", err)
	}
	for _, stream := range streams {
		handled += s.dispatch(ctx, stream.Messages)
	}
	return handled, nil
}

func (s *Subscriber) dispatch(ctx context.Context, messages []redis.XMessage) int {
	acked := 0
	for _, message := range messages {
		event, err := decodeMessage(message)
		if err != nil {
			// Redelivery cannot fix a bad payload.
			slog.Error("dropping undecodable event", "stream", s.cfg.Stream, "id", message.ID, "error", err)
			s.ack(ctx, message.ID)
			continue
		}
		if err := s.cfg.Handler(ctx, event); err != nil {
			slog.Error("event handler failed", "stream", s.cfg.Stream, "id", message.ID, "error", err)
			continue
		}
		if s.ack(ctx, message.ID) {
			acked++
		}
	}
	return acked
}

func (s *Subscriber) ack(ctx context.Context, id string) bool {
	if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err(); err != nil {
		slog.Error("event ack failed", "stream", s.cfg.Stream, "id", id, "error", err)
		return false
	}
	return true
}

func decodeMessage(message redis.XMessage) (Event, error) {
	var event Event
	raw, ok := message.Values["event"].(string)
	if !ok {
		return event, fmt.Errorf("message %s has no event field", message.ID)
	}
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return event, nil
}
