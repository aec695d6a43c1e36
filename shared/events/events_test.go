package events

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPublishAndPoll(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	var got []ScoreUpdatedEvent
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "c1",
		Stream:        ScoreEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			if event.Type != ScoreUpdated {
				return fmt.Errorf("unexpected type %s", event.Type)
			}
			var data ScoreUpdatedEvent
			if err := DecodeData(event, &data); err != nil {
				return err
			}
			got = append(got, data)
			return nil
		},
	})
	if err := client.XGroupCreateMkStream(ctx, ScoreEventsStream, "test-group", "0").Err(); err != nil {
		t.Fatalf("group create: %v", err)
	}

	pub := NewPublisher(client, 1000)
	if err := pub.Publish(ctx, ScoreEventsStream, ScoreUpdated, ScoreUpdatedEvent{
		TransactionID: 1, UserID: 7, Change: -30, NewScore: 70,
	}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	n, err := sub.Poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 1 || len(got) != 1 {
		t.Fatalf("expected 1 handled event, got n=%d events=%d", n, len(got))
	}
	if got[0].UserID != 7 || got[0].NewScore != 70 || got[0].Change != -30 {
		t.Errorf("unexpected event data: %+v", got[0])
	}
}

func TestPollLeavesFailedMessagesPending(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "c1",
		Stream:        UserEventsStream,
		BlockDuration: 10 * time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			return fmt.Errorf("boom")
		},
	})
	if err := client.XGroupCreateMkStream(ctx, UserEventsStream, "test-group", "0").Err(); err != nil {
		t.Fatalf("group create: %v", err)
	}
	if err := NewPublisher(client, 0).Publish(ctx, UserEventsStream, UserRegistered, UserRegisteredEvent{UserID: 1, FullName: "Alice"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	n, err := sub.Poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no acknowledged messages, got %d", n)
	}
	pending, err := client.XPending(ctx, UserEventsStream, "test-group").Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 1 {
		t.Errorf("expected 1 pending message, got %d", pending.Count)
	}
}

func TestPollReclaimsFailedMessages(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	attempts := 0
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "c1",
		Stream:        SessionEventsStream,
		BlockDuration: 10 * time.Millisecond,
		ReclaimAfter:  time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			attempts++
			if attempts == 1 {
				return fmt.Errorf("transient")
			}
			return nil
		},
	})
	if err := client.XGroupCreateMkStream(ctx, SessionEventsStream, "test-group", "0").Err(); err != nil {
		t.Fatalf("group create: %v", err)
	}
	if err := NewPublisher(client, 0).Publish(ctx, SessionEventsStream, SessionCreated, SessionCreatedEvent{SessionID: 1, SessionName: "Morning"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	if n, err := sub.Poll(ctx); err != nil || n != 0 {
		t.Fatalf("first poll: n=%d err=%v", n, err)
	}
	time.Sleep(20 * time.Millisecond)
	n, err := sub.Poll(ctx)
	if err != nil {
		t.Fatalf("second poll: %v", err)
	}
	if n != 1 || attempts != 2 {
		t.Errorf("expected redelivery to succeed, got n=%d attempts=%d", n, attempts)
	}
}

func TestPollDropsUndecodableMessages(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)

	called := false
	sub := NewSubscriber(client, SubscriberConfig{
		Group:         "test-group",
		Consumer:      "c1",
		Stream:        ScoreEventsStream,
		BlockDuration: 10 * time.Millisecond,
		ReclaimAfter:  time.Millisecond,
		Handler: func(ctx context.Context, event Event) error {
			called = true
			return nil
		},
	})
	if err := client.XGroupCreateMkStream(ctx, ScoreEventsStream, "test-group", "0").Err(); err != nil {
		t.Fatalf("group create: %v", err)
	}
	for _, values := range []map[string]any{
		{"other": "field"},
		{"event": "{not json"},
	} {
		if err := client.XAdd(ctx, &redis.XAddArgs{Stream: ScoreEventsStream, Values: values}).Err(); err != nil {
			t.Fatalf("xadd: %v", err)
		}
	}

	n, err := sub.Poll(ctx)
	if err != nil {
		t.Fatalf("poll: %v", err)
	}
	if n != 0 || called {
		t.Errorf("undecodable messages must not reach the handler, n=%d called=%v", n, called)
	}
	pending, err := client.XPending(ctx, ScoreEventsStream, "test-group").Result()
	if err != nil {
		t.Fatalf("xpending: %v", err)
	}
	if pending.Count != 0 {
		t.Errorf("expected undecodable messages to be acknowledged, %d still pending", pending.Count)
	}
}
