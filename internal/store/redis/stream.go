package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/emperorhan/chainaudit/internal/domain/event"
	"github.com/redis/go-redis/v9"
)

const DefaultStreamMaxLen = 100_000

type streamWriter interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// EventStream appends committed registry events to a Redis stream so that
// out-of-process subscribers can follow registry changes.
type EventStream struct {
	client streamWriter
	key    string
	maxLen int64
}

var _ event.Sink = (*EventStream)(nil)

func NewEventStream(client streamWriter, key string, maxLen int64) *EventStream {
	if maxLen <= 0 {
		maxLen = DefaultStreamMaxLen
	}
	return &EventStream{client: client, key: key, maxLen: maxLen}
}

func (s *EventStream) Publish(ctx context.Context, ev event.RegistryEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", ev.ID, err)
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"type":    string(ev.Type),
			"token":   ev.Token.Hex(),
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.key, err)
	}
	return nil
}
