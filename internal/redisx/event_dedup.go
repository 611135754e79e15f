package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventDedup remembers processed event ids so a redelivered message is a
// no-op across instances sharing the same consumer group.
type EventDedup struct {
	rdb   *redis.Client
	group string
	ttl   time.Duration
}

func NewEventDedup(rdb *redis.Client, group string) *EventDedup {
	return &EventDedup{rdb: rdb, group: group, ttl: TTLDedup}
}

func (d *EventDedup) Seen(ctx context.Context, eventID string) (bool, error) {
	return Exists(ctx, d.rdb, d.key(eventID))
}

func (d *EventDedup) Mark(ctx context.Context, eventID string) error {
	return d.rdb.Set(ctx, d.key(eventID), "1", d.ttl).Err()
}

func (d *EventDedup) key(eventID string) string {
	return fmt.Sprintf(KeyDedup, d.group, eventID)
}
