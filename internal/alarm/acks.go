package alarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Acks records that a reader viewed a record's detail page, which acknowledges
// its alarm. An ack is bound to the record version it suppressed: it carries
// the updated_at the reader saw, so a record re-updated after the view alarms
// again. Implementations are consulted by the read path on top of the window
// computation; a nil Acks disables the refinement.
type Acks interface {
	Acknowledge(ctx context.Context, entityID string, updatedAt time.Time) error
	IsAcknowledged(ctx context.Context, entityID string, updatedAt time.Time) (bool, error)
}

// RedisAcks keeps acknowledgements in Redis with a TTL equal to the alarm
// window. An ack only needs to outlive the window it suppresses, so expiry
// doubles as garbage collection and the relational store stays free of
// alarm state.
type RedisAcks struct {
	client redis.Cmdable
}

// NewRedisAcks wraps a redis client.
func NewRedisAcks(client redis.Cmdable) *RedisAcks {
	return &RedisAcks{client: client}
}

func ackKey(entityID string) string {
	return "alarm:ack:" + entityID
}

func (a *RedisAcks) Acknowledge(ctx context.Context, entityID string, updatedAt time.Time) error {
	value := updatedAt.UTC().Format(time.RFC3339Nano)
	if err := a.client.Set(ctx, ackKey(entityID), value, Window).Err(); err != nil {
		return fmt.Errorf("acknowledge %s: %w", entityID, err)
	}
	return nil
}

func (a *RedisAcks) IsAcknowledged(ctx context.Context, entityID string, updatedAt time.Time) (bool, error) {
	value, err := a.client.Get(ctx, ackKey(entityID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check ack %s: %w", entityID, err)
	}
	acked, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return false, fmt.Errorf("check ack %s: %w", entityID, err)
	}
	// An ack for an older version does not suppress a newer change.
	return !acked.Before(updatedAt), nil
}
