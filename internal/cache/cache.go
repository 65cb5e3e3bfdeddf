package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// Notifier fans a JSON message out to subscribers of channel.
type Notifier interface {
	PublishJSON(ctx context.Context, channel string, val any) error
}
