package cache

import (
	"context"
	"time"
)

type Cache interface {
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}
