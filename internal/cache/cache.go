package cache

import (
	"context"
	"time"
)

// Store is a JSON key-value cache. A miss is reported as (false, nil).
type Store interface {
	GetJSON(ctx context.Context, key string, out any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
