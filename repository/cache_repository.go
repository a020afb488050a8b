package repository

import (
	"context"
	"time"
)

type CacheRepository interface {
	Get(ctx context.Context, key string) (string, bool)
	// Set stores value for ttl; a zero ttl keeps it until evicted.
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}
