package ratelimit

import (
	"context"
	"time"
)

// Store keeps the request timestamps of each key.
type Store interface {
	// Record adds a request for key and returns how many requests key made within window,
	// this one included. Entries older than window are pruned.
	Record(ctx context.Context, key string, window time.Duration) (count int64, err error)
}
