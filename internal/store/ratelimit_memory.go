package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

type requestLog struct {
	timestamps []time.Time
	// expiresAt is when the newest request leaves the widest window seen for the key.
	expiresAt time.Time
}

// RateLimitMemoryStore keeps per-key request timestamps in process memory. Idle keys are
// dropped by Prune, which StartPruning runs periodically.
type RateLimitMemoryStore struct {
	mu       sync.Mutex
	requests map[string]*requestLog
	now      func() time.Time

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewRateLimitMemoryStore creates an empty in-memory rate limit store.
func NewRateLimitMemoryStore() *RateLimitMemoryStore {
	return &RateLimitMemoryStore{
		requests: make(map[string]*requestLog),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
}

// WithClock replaces time.Now, for tests.
func (s *RateLimitMemoryStore) WithClock(now func() time.Time) *RateLimitMemoryStore {
	s.now = now

	return s
}

func (s *RateLimitMemoryStore) Record(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	cutoff := now.Add(-window)

	log, ok := s.requests[key]
	if !ok {
		log = &requestLog{}
		s.requests[key] = log
	}

	// timestamps are appended in order, so everything before the first live one is expired
	first := sort.Search(len(log.timestamps), func(i int) bool {
		return log.timestamps[i].After(cutoff)
	})

	log.timestamps = append(log.timestamps[first:len(log.timestamps):len(log.timestamps)], now)

	if expiresAt := now.Add(window); expiresAt.After(log.expiresAt) {
		log.expiresAt = expiresAt
	}

	return int64(len(log.timestamps)), nil
}

// Keys returns the number of tracked keys.
func (s *RateLimitMemoryStore) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.requests)
}

// Prune drops keys with no request left in any window and returns how many were dropped.
func (s *RateLimitMemoryStore) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	pruned := 0

	for key, log := range s.requests {
		if !log.expiresAt.After(now) {
			delete(s.requests, key)
			pruned++
		}
	}

	return pruned
}

// StartPruning runs Prune every interval until Shutdown. It must be called at most once.
func (s *RateLimitMemoryStore) StartPruning(interval time.Duration) {
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Prune()
			}
		}
	}()
}

// Shutdown stops the pruning loop started by StartPruning.
func (s *RateLimitMemoryStore) Shutdown() error {
	s.stopOnce.Do(func() { close(s.stop) })

	if s.done != nil {
		<-s.done
	}

	return nil
}
