package repository

import (
	"context"
	"fmt"
	"time"

	"SigmaSync/internal/domain/models"
	drepo "SigmaSync/internal/domain/repository"
	"SigmaSync/pkg/cache"
)

const (
	mirrorLatestKey  = "latest"
	mirrorHistoryKey = "history"
)

// RedisMirror publishes the latest state for readers outside this process.
// The core never reads it back.
type RedisMirror struct {
	name    string
	cache   cache.Service
	ttl     time.Duration
	history int
}

func NewRedisMirror(c cache.Service, ttl time.Duration, history int) drepo.SnapshotSink {
	return NewCacheMirror("redis", c, ttl, history)
}

// NewCacheMirror mirrors into any cache backend under the given sink name.
func NewCacheMirror(name string, c cache.Service, ttl time.Duration, history int) drepo.SnapshotSink {
	return &RedisMirror{name: name, cache: c, ttl: ttl, history: history}
}

func (m *RedisMirror) Name() string { return m.name }

func (m *RedisMirror) Deliver(ctx context.Context, s models.Snapshot) error {
	values := map[string]interface{}{mirrorLatestKey: s}
	if s.Symbol != "" {
		values[cache.GenerateKey("symbol", s.Symbol)] = s
	}
	if err := m.cache.MSet(ctx, values, m.ttl); err != nil {
		return fmt.Errorf("mirror latest: %w", err)
	}
	if m.history > 0 {
		if err := m.cache.PushCapped(ctx, mirrorHistoryKey, s, m.history, m.ttl); err != nil {
			return fmt.Errorf("mirror history: %w", err)
		}
	}
	return nil
}

// Close leaves the cache client to its owner.
func (m *RedisMirror) Close() error { return nil }
