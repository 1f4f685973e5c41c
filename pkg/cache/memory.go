package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	value    []byte
	list     [][]byte // newest first
	expireAt time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return !m.expireAt.IsZero() && now.After(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. Used when
// Redis is not configured and in tests.
type MemoryCache struct {
	mu      sync.Mutex
	data    map[string]*memoryItem
	access  map[string]time.Time
	maxSize int
	ticker  *time.Ticker
	done    chan struct{}
	once    sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:    make(map[string]*memoryItem),
		access:  make(map[string]time.Time),
		maxSize: cfg.MaxSize,
		ticker:  time.NewTicker(cfg.CleanupInterval),
		done:    make(chan struct{}),
	}
	go mc.cleanupExpired()
	return mc
}

func expiry(d time.Duration) time.Time {
	if d <= 0 {
		return time.Time{}
	}
	return time.Now().Add(d)
}

// lookup returns a live item or nil. Caller holds mu.
func (mc *MemoryCache) lookup(key string) *memoryItem {
	item, ok := mc.data[key]
	if !ok {
		return nil
	}
	if item.expired(time.Now()) {
		delete(mc.data, key)
		delete(mc.access, key)
		return nil
	}
	mc.access[key] = time.Now()
	return item
}

// put stores item, evicting the least recently used key when full. Caller
// holds mu.
func (mc *MemoryCache) put(key string, item *memoryItem) {
	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = item
	mc.access[key] = time.Now()
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.put(key, &memoryItem{value: data, expireAt: expiry(expiration)})
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item := mc.lookup(key)
	var data []byte
	if item != nil && item.list == nil {
		data = item.value
	}
	mc.mu.Unlock()

	if data == nil {
		return ErrCacheMiss
	}
	return decode(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
		delete(mc.access, key)
	}
	return nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if item := mc.lookup(key); item != nil && item.list == nil {
			out[key] = string(item.value)
		}
	}
	return out, nil
}

func (mc *MemoryCache) PushCapped(_ context.Context, key string, value interface{}, max int, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item := mc.lookup(key)
	if item == nil || item.list == nil {
		item = &memoryItem{list: [][]byte{}}
		mc.put(key, item)
	}
	item.list = append([][]byte{data}, item.list...)
	if max > 0 && len(item.list) > max {
		item.list = item.list[:max]
	}
	if expiration > 0 {
		item.expireAt = expiry(expiration)
	}
	return nil
}

func (mc *MemoryCache) Range(_ context.Context, key string, n int) ([]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	item := mc.lookup(key)
	if item == nil || n <= 0 {
		return []string{}, nil
	}
	if n > len(item.list) {
		n = len(item.list)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = string(item.list[i])
	}
	return out, nil
}

func (mc *MemoryCache) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, at := range mc.access {
		if oldestKey == "" || at.Before(oldestTime) {
			oldestKey, oldestTime = key, at
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
		delete(mc.access, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case now := <-mc.ticker.C:
			mc.mu.Lock()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
					delete(mc.access, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.once.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}
