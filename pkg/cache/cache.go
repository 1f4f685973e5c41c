package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
)

var ErrCacheMiss = errors.New("cache: key not found")

// Service is the key-value and capped-list surface shared by the Redis and
// in-memory backends. Keys are relative; backends may prefix them.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error
	MGet(ctx context.Context, keys ...string) (map[string]string, error)
	// PushCapped prepends value to the list at key and keeps the newest max.
	PushCapped(ctx context.Context, key string, value interface{}, max int, expiration time.Duration) error
	// Range returns up to n list entries, newest first.
	Range(ctx context.Context, key string, n int) ([]string, error)
	Close() error
}

// MGetTyped retrieves multiple keys and decodes each; undecodable values are
// skipped.
func MGetTyped[T any](ctx context.Context, c Service, keys ...string) (map[string]T, error) {
	if len(keys) == 0 {
		return make(map[string]T), nil
	}
	raw, err := c.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]T, len(raw))
	for key, v := range raw {
		var obj T
		if err := sonic.UnmarshalString(v, &obj); err != nil {
			continue
		}
		out[key] = obj
	}
	return out, nil
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		b, err := sonic.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("cache encode: %w", err)
		}
		return b, nil
	}
}

func decode(data []byte, dest interface{}) error {
	switch d := dest.(type) {
	case *string:
		*d = string(data)
		return nil
	case *[]byte:
		*d = append((*d)[:0], data...)
		return nil
	default:
		return sonic.Unmarshal(data, dest)
	}
}
