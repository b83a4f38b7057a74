// Package cache is the read-through byte cache in front of the actors.
// Writes never update an entry in place: they invalidate it.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Cache is a TTL byte cache keyed by string.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Invalidate(ctx context.Context, keys ...string) error
}

// Key helpers. Entries are namespaced per entity kind.
func PageKey(url string) string    { return "page:" + url }
func ResourceKey(id string) string { return "resource:" + id }
func UserKey(id string) string     { return "user:" + id }
func GuideKey(id string) string    { return "guide:" + id }

// GetJSON reads and decodes key. A corrupt entry counts as a miss.
func GetJSON[T any](ctx context.Context, c Cache, key string) (*T, bool, error) {
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		_ = c.Invalidate(ctx, key)
		return nil, false, nil
	}
	return &v, true, nil
}

// SetJSON encodes v and stores it at key.
func SetJSON(ctx context.Context, c Cache, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry %s: %w", key, err)
	}
	return c.Set(ctx, key, raw)
}

// GetOrLoad returns the cached value at key, or calls load and caches its
// result. load reports absence with a nil value; absence is not cached.
// Cache failures degrade to calling load.
func GetOrLoad[T any](ctx context.Context, c Cache, key string, load func(ctx context.Context) (*T, error)) (*T, error) {
	if v, ok, err := GetJSON[T](ctx, c, key); err == nil && ok {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil || v == nil {
		return v, err
	}
	_ = SetJSON(ctx, c, key, v)
	return v, nil
}
