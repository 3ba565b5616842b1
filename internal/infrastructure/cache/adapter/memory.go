package adapter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/port"
)

// MemoryCache is an in-process port.Cache implementation with TTL support.
// It backs local development runs without a Redis instance and the package
// tests; it obviously provides no cross-process coordination.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]*memEntry
}

type memEntry struct {
	value     string
	list      []string
	expiresAt time.Time // zero means no expiry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*memEntry)}
}

var _ port.Cache = (*MemoryCache)(nil)

// live returns the entry for key if present and not expired. Expired entries
// are removed lazily. Caller must hold mu.
func (m *MemoryCache) live(key string) *memEntry {
	e, ok := m.items[key]
	if !ok {
		return nil
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.items, key)
		return nil
	}
	return e
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return "", port.ErrMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = &memEntry{value: value, expiresAt: expiry(ttl)}
	return nil
}

func (m *MemoryCache) SetNX(ctx context.Context, key string, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.live(key) != nil {
		return false, nil
	}
	m.items[key] = &memEntry{value: value, expiresAt: expiry(ttl)}
	return true, nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, k := range keys {
		if m.live(k) != nil {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live(key) != nil, nil
}

func (m *MemoryCache) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &memEntry{}
		m.items[key] = e
	}
	cur, _ := strconv.ParseInt(e.value, 10, 64)
	cur += delta
	e.value = strconv.FormatInt(cur, 10)
	return cur, nil
}

func (m *MemoryCache) RPush(ctx context.Context, key string, values ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		e = &memEntry{}
		m.items[key] = e
	}
	e.list = append(e.list, values...)
	return nil
}

func (m *MemoryCache) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.live(key)
	if e == nil {
		return nil, nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || n == 0 {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, e.list[start:stop+1])
	return out, nil
}

func (m *MemoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e := m.live(key); e != nil {
		e.expiresAt = expiry(ttl)
	}
	return nil
}

func (m *MemoryCache) Ping(ctx context.Context) error { return nil }

func (m *MemoryCache) Close() error { return nil }
