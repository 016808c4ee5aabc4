// Package ratelimit counts requests per key in fixed windows.
package ratelimit

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

// Store counts hits per key. The first hit opens a window; the count
// resets once the window has passed.
type Store interface {
	// Hit records one request for key and returns the count inside the
	// current window, including this one.
	Hit(key string, window time.Duration) int
}

// CacheStore keeps window counters in a go-cache instance. Expired
// counters are ignored on read and removed by Sweep.
type CacheStore struct {
	mu sync.Mutex
	c  *cache.Cache
}

var _ Store = (*CacheStore)(nil)

// NewCacheStore builds a store without a background janitor.
func NewCacheStore() *CacheStore {
	return &CacheStore{c: cache.New(cache.NoExpiration, 0)}
}

func (s *CacheStore) Hit(key string, window time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.c.Add(key, 1, window); err == nil {
		return 1
	}
	n, err := s.c.IncrementInt(key, 1)
	if err != nil {
		s.c.Set(key, 1, window)
		return 1
	}
	return n
}

// Sweep drops expired counters.
func (s *CacheStore) Sweep() {
	s.c.DeleteExpired()
}

// Len reports how many counters are held, expired ones included.
func (s *CacheStore) Len() int {
	return s.c.ItemCount()
}

const (
	defaultLimit  = 10
	defaultWindow = time.Minute
)

// Limiter allows at most limit hits per key and window.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

// NewLimiter defaults to 10 hits per minute.
func NewLimiter(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, limit: defaultLimit, window: defaultWindow}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a hit for key and reports whether it is within the limit.
// A limit of zero or less disables limiting.
func (l *Limiter) Allow(key string) bool {
	if l.limit <= 0 {
		return true
	}
	return l.store.Hit(key, l.window) <= l.limit
}
