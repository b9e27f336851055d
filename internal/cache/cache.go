// Package cache provides explicitly constructed caches with a fixed time to
// live. Callers own their lifetime.
package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTL is a size-bounded LRU whose entries expire a fixed time after insertion.
type TTL[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
	ttl time.Duration
}

// NewTTL creates a cache holding at most size entries for ttl each.
func NewTTL[K comparable, V any](size int, ttl time.Duration) *TTL[K, V] {
	if size <= 0 {
		size = 1
	}
	return &TTL[K, V]{
		lru: expirable.NewLRU[K, V](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the value for key if it is present and not expired.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Add stores value under key, restarting its time to live.
func (c *TTL[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Remove deletes key.
func (c *TTL[K, V]) Remove(key K) {
	c.lru.Remove(key)
}

// Len returns the number of entries, including any not yet purged.
func (c *TTL[K, V]) Len() int {
	return c.lru.Len()
}

// Purge empties the cache.
func (c *TTL[K, V]) Purge() {
	c.lru.Purge()
}

// TTL returns the configured time to live.
func (c *TTL[K, V]) TTL() time.Duration {
	return c.ttl
}

// KeySet remembers keys for a fixed time. Claim is atomic, so two callers
// racing on the same key cannot both win.
type KeySet struct {
	mu    sync.Mutex
	cache *TTL[string, time.Time]
}

// NewKeySet creates a KeySet holding at most size keys for ttl each.
func NewKeySet(size int, ttl time.Duration) *KeySet {
	return &KeySet{cache: NewTTL[string, time.Time](size, ttl)}
}

// Seen reports whether key was claimed within the time to live.
func (s *KeySet) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cache.Get(key)
	return ok
}

// Claim records key and reports true, or reports false if it is already held.
func (s *KeySet) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cache.Get(key); ok {
		return false
	}
	s.cache.Add(key, time.Now())
	return true
}

// Release forgets key so it can be claimed again.
func (s *KeySet) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Remove(key)
}

// Len returns the number of keys held.
func (s *KeySet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Len()
}
