// Package cache memoizes read results for a fixed TTL with explicit invalidation.
package cache

import (
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Clock returns the current time.
type Clock func() time.Time

type entry struct {
	value    any
	storedAt time.Time
}

// Service is a TTL cache keyed by string. Freshness is judged against the injected clock;
// go-cache holds the entries and its janitor reclaims them once they are stale.
type Service struct {
	store *gocache.Cache
	ttl   time.Duration
	now   Clock
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now as the freshness clock.
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

// New creates a cache whose entries stay fresh for ttl. A non-positive ttl disables caching.
func New(ttl time.Duration, opts ...Option) *Service {
	s := &Service{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	cleanup := 2 * ttl
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	s.store = gocache.New(ttl, cleanup)
	return s
}

// TTL returns the freshness period.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Get returns a fresh value for key.
func (s *Service) Get(key string) (any, bool) {
	item, found := s.store.Get(key)
	if !found {
		return nil, false
	}
	e := item.(entry)
	if s.now().Sub(e.storedAt) >= s.ttl {
		s.store.Delete(key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key.
func (s *Service) Set(key string, value any) {
	if s.ttl <= 0 {
		return
	}
	s.store.Set(key, entry{value: value, storedAt: s.now()}, s.ttl)
}

// Invalidate drops key.
func (s *Service) Invalidate(key string) {
	s.store.Delete(key)
}

// InvalidatePrefix drops every key starting with prefix and returns how many were dropped.
func (s *Service) InvalidatePrefix(prefix string) int {
	n := 0
	for key := range s.store.Items() {
		if strings.HasPrefix(key, prefix) {
			s.store.Delete(key)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, fresh or not.
func (s *Service) Len() int {
	return s.store.ItemCount()
}
