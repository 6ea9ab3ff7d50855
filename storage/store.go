package storage

import (
	"log/slog"
	"sync"
	"time"
)

// TTLStore holds values that auto-expire after a per-entry TTL. A zero TTL
// keeps the entry until deleted. Range visits entries in insertion order.
type TTLStore[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	order   []string
	logger  *slog.Logger
}

type entry[T any] struct {
	value T
	timer *time.Timer
	gen   uint64
}

// NewTTLStore builds an empty store. logger may not be nil.
func NewTTLStore[T any](logger *slog.Logger) *TTLStore[T] {
	return &TTLStore[T]{
		entries: make(map[string]*entry[T]),
		logger:  logger,
	}
}

var generation uint64

// Set stores value under key, replacing any previous entry and its timer.
// With ttl > 0 the entry deletes itself when the TTL lapses.
func (s *TTLStore[T]) Set(key string, value T, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.entries[key]
	if existed && prev.timer != nil {
		prev.timer.Stop()
	}
	generation++
	e := &entry[T]{value: value, gen: generation}
	if ttl > 0 {
		gen := e.gen
		e.timer = time.AfterFunc(ttl, func() {
			s.expire(key, gen)
		})
	}
	s.entries[key] = e
	if !existed {
		s.order = append(s.order, key)
	}
	s.logger.Debug("Stored entry", slog.String("key", key), slog.Duration("ttl", ttl))
}

// expire removes the entry only if it is still the one the timer was set
// for; a Set that replaced it in the meantime wins.
func (s *TTLStore[T]) expire(key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok || e.gen != gen {
		return
	}
	s.remove(key)
	s.logger.Debug("Entry expired", slog.String("key", key))
}

// Get returns the value under key.
func (s *TTLStore[T]) Get(key string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Delete removes the entry and cancels its timer, reporting whether it
// existed.
func (s *TTLStore[T]) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	s.remove(key)
	return true
}

// remove must run with the lock held.
func (s *TTLStore[T]) remove(key string) {
	delete(s.entries, key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live entries.
func (s *TTLStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Range calls fn on a snapshot of the entries in insertion order, stopping
// early when fn returns false. fn runs without the store lock held.
func (s *TTLStore[T]) Range(fn func(key string, value T) bool) {
	s.mu.Lock()
	keys := make([]string, len(s.order))
	copy(keys, s.order)
	values := make([]T, 0, len(keys))
	for _, k := range keys {
		values = append(values, s.entries[k].value)
	}
	s.mu.Unlock()

	for i, k := range keys {
		if !fn(k, values[i]) {
			return
		}
	}
}
