// Package memory holds process-local stores used when no shared backend is configured.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

var errNonPositiveWindow = errors.New("rate limit window must be positive")

// RateLimitStore keeps sorted attempt timestamps per identifier. Limits only hold per process.
type RateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *RateLimitStore) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.attempts[identifier]
	i := sort.Search(len(list), func(i int) bool { return list[i].After(at) })
	list = append(list, time.Time{})
	copy(list[i+1:], list[i:])
	list[i] = at
	s.attempts[identifier] = list
	return nil
}

func (s *RateLimitStore) CountAttempts(_ context.Context, identifier string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errNonPositiveWindow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := s.bounds(identifier, window, reference)
	return hi - lo, nil
}

// TrimWindow drops attempts at or before reference-window and forgets empty identifiers.
func (s *RateLimitStore) TrimWindow(_ context.Context, identifier string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errNonPositiveWindow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.attempts[identifier]
	threshold := reference.Add(-window)
	i := sort.Search(len(list), func(i int) bool { return list[i].After(threshold) })
	if i == len(list) {
		delete(s.attempts, identifier)
		return nil
	}
	s.attempts[identifier] = append([]time.Time(nil), list[i:]...)
	return nil
}

func (s *RateLimitStore) OldestAttempt(_ context.Context, identifier string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errNonPositiveWindow
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := s.bounds(identifier, window, reference)
	if lo == hi {
		return time.Time{}, false, nil
	}
	return s.attempts[identifier][lo], true, nil
}

// bounds returns the index range of attempts inside (reference-window, reference].
func (s *RateLimitStore) bounds(identifier string, window time.Duration, reference time.Time) (int, int) {
	list := s.attempts[identifier]
	start := reference.Add(-window)
	lo := sort.Search(len(list), func(i int) bool { return list[i].After(start) })
	hi := sort.Search(len(list), func(i int) bool { return list[i].After(reference) })
	return lo, hi
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)
