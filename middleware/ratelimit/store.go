package ratelimit

import (
	"sync"
	"time"
)

// Store tracks request counts per key within a fixed window.
type Store interface {
	Get(key string) (count int, resetTime time.Time, exists bool)
	Increment(key string, resetTime time.Time) (count int)
	Reset(key string)
}

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]*window
	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type window struct {
	count     int
	resetTime time.Time
}

// NewMemoryStore returns a store that sweeps expired windows every interval
// until Close is called.
func NewMemoryStore(interval time.Duration) *MemoryStore {
	s := &MemoryStore{
		data: make(map[string]*window),
		now:  time.Now,
		stop: make(chan struct{}),
	}
	if interval > 0 {
		go s.sweep(interval)
	}
	return s
}

func (s *MemoryStore) Get(key string) (int, time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.data[key]; ok && s.now().Before(w.resetTime) {
		return w.count, w.resetTime, true
	}
	return 0, time.Time{}, false
}

// Increment adds one hit to key. An expired or missing window is restarted
// with resetTime.
func (s *MemoryStore) Increment(key string, resetTime time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.data[key]; ok && s.now().Before(w.resetTime) {
		w.count++
		return w.count
	}
	s.data[key] = &window{count: 1, resetTime: resetTime}
	return 1
}

func (s *MemoryStore) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.removeExpired()
		}
	}
}

func (s *MemoryStore) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, w := range s.data {
		if !now.Before(w.resetTime) {
			delete(s.data, key)
		}
	}
}
