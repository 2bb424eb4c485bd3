package ratelimit

import (
	"sync"
	"testing"
	"time"
)

func TestMemoryStore(t *testing.T) {
	t.Run("Get non-existent key", func(t *testing.T) {
		store := NewMemoryStore(0)
		count, resetTime, exists := store.Get("missing")

		if exists {
			t.Error("expected key to not exist")
		}
		if count != 0 {
			t.Errorf("expected count 0, got %d", count)
		}
		if !resetTime.IsZero() {
			t.Error("expected zero time")
		}
	})

	t.Run("Increment starts and extends a window", func(t *testing.T) {
		store := NewMemoryStore(0)
		reset := time.Now().Add(time.Minute)

		if got := store.Increment("k", reset); got != 1 {
			t.Errorf("expected 1, got %d", got)
		}
		if got := store.Increment("k", reset.Add(time.Hour)); got != 2 {
			t.Errorf("expected 2, got %d", got)
		}

		count, resetTime, exists := store.Get("k")
		if !exists || count != 2 {
			t.Errorf("expected count 2, got %d (exists=%v)", count, exists)
		}
		if !resetTime.Equal(reset) {
			t.Errorf("expected the first reset time to be kept, got %v", resetTime)
		}
	})

	t.Run("expired window restarts", func(t *testing.T) {
		store := NewMemoryStore(0)
		base := time.Now()
		store.now = func() time.Time { return base }
		store.Increment("k", base.Add(time.Second))
		store.Increment("k", base.Add(time.Second))

		store.now = func() time.Time { return base.Add(2 * time.Second) }
		if _, _, exists := store.Get("k"); exists {
			t.Error("expected expired window to be hidden")
		}
		if got := store.Increment("k", base.Add(time.Minute)); got != 1 {
			t.Errorf("expected restarted count 1, got %d", got)
		}
	})

	t.Run("Reset", func(t *testing.T) {
		store := NewMemoryStore(0)
		store.Increment("k", time.Now().Add(time.Minute))
		store.Reset("k")

		if _, _, exists := store.Get("k"); exists {
			t.Error("expected key to be removed")
		}
	})

	t.Run("removeExpired", func(t *testing.T) {
		store := NewMemoryStore(0)
		store.Increment("old", time.Now().Add(-time.Second))
		store.Increment("live", time.Now().Add(time.Minute))

		store.removeExpired()

		if store.Len() != 1 {
			t.Errorf("expected 1 entry, got %d", store.Len())
		}
		if _, _, exists := store.Get("live"); !exists {
			t.Error("expected live entry to remain")
		}
	})

	t.Run("sweeper stops on Close", func(t *testing.T) {
		store := NewMemoryStore(5 * time.Millisecond)
		store.Increment("old", time.Now().Add(-time.Second))

		deadline := time.Now().Add(time.Second)
		for store.Len() > 0 && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if store.Len() != 0 {
			t.Error("expected sweeper to remove expired entry")
		}

		store.Close()
		store.Close()
	})

	t.Run("concurrent increments", func(t *testing.T) {
		store := NewMemoryStore(0)
		reset := time.Now().Add(time.Minute)

		var wg sync.WaitGroup
		for range 50 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Increment("k", reset)
			}()
		}
		wg.Wait()

		if count, _, _ := store.Get("k"); count != 50 {
			t.Errorf("expected 50, got %d", count)
		}
	})
}
