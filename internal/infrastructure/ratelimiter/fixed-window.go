package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// FixedWindowRateLimiter counts events per key in fixed windows. The
// socket layer keys it by connection id.
type FixedWindowRateLimiter struct {
	counts      sync.Map // string -> *clientData
	limit       int64
	window      time.Duration
	cleanupTick *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once
}

type clientData struct {
	count   int64        // atomic
	resetAt atomic.Value // stores time.Time
	mu      sync.Mutex   // only for reset (rare)
}

func NewFixedWindowRateLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	rl := &FixedWindowRateLimiter{
		limit:       int64(limit),
		window:      window,
		cleanupTick: time.NewTicker(window),
		done:        make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// Allow records one event for key. When the window is exhausted it
// returns false and the time until the window resets.
func (rl *FixedWindowRateLimiter) Allow(key string) (bool, time.Duration) {
	now := time.Now()
	nextReset := now.Truncate(rl.window).Add(rl.window)

	val, _ := rl.counts.LoadOrStore(key, &clientData{})
	data := val.(*clientData)

	if data.resetAt.Load() == nil {
		data.mu.Lock()
		if data.resetAt.Load() == nil {
			atomic.StoreInt64(&data.count, 1)
			data.resetAt.Store(nextReset)
			data.mu.Unlock()
			return true, 0
		}
		data.mu.Unlock()
	}

	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return rl.increment(data, currentReset)
	}

	data.mu.Lock()
	defer data.mu.Unlock()

	// Another goroutine may have reset the window while we waited.
	if currentReset := data.resetAt.Load().(time.Time); now.Before(currentReset) {
		return rl.increment(data, currentReset)
	}

	atomic.StoreInt64(&data.count, 1)
	data.resetAt.Store(nextReset)
	return true, 0
}

func (rl *FixedWindowRateLimiter) increment(data *clientData, resetAt time.Time) (bool, time.Duration) {
	newCount := atomic.AddInt64(&data.count, 1)
	if newCount-1 >= rl.limit {
		atomic.AddInt64(&data.count, -1)
		return false, time.Until(resetAt)
	}
	return true, 0
}

// Forget drops the key's window, used when a connection goes away.
func (rl *FixedWindowRateLimiter) Forget(key string) {
	rl.counts.Delete(key)
}

func (rl *FixedWindowRateLimiter) startCleanup() {
	for {
		select {
		case <-rl.cleanupTick.C:
			rl.cleanup()
		case <-rl.done:
			return
		}
	}
}

func (rl *FixedWindowRateLimiter) cleanup() {
	now := time.Now()
	rl.counts.Range(func(key, value any) bool {
		data := value.(*clientData)
		if resetAt := data.resetAt.Load(); resetAt != nil && now.After(resetAt.(time.Time)) {
			rl.counts.Delete(key)
		}
		return true
	})
}

func (rl *FixedWindowRateLimiter) Close() {
	rl.closeOnce.Do(func() {
		close(rl.done)
		rl.cleanupTick.Stop()
	})
}
