package ai

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxLimiterEntries = 10000

// UserLimiter keeps one token bucket per user.
type UserLimiter struct {
	mu         sync.Mutex
	limiters   map[string]*limiterEntry
	rate       rate.Limit
	burst      int
	maxEntries int
}

type limiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// NewUserLimiter allows perMinute calls per user with the given burst.
// perMinute <= 0 disables limiting.
func NewUserLimiter(perMinute, burst int) *UserLimiter {
	r := rate.Inf
	if perMinute > 0 {
		r = rate.Every(time.Minute / time.Duration(perMinute))
	}
	if burst < 1 {
		burst = 1
	}
	return &UserLimiter{
		limiters:   make(map[string]*limiterEntry),
		rate:       r,
		burst:      burst,
		maxEntries: maxLimiterEntries,
	}
}

func (l *UserLimiter) Allow(uid string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.limiters[uid]
	if !ok {
		if len(l.limiters) >= l.maxEntries {
			l.evictOldestLocked()
		}
		entry = &limiterEntry{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.limiters[uid] = entry
	}
	entry.lastAccess = time.Now()
	return entry.limiter.Allow()
}

// Forget drops uid's bucket, for example when its workspace is evicted.
func (l *UserLimiter) Forget(uid string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.limiters, uid)
}

func (l *UserLimiter) evictOldestLocked() {
	var oldest string
	var oldestTime time.Time
	for uid, entry := range l.limiters {
		if oldest == "" || entry.lastAccess.Before(oldestTime) {
			oldest = uid
			oldestTime = entry.lastAccess
		}
	}
	if oldest != "" {
		delete(l.limiters, oldest)
	}
}
