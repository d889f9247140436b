package server

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const staleBucketAge = 10 * time.Minute

// limiter keeps one token bucket per client key
type limiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	rate        rate.Limit
	burst       int
	lastCleanup time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiter(perSecond float64, burst int) *limiter {
	if burst < 1 {
		burst = 1
	}

	return &limiter{
		buckets:     make(map[string]*bucket),
		rate:        rate.Limit(perSecond),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// allow reports whether a request for key may proceed now
// when it may not, the returned duration is how long the client should wait
func (l *limiter) allow(key string) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	if now.Sub(l.lastCleanup) > staleBucketAge {
		l.cleanup(now)
	}
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	l.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}

	delay := r.DelayFrom(now)
	if delay == 0 {
		return true, 0
	}
	r.CancelAt(now)

	if delay < time.Second {
		delay = time.Second
	}
	return false, delay
}

// cleanup drops idle full buckets, l.mu must be held
func (l *limiter) cleanup(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > staleBucketAge && b.limiter.TokensAt(now) >= float64(l.burst) {
			delete(l.buckets, key)
		}
	}
	l.lastCleanup = now
}

func (l *limiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
