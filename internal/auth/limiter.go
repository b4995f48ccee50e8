package auth

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const maxTrackedUsers = 10000

// Limiter throttles login attempts per username with a token bucket.
type Limiter struct {
	mu      sync.Mutex
	perUser map[string]*rate.Limiter
	limit   rate.Limit
	burst   int
}

// NewLimiter allows perMinute attempts per username, bursting to the same
// number. perMinute <= 0 disables throttling.
func NewLimiter(perMinute int) *Limiter {
	l := &Limiter{perUser: make(map[string]*rate.Limiter), limit: rate.Inf, burst: 1}
	if perMinute > 0 {
		l.limit = rate.Every(time.Minute / time.Duration(perMinute))
		l.burst = perMinute
	}
	return l
}

// Allow consumes one attempt for username or returns ErrRateLimited.
func (l *Limiter) Allow(username string) error {
	if l.limit == rate.Inf {
		return nil
	}
	l.mu.Lock()
	lim, ok := l.perUser[username]
	if !ok {
		if len(l.perUser) >= maxTrackedUsers {
			l.perUser = make(map[string]*rate.Limiter)
		}
		lim = rate.NewLimiter(l.limit, l.burst)
		l.perUser[username] = lim
	}
	l.mu.Unlock()

	if !lim.Allow() {
		return fmt.Errorf("%w for %q", ErrRateLimited, username)
	}
	return nil
}
