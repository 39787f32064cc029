package bot

import (
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/time/rate"
)

// Limiter throttles button presses per user before they reach the ledger.
type Limiter struct {
	limiters *xsync.Map[int64, *rate.Limiter]
	rate     rate.Limit
	burst    int
}

func NewLimiter(perSecond float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		limiters: xsync.NewMap[int64, *rate.Limiter](),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
}

func (l *Limiter) Allow(userID int64) bool {
	limiter, _ := l.limiters.LoadOrCompute(userID, func() (*rate.Limiter, bool) {
		return rate.NewLimiter(l.rate, l.burst), false
	})
	return limiter.Allow()
}
