package http

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter is a token bucket per client IP. Idle entries are dropped on
// access once they have been quiet for ten minutes.
type ipLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	lastGC   time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		visitors: map[string]*visitor{},
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		lastGC:   time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastGC) > time.Minute {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > 10*time.Minute {
				delete(l.visitors, k)
			}
		}
		l.lastGC = now
	}
	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// RateLimit allows perMinute requests per client IP, with bursts of the
// same size. Place it after middleware.RealIP.
func RateLimit(perMinute int) func(http.Handler) http.Handler {
	l := newIPLimiter(perMinute)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !l.allow(ip) {
				w.Header().Set("Retry-After", "60")
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
