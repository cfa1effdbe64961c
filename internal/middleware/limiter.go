package middleware

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

// LoginLimiter throttles credential-guessing per client IP.
type LoginLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
}

func NewLoginLimiter() *LoginLimiter {
	l := &LoginLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Limit(2),
		burst:    5,
	}
	go l.cleanup()
	return l
}

func (l *LoginLimiter) getVisitor(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		limiter := rate.NewLimiter(l.limit, l.burst)
		l.visitors[ip] = &visitor{limiter: limiter, lastSeen: time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// cleanup evicts idle entries so the visitor map cannot grow without bound.
func (l *LoginLimiter) cleanup() {
	for {
		time.Sleep(time.Minute)

		l.mu.Lock()
		for ip, v := range l.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(l.visitors, ip)
			}
		}
		l.mu.Unlock()
	}
}

func (l *LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}

		if !l.getVisitor(ip).Allow() {
			writeStatus(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}
