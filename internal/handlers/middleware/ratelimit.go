package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nkiryanov/shortener/internal/handlers/render"
)

const (
	limiterGCThreshold = 1000
	limiterIdleTTL     = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit throttles requests per client IP
// Put it after chi RealIP so proxied requests are keyed by the real client
type RateLimit struct {
	rpm     int
	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// Zero or negative rpm disables limiting
func NewRateLimit(rpm int) *RateLimit {
	return &RateLimit{
		rpm:     rpm,
		clients: map[string]*clientLimiter{},
	}
}

func (m *RateLimit) Handler(next http.Handler) http.Handler {
	if m.rpm <= 0 {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.getLimiter(clientIP(r)).Allow() {
			w.Header().Set("Retry-After", "60")
			render.ServiceError(w, "Too many requests", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimit) getLimiter(ip string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()

	if c, exists := m.clients[ip]; exists {
		c.lastSeen = now
		return c.limiter
	}

	m.gcLocked(now)

	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(m.rpm)), m.rpm)
	m.clients[ip] = &clientLimiter{limiter: limiter, lastSeen: now}

	return limiter
}

func (m *RateLimit) gcLocked(now time.Time) {
	if len(m.clients) < limiterGCThreshold {
		return
	}

	cutoff := now.Add(-limiterIdleTTL)
	for ip, c := range m.clients {
		if c.lastSeen.Before(cutoff) {
			delete(m.clients, ip)
		}
	}
}

func clientIP(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)

	host, _, err := net.SplitHostPort(addr)
	if err == nil && host != "" {
		return host
	}

	if addr == "" {
		return "unknown"
	}
	return addr
}
