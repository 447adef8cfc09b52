package security

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter hands out a token bucket per client key
type RateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client per minute, with the
// whole minute's allowance available as a burst. perMinute <= 0 returns nil,
// which allows everything.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &RateLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		ttl:      15 * time.Minute,
	}
}

// Allow checks if a request from key should be allowed
func (rl *RateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	v, ok := rl.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now}
		rl.visitors[key] = v
		rl.evictStale(now)
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// evictStale drops idle visitors; called with mu held when the map grows.
func (rl *RateLimiter) evictStale(now time.Time) {
	for key, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.ttl {
			delete(rl.visitors, key)
		}
	}
}

// ClientIP extracts the client IP from the request. X-Forwarded-For and
// X-Real-IP are only honoured when the direct peer is a trusted proxy.
func ClientIP(r *http.Request, trustedProxies []*net.IPNet) string {
	remoteIP := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		remoteIP = host
	}

	if !isTrustedProxy(remoteIP, trustedProxies) {
		return remoteIP
	}

	// First hop is the client
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if client := strings.TrimSpace(strings.Split(forwarded, ",")[0]); client != "" {
			return client
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return remoteIP
}

func isTrustedProxy(ip string, trustedProxies []*net.IPNet) bool {
	if len(trustedProxies) == 0 {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, ipNet := range trustedProxies {
		if ipNet.Contains(parsed) {
			return true
		}
	}
	return false
}
