package admin

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// staleLimiterTTL is how long a per-client limiter can be idle before cleanup.
	staleLimiterTTL = 10 * time.Minute

	cleanupInterval = 1 * time.Minute
)

// Rule limits requests whose method and path prefix match. An empty method
// matches any method; an empty prefix matches any path.
type Rule struct {
	Method string
	Prefix string
	RPS    rate.Limit
	Burst  int
}

// DefaultRules throttle pipeline runs and batch analysis hardest since each
// request fans out to several upstreams.
func DefaultRules() []Rule {
	return []Rule{
		{Method: http.MethodPost, Prefix: "/v1/audits/", RPS: rate.Limit(30.0 / 60), Burst: 5},
		{Method: http.MethodPost, Prefix: "/admin/v1/batch-analyze", RPS: rate.Limit(6.0 / 60), Burst: 2},
		{Method: http.MethodPost, Prefix: "/admin/v1/", RPS: 1, Burst: 10},
		{Method: http.MethodDelete, Prefix: "/admin/v1/", RPS: 1, Burst: 10},
		{Prefix: "", RPS: 10, Burst: 20},
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware applies a token bucket per matched rule and client IP.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry // key: "ruleIndex|clientIP"
	rules    []Rule
	logger   *slog.Logger
	nowFunc  func() time.Time
	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewRateLimitMiddleware starts a background sweep of idle limiters; call
// Stop to release it. With no rules, DefaultRules apply.
func NewRateLimitMiddleware(logger *slog.Logger, rules ...Rule) *RateLimitMiddleware {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	rl := &RateLimitMiddleware{
		limiters: make(map[string]*limiterEntry),
		rules:    rules,
		logger:   logger.With("component", "api_ratelimit"),
		nowFunc:  time.Now,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Stop shuts down the background cleanup goroutine. Safe to call multiple times.
func (rl *RateLimitMiddleware) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimitMiddleware) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.evictStale()
		}
	}
}

func (rl *RateLimitMiddleware) evictStale() {
	now := rl.nowFunc()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, entry := range rl.limiters {
		if now.Sub(entry.lastSeen) > staleLimiterTTL {
			delete(rl.limiters, key)
		}
	}
}

// LimiterCount returns the number of live limiter entries.
func (rl *RateLimitMiddleware) LimiterCount() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimitMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		idx := rl.matchRule(r.Method, r.URL.Path)
		if idx < 0 {
			next.ServeHTTP(w, r)
			return
		}
		clientIP := extractClientIP(r)
		limiter := rl.limiterFor(idx, clientIP)

		if !limiter.Allow() {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(rl.rules[idx].RPS)))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			rl.logger.Warn("rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"client_ip", clientIP,
			)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func retryAfterSeconds(rps rate.Limit) int {
	if rps <= 0 {
		return 60
	}
	secs := int(1/float64(rps) + 0.999)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// extractClientIP prefers the first X-Forwarded-For hop, then X-Real-IP,
// then the connection's remote address.
func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// matchRule returns the index of the first matching rule, or -1.
func (rl *RateLimitMiddleware) matchRule(method, path string) int {
	for i, rule := range rl.rules {
		if rule.Method != "" && !strings.EqualFold(rule.Method, method) {
			continue
		}
		if rule.Prefix != "" && !strings.HasPrefix(path, rule.Prefix) {
			continue
		}
		return i
	}
	return -1
}

func (rl *RateLimitMiddleware) limiterFor(idx int, clientIP string) *rate.Limiter {
	key := strconv.Itoa(idx) + "|" + clientIP
	now := rl.nowFunc()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if entry, ok := rl.limiters[key]; ok {
		entry.lastSeen = now
		return entry.limiter
	}
	rule := rl.rules[idx]
	limiter := rate.NewLimiter(rule.RPS, rule.Burst)
	rl.limiters[key] = &limiterEntry{limiter: limiter, lastSeen: now}
	return limiter
}
