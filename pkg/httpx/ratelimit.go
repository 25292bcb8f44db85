package httpx

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// RateLimitConfig defines the rate limiting parameters. The env tags are read
// with a RATELIMIT_{PROFILE}_ prefix by the application config.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int `env:"REQUESTS"`
	// WindowSec is the time window in seconds
	WindowSec int `env:"WINDOW_SEC"`
	// Burst allows for temporary bursts above the rate limit
	Burst int `env:"BURST"`
}

func (c RateLimitConfig) Window() time.Duration {
	return time.Duration(c.WindowSec) * time.Second
}

func (c RateLimitConfig) valid() bool {
	return c.RequestsPerWindow > 0 && c.WindowSec > 0 && c.Burst > 0
}

// RateLimitProfiles groups the limits applied to each class of endpoint.
type RateLimitProfiles struct {
	// Strict guards credential endpoints: register, login, bootstrap.
	Strict RateLimitConfig `envPrefix:"STRICT_"`
	// Moderate guards admin and password operations.
	Moderate RateLimitConfig `envPrefix:"MODERATE_"`
	// Lenient guards authenticated reads such as the session list.
	Lenient RateLimitConfig `envPrefix:"LENIENT_"`
	// Public guards unauthenticated reads such as check-invite.
	Public RateLimitConfig `envPrefix:"PUBLIC_"`
	// Validate guards session validation. Zero by default, which disables
	// it: backends validate on every protected request.
	Validate RateLimitConfig `envPrefix:"VALIDATE_"`
}

func DefaultRateLimitProfiles() RateLimitProfiles {
	return RateLimitProfiles{
		Strict:   RateLimitConfig{RequestsPerWindow: 5, WindowSec: 60, Burst: 5},
		Moderate: RateLimitConfig{RequestsPerWindow: 20, WindowSec: 60, Burst: 20},
		Lenient:  RateLimitConfig{RequestsPerWindow: 100, WindowSec: 60, Burst: 100},
		Public:   RateLimitConfig{RequestsPerWindow: 1000, WindowSec: 60, Burst: 1000},
	}
}

// KeyExtractor groups requests into rate limit buckets. An empty key skips
// limiting for that request.
type KeyExtractor func(*http.Request) string

// ClientIP returns the address resolved by RealIP, or the socket peer when
// RealIP is not installed. Forwarding headers are never read here.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(CtxKeyClientIP).(string); ok {
		return ip
	}
	return peerIP(r)
}

// UserIDKey returns the authenticated user id, or "" before RequireSession.
func UserIDKey(r *http.Request) string {
	if userID, ok := r.Context().Value(CtxKeyUserID).(string); ok {
		return userID
	}
	return ""
}

// CompositeKey joins the non-empty keys of several extractors with sep.
func CompositeKey(sep string, extractors ...KeyExtractor) KeyExtractor {
	return func(r *http.Request) string {
		var parts []string
		for _, extract := range extractors {
			if key := extract(r); key != "" {
				parts = append(parts, key)
			}
		}
		return strings.Join(parts, sep)
	}
}

// JSONFieldKey reads a top-level string field from a JSON request body and
// restores the body for the handler.
func JSONFieldKey(field string) KeyExtractor {
	return func(r *http.Request) string {
		if r.Body == nil {
			return ""
		}
		raw, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(raw))
		if err != nil {
			return ""
		}

		var fields map[string]json.RawMessage
		if json.Unmarshal(raw, &fields) != nil {
			return ""
		}
		var v string
		if json.Unmarshal(fields[field], &v) != nil {
			return ""
		}
		return v
	}
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// keyedLimiter holds one token bucket per key and drops buckets that have
// been idle for longer than idleAfter.
type keyedLimiter struct {
	mu        sync.Mutex
	entries   map[string]*limiterEntry
	limit     rate.Limit
	burst     int
	idleAfter time.Duration
	lastSweep time.Time
}

func newKeyedLimiter(cfg RateLimitConfig) *keyedLimiter {
	return &keyedLimiter{
		entries:   make(map[string]*limiterEntry),
		limit:     rate.Limit(float64(cfg.RequestsPerWindow) / cfg.Window().Seconds()),
		burst:     cfg.Burst,
		idleAfter: max(cfg.Window()*2, time.Minute),
		lastSweep: time.Now(),
	}
}

// reserve reports whether a request for key may proceed and, when not, how
// long until a token frees up.
func (kl *keyedLimiter) reserve(key string, now time.Time) (bool, time.Duration) {
	kl.mu.Lock()
	defer kl.mu.Unlock()

	if now.Sub(kl.lastSweep) >= kl.idleAfter {
		for k, e := range kl.entries {
			if now.Sub(e.lastSeen) >= kl.idleAfter {
				delete(kl.entries, k)
			}
		}
		kl.lastSweep = now
	}

	e, ok := kl.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(kl.limit, kl.burst)}
		kl.entries[key] = e
	}
	e.lastSeen = now

	if e.limiter.AllowN(now, 1) {
		return true, 0
	}
	r := e.limiter.ReserveN(now, 1)
	delay := r.DelayFrom(now)
	r.CancelAt(now)
	return false, delay
}

// RateLimit creates a rate limiting middleware. The key extractor determines
// how requests are grouped.
func RateLimit(cfg RateLimitConfig, key KeyExtractor) Middleware {
	if !cfg.valid() {
		return func(next http.Handler) http.Handler { return next }
	}
	kl := newKeyedLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			k := key(r)
			if k == "" {
				slogx.FromContext(r.Context()).Warn("rate limit: unable to extract key, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			ok, delay := kl.reserve(k, time.Now())
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			retryAfter := max(int(delay.Seconds()+0.5), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerWindow))
			w.Header().Set("X-RateLimit-Window", cfg.Window().String())

			slogx.FromContext(r.Context()).Warn("rate limit exceeded",
				"endpoint", r.URL.Path,
				"retry_after", retryAfter,
			)
			WriteError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
		})
	}
}

// RateLimitByIP limits by client address only.
func RateLimitByIP(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, ClientIP)
}

// RateLimitByUser limits by authenticated user, falling back to the address.
func RateLimitByUser(cfg RateLimitConfig) Middleware {
	return RateLimit(cfg, CompositeKey(":", UserIDKey, ClientIP))
}

// RateLimitByIPAndJSONField limits by address plus a body field, e.g. the
// email on login so one address cannot hammer a single account.
func RateLimitByIPAndJSONField(cfg RateLimitConfig, field string) Middleware {
	return RateLimit(cfg, CompositeKey(":", ClientIP, JSONFieldKey(field)))
}
