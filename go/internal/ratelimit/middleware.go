package ratelimit

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// DefaultMessage is returned to clients that exceed the limit
const DefaultMessage = "Too many requests, please try again later."

// Config configures the HTTP middleware
type Config struct {
	Limiter Limiter
	// KeyFunc extracts the limiting key; defaults to the client IP
	KeyFunc func(r *http.Request) string
	// Timeout bounds each limiter call
	Timeout time.Duration
	Message string
	// Clock must match the limiter's clock; Retry-After is measured against it
	Clock clockwork.Clock
}

// Middleware rejects requests over the limit with 429.
// Limiter errors let the request through.
func Middleware(config Config) func(http.Handler) http.Handler {
	if config.KeyFunc == nil {
		config.KeyFunc = ClientIP(false)
	}
	if config.Timeout <= 0 {
		config.Timeout = 100 * time.Millisecond
	}
	if config.Message == "" {
		config.Message = DefaultMessage
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := config.KeyFunc(r)

			ctx, cancel := context.WithTimeout(r.Context(), config.Timeout)
			defer cancel()

			res, err := config.Limiter.Allow(ctx, key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, allowing request")
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))

			if !res.Allowed {
				retry := int(math.Ceil(res.ResetAt.Sub(config.Clock.Now()).Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				if err := json.NewEncoder(w).Encode(map[string]string{"error": config.Message}); err != nil {
					log.Error().Err(err).Msg("failed to encode rate limit response")
				}

				log.Debug().Str("key", key).Str("path", r.URL.Path).Msg("rate limited")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientIP keys requests by remote address. With trustProxy the first
// X-Forwarded-For entry wins.
func ClientIP(trustProxy bool) func(r *http.Request) string {
	return func(r *http.Request) string {
		if trustProxy {
			if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
				first, _, _ := strings.Cut(fwd, ",")
				if ip := strings.TrimSpace(first); ip != "" {
					return "ip:" + ip
				}
			}
		}

		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr
		}
		return "ip:" + host
	}
}
