package ratelimit

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
)

// Middleware rejects requests over quota with 429 and a Retry-After header.
// keyFunc extracts the client key, typically the client IP.
func Middleware(limiter Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retry := limiter.Allow(r.Context(), keyFunc(r))
			if !ok {
				secs := int(math.Ceil(retry.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "too many requests, slow down"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
