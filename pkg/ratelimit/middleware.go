package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// blockedBody is the JSON shape written on a 429 response.
type blockedBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// Middleware wraps next with the rate-limit check, in the header-setting
// shape of thushan-olla/internal/app/server_rate_limit.go's Middleware:
// X-RateLimit-* headers are set on every response, not only on block, so
// well-behaved clients can self-throttle before they are ever rejected.
func Middleware(limiter *Limiter, limits Limits) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := ClientID(r)
			result := limiter.Check(r.Context(), clientID, limits)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limits.MaxRequests))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAtMS/1000, 10))

			if !result.Allowed {
				retryAfter := int(time.Until(time.UnixMilli(result.ResetAtMS)).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(blockedBody{
					Error:      "rate_limited",
					Message:    "too many requests",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
