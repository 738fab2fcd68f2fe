package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tonyxmella66/prompt-tester/pkg/observability"
)

// Middleware creates HTTP middleware from an AuthChain and optional
// RateLimiter. It checks the bypass list, runs authentication, injects the
// identity into the request context, and optionally enforces rate limits.
// Rejections use the gateway's {"detail": ...} error shape.
func Middleware(chain *AuthChain, limiter RateLimiter, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check bypass list.
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			// Run auth chain.
			result := chain.Authenticate(r.Context(), r)

			if result.Decision == No {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				writeDetail(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			if result.Decision != Yes || result.Identity == nil {
				writeDetail(w, http.StatusUnauthorized, "Authorization header missing")
				return
			}

			// Validate identity.
			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				writeDetail(w, http.StatusInternalServerError, "internal authentication error")
				return
			}

			slog.Debug("authentication succeeded",
				"subject", result.Identity.Subject,
				"path", r.URL.Path,
				"remote_addr", r.RemoteAddr,
			)

			// Rate limiting (if configured).
			if limiter != nil {
				if err := limiter.Allow(r.Context(), result.Identity); err != nil {
					slog.Warn("rate limit exceeded",
						"subject", result.Identity.Subject,
						"tier", result.Identity.ServiceTier,
					)
					observability.RateLimitRejectedTotal.WithLabelValues(tierLabel(result.Identity)).Inc()
					status := http.StatusTooManyRequests
					if !errors.Is(err, ErrTooManyRequests) {
						status = http.StatusInternalServerError
					}
					writeDetail(w, status, err.Error())
					return
				}
			}

			// Inject identity into context.
			ctx := SetIdentity(r.Context(), result.Identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/health", "/metrics"}

func tierLabel(id *Identity) string {
	if id.ServiceTier == "" {
		return "default"
	}
	return id.ServiceTier
}

// writeDetail emits a {"detail": msg} error body with the given status.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": msg})
}
