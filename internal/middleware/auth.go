package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/advocacia-ai/painel/internal/auth"
	"github.com/advocacia-ai/painel/internal/model"
	"github.com/advocacia-ai/painel/internal/service"
)

// Resolver turns a bearer token into the principal it was issued to.
type Resolver interface {
	Resolve(ctx context.Context, token string) (model.Principal, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Resolver Resolver
}

// Authenticate returns a middleware that resolves the bearer token on every
// request and injects the principal into the request context. Requests that
// cannot be resolved never reach the next handler.
func Authenticate(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)

			principal, err := cfg.Resolver.Resolve(r.Context(), token)
			if err != nil {
				reason := "internal"
				var authErr *service.AuthError
				if errors.As(err, &authErr) {
					reason = authErr.Reason
				}

				switch {
				case errors.Is(err, service.ErrForbidden):
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", reason),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, http.StatusForbidden, "FORBIDDEN", "Account is inactive")
				case errors.Is(err, service.ErrUnauthorized):
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", reason),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
					writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing access token")
				default:
					cfg.Logger.Error("identity resolution failed",
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred")
				}
				return
			}

			setLogUserID(r.Context(), principal.ID)
			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractBearerToken returns the token from "Authorization: Bearer <token>",
// or "" when the header is absent or uses another scheme.
func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
