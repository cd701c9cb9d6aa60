package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/staypay-jp/core/internal/auth"
	"github.com/staypay-jp/core/internal/model"
)

type ctxKey int

const identityKey ctxKey = iota

// IdentityFrom returns the authenticated actor, or nil outside the
// authenticated route group.
func IdentityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// Authenticator verifies the bearer token and injects the identity. Webhook
// routes are mounted outside this middleware: the payment notifier does not
// authenticate.
func Authenticator(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				respondJSON(w, http.StatusUnauthorized, errorBody{Message: "認証が必要です"})
				return
			}

			id, err := tokens.Verify(raw)
			if err != nil {
				respondJSON(w, http.StatusUnauthorized, errorBody{Message: "トークンが無効です"})
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
		})
	}
}

// RequireRole guards a route group to the given roles.
func RequireRole(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := IdentityFrom(r.Context())
			if id != nil {
				for _, role := range roles {
					if id.Role == role {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			respondJSON(w, http.StatusForbidden, errorBody{Message: "権限がありません"})
		})
	}
}

// RequestLogger logs one line per request with method, path, status and
// latency.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("requestId", middleware.GetReqID(r.Context())))
		})
	}
}
