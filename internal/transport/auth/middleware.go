package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"collections-ledger/internal/domain"
	"collections-ledger/internal/repository"
)

type ctxKey string

const AgentIDKey ctxKey = "agentID"

// TokenMiddleware authenticates a request by bearer token, falling back to
// the "token" query parameter for websocket upgrades where custom headers
// are not available.
func TokenMiddleware(tokenRepo *repository.AgentAccessTokenRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tok *domain.AgentAccessToken

			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				plainToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
				if plainToken != "" {
					if t, err := tokenRepo.FindTokenByPlainToken(r.Context(), plainToken); err == nil {
						tok = t
					}
				}
			}

			if tok == nil {
				if plainToken := r.URL.Query().Get("token"); plainToken != "" {
					if t, err := tokenRepo.FindTokenByPlainToken(r.Context(), plainToken); err == nil {
						tok = t
					}
				}
			}

			if tok == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if tok.ExpiresAt != nil && tok.ExpiresAt.Before(time.Now()) {
				http.Error(w, "Token expired", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AgentIDKey, tok.AgentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetAgentID(ctx context.Context) (string, error) {
	agentID, ok := ctx.Value(AgentIDKey).(string)
	if !ok || agentID == "" {
		return "", errors.New("agentID not found in context")
	}
	return agentID, nil
}

// WithAgentID is used by tests and internal callers to stamp an agent onto a
// context without going through the middleware.
func WithAgentID(ctx context.Context, agentID string) context.Context {
	return context.WithValue(ctx, AgentIDKey, agentID)
}
