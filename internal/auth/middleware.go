package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
)

// RoleSource resolves the roles currently assigned to a user. It returns
// domain.ErrNotFound for unknown users.
type RoleSource interface {
	Roles(ctx context.Context, userID string) ([]domain.Role, error)
}

type Middleware struct {
	tokens *Tokens
	roles  RoleSource
	logger *slog.Logger
}

func NewMiddleware(tokens *Tokens, roles RoleSource, logger *slog.Logger) *Middleware {
	return &Middleware{
		tokens: tokens,
		roles:  roles,
		logger: logger,
	}
}

// Require rejects requests without a valid bearer token and stores the resolved Caller in
// the request context.
func (m *Middleware) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.WriteError(w, m.logger, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := m.tokens.Parse(raw)
		if err != nil {
			m.logger.Info("rejected token", "error", err)
			httpx.WriteError(w, m.logger, http.StatusUnauthorized, "invalid token")
			return
		}

		roles, err := m.roles.Roles(r.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				httpx.WriteError(w, m.logger, http.StatusUnauthorized, "invalid token")
				return
			}
			m.logger.Error("failed to resolve roles", "error", err, "user_id", claims.Subject)
			httpx.WriteError(w, m.logger, http.StatusInternalServerError, "internal server error")
			return
		}

		caller := domain.Caller{
			ID:    claims.Subject,
			Email: claims.Email,
			Roles: roles,
		}

		next(w, r.WithContext(WithCaller(r.Context(), caller)))
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
