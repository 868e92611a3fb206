package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/tjfontaine/sui-agent/internal/auth"
	"github.com/tjfontaine/sui-agent/internal/domain"
)

type principalKey struct{}

// AuthMiddleware requires a configured API key in the Authorization header,
// with or without the Bearer prefix.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("Authorization")
			if apiKey == "" {
				writeError(w, domain.ErrAuthentication("Missing Authorization header"))
				return
			}
			apiKey = strings.TrimPrefix(apiKey, "Bearer ")

			p, err := authenticator.ValidateAPIKey(apiKey)
			if err != nil {
				writeError(w, domain.ErrAuthentication("Invalid API key").WithCode(domain.ErrorCodeInvalidAPIKey))
				return
			}

			AddLogField(r.Context(), "api_key", p.Description)
			ctx := context.WithValue(r.Context(), principalKey{}, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPrincipal returns the authenticated caller, or nil when auth is off.
func GetPrincipal(ctx context.Context) *auth.Principal {
	if p, ok := ctx.Value(principalKey{}).(*auth.Principal); ok {
		return p
	}
	return nil
}
