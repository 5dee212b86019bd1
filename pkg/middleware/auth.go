package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shashiranjanraj/giftkart/pkg/apperr"
	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/response"
)

// PrincipalLoader resolves a token's user id against the user store. It lets
// the guard reject tokens of deleted accounts and pick up role changes.
type PrincipalLoader func(ctx context.Context, userID uint) (auth.Principal, error)

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// Authenticate rejects requests without a valid bearer token and stores the
// caller in the request context. load may be nil, in which case the token
// claims are trusted as-is.
func Authenticate(load PrincipalLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				response.Error(w, http.StatusUnauthorized, "Not authorized, no token")
				return
			}

			claims, err := auth.ValidateToken(token)
			if err != nil {
				response.Error(w, http.StatusUnauthorized, "Not authorized, token failed")
				return
			}

			p := auth.Principal{UserID: claims.UserID, Role: claims.Role}
			if load != nil {
				p, err = load(r.Context(), claims.UserID)
				if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
					response.Fail(w, r, err)
					return
				}
				if err != nil {
					logger.WithCtx(r.Context()).Debug("auth: principal lookup failed", "user_id", claims.UserID, "error", err)
					response.Error(w, http.StatusUnauthorized, "Not authorized, user not found")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	}
}

// AuthMiddleware is Authenticate without a store lookup.
func AuthMiddleware(next http.Handler) http.Handler {
	return Authenticate(nil)(next)
}
