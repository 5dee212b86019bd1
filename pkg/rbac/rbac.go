// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/response"
)

// HasRole returns middleware that allows access only to users with the given role.
// Requires the auth middleware to have already run.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := auth.FromContext(r.Context())
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[p.Role] {
				response.Error(w, http.StatusForbidden, "Not authorized as an admin")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Admin allows only admins through.
func Admin(next http.Handler) http.Handler {
	return HasRole(auth.RoleAdmin)(next)
}
