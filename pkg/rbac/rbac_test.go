package rbac_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/giftkart/pkg/auth"
	"github.com/shashiranjanraj/giftkart/pkg/rbac"
)

func serve(h http.Handler, p *auth.Principal) int {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if p != nil {
		req = req.WithContext(auth.WithPrincipal(req.Context(), *p))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAdminGuard(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rbac.Admin(ok)

	assert.Equal(t, http.StatusUnauthorized, serve(h, nil))
	assert.Equal(t, http.StatusForbidden, serve(h, &auth.Principal{UserID: 1, Role: auth.RoleUser}))
	assert.Equal(t, http.StatusNoContent, serve(h, &auth.Principal{UserID: 2, Role: auth.RoleAdmin}))
}

func TestHasRoleMultiple(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	h := rbac.HasRole("editor", auth.RoleAdmin)(ok)

	assert.Equal(t, http.StatusOK, serve(h, &auth.Principal{Role: "editor"}))
	assert.Equal(t, http.StatusForbidden, serve(h, &auth.Principal{Role: auth.RoleUser}))
}
