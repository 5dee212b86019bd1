package reqid_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shashiranjanraj/giftkart/pkg/reqid"
)

func TestMiddleware(t *testing.T) {
	var seen string
	h := reqid.Middleware()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = reqid.FromCtx(r.Context())
	}))

	cases := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"generated", "", false},
		{"upstream", "edge-7f3a.01", true},
		{"injection", "abc\r\nSet-Cookie: x", false},
		{"oversized", strings.Repeat("a", 65), false},
	}
	for _, tc := range cases {
		tc := tc // per-iteration copy (go 1.21 loop semantics)
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(reqid.Header, tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.NotEmpty(t, seen)
			assert.Equal(t, seen, rec.Header().Get(reqid.Header))
			if tc.reuse {
				assert.Equal(t, tc.header, seen)
			} else {
				assert.NotEqual(t, tc.header, seen)
			}
		})
	}
}
