package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-giftshop/utils"
)

func TestAdminGate(t *testing.T) {
	sessions := utils.NewSessionManager("0123456789abcdef", time.Hour)
	valid, _, err := sessions.Issue("admin@example.com")
	require.NoError(t, err)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	gate := AdminGate(sessions)(next)

	tests := []struct {
		name         string
		path         string
		cookie       string
		wantStatus   int
		wantLocation string
	}{
		{name: "public page without cookie", path: "/public-page", wantStatus: http.StatusTeapot},
		{name: "public page with cookie", path: "/public-page", cookie: valid, wantStatus: http.StatusTeapot},
		{name: "similar prefix is not gated", path: "/administrar", wantStatus: http.StatusTeapot},
		{name: "login with session", path: "/admin/login", cookie: valid, wantStatus: http.StatusFound, wantLocation: "/admin/productos"},
		{name: "login without session", path: "/admin/login", wantStatus: http.StatusTeapot},
		{name: "login with forged cookie", path: "/admin/login", cookie: "1", wantStatus: http.StatusTeapot},
		{name: "admin page with session", path: "/admin/pedidos", cookie: valid, wantStatus: http.StatusTeapot},
		{name: "admin page without session", path: "/admin/anything", wantStatus: http.StatusFound, wantLocation: "/admin/login?from=/admin/anything"},
		{name: "nested admin page", path: "/admin/pedidos/DD-250214-00001", wantStatus: http.StatusFound, wantLocation: "/admin/login?from=/admin/pedidos/DD-250214-00001"},
		{name: "admin root", path: "/admin", cookie: "1", wantStatus: http.StatusFound, wantLocation: "/admin/login?from=/admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AdminCookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			gate.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
		})
	}
}

func TestLoginRedirectEscapesQuery(t *testing.T) {
	assert.Equal(t, "/admin/login?from=/admin/a%26b", LoginRedirect("/admin/a&b"))
}

func TestRequireAdmin(t *testing.T) {
	sessions := utils.NewSessionManager("0123456789abcdef", time.Hour)
	valid, _, err := sessions.Issue("admin@example.com")
	require.NoError(t, err)

	var gotEmail string
	handler := RequireAdmin(sessions)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := AdminFromContext(r.Context())
		require.True(t, ok)
		gotEmail = claims.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"unauthorized"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookieName, Value: valid})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "admin@example.com", gotEmail)
}
