package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go-giftshop/utils"
)

const (
	AdminCookieName = "admin_session"

	AdminPrefix      = "/admin"
	AdminLoginPath   = "/admin/login"
	AdminLandingPath = "/admin/productos"
)

// Key type for context
type contextKey string

const AdminContextKey = contextKey("admin")

// AdminFromContext returns the session claims RequireAdmin or AdminGate
// attached to the request.
func AdminFromContext(ctx context.Context) (*utils.Claims, bool) {
	claims, ok := ctx.Value(AdminContextKey).(*utils.Claims)
	return claims, ok
}

func adminSession(r *http.Request, sessions *utils.SessionManager) (*utils.Claims, bool) {
	cookie, err := r.Cookie(AdminCookieName)
	if err != nil {
		return nil, false
	}
	claims, err := sessions.Verify(cookie.Value)
	if err != nil {
		return nil, false
	}
	return claims, true
}

func isAdminPage(path string) bool {
	return path == AdminPrefix || strings.HasPrefix(path, AdminPrefix+"/")
}

func isLoginPage(path string) bool {
	return path == AdminLoginPath || path == AdminLoginPath+"/"
}

// LoginRedirect is the login URL that returns to path after signing in.
func LoginRedirect(path string) string {
	from := strings.ReplaceAll(url.QueryEscape(path), "%2F", "/")
	return AdminLoginPath + "?from=" + from
}

// AdminGate guards the admin pages. Requests outside the admin prefix pass
// through untouched. A signed-in admin is sent from the login page to the
// landing page; anyone else is sent from other admin pages to the login page.
func AdminGate(sessions *utils.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if !isAdminPage(path) {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := adminSession(r, sessions)

			if isLoginPage(path) {
				if ok {
					http.Redirect(w, r, AdminLandingPath, http.StatusFound)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			if !ok {
				http.Redirect(w, r, LoginRedirect(path), http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin guards admin API routes, answering 401 JSON without a valid
// session.
func RequireAdmin(sessions *utils.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := adminSession(r, sessions)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			// Attach admin information to the request context
			ctx := context.WithValue(r.Context(), AdminContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
