package controllers

import (
	"net/http"
	"time"

	"go-giftshop/middleware"
	"go-giftshop/utils"

	"github.com/rs/zerolog"
)

// AdminAuthController handles back-office sign in and sign out
type AdminAuthController struct {
	Credentials  utils.AdminCredentials
	Sessions     *utils.SessionManager
	SecureCookie bool
}

// NewAdminAuthController creates a new AdminAuthController
func NewAdminAuthController(credentials utils.AdminCredentials, sessions *utils.SessionManager, secureCookie bool) *AdminAuthController {
	return &AdminAuthController{
		Credentials:  credentials,
		Sessions:     sessions,
		SecureCookie: secureCookie,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the admin credentials and sets the session cookie
func (ac *AdminAuthController) Login(w http.ResponseWriter, r *http.Request) {
	if !ac.Credentials.Configured() || !ac.Sessions.Configured() {
		zerolog.Ctx(r.Context()).Error().Msg("admin login attempted but admin credentials or session secret are not configured")
		writeError(w, http.StatusInternalServerError, "admin login is not configured")
		return
	}

	var creds loginRequest
	if err := decodeJSON(w, r, &creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !ac.Credentials.Match(creds.Email, creds.Password) {
		zerolog.Ctx(r.Context()).Warn().Str("ip", middleware.ClientIP(r)).Msg("failed admin login")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := ac.Sessions.Issue(ac.Credentials.Email)
	if err != nil {
		internalError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(ac.Sessions.TTL() / time.Second),
		HttpOnly: true,
		Secure:   ac.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeOK(w)
}

// Logout clears the session cookie
func (ac *AdminAuthController) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   ac.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeOK(w)
}

// Session reports who is signed in
func (ac *AdminAuthController) Session(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AdminFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"email":     claims.Email,
		"expiresAt": time.Unix(claims.ExpiresAt, 0).UTC(),
	})
}
