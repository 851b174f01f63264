package utils

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const AdminRole = "admin"

var (
	ErrSessionNotConfigured = errors.New("session secret is not configured")
	ErrInvalidSession       = errors.New("invalid admin session")
)

// Claims represents the admin session claims
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.StandardClaims
}

// SessionManager issues and verifies the signed admin session tokens carried
// in the admin cookie.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionManager(secret string, ttl time.Duration) *SessionManager {
	return &SessionManager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

func (m *SessionManager) Configured() bool {
	return len(m.secret) > 0
}

func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue generates a session token for the admin
func (m *SessionManager) Issue(email string) (string, time.Time, error) {
	if !m.Configured() {
		return "", time.Time{}, ErrSessionNotConfigured
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		Email: email,
		Role:  AdminRole,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: expiresAt.Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token.SignedString: %w", err)
	}
	return tokenString, expiresAt, nil
}

// Verify accepts only unexpired HS256 tokens with the admin role.
func (m *SessionManager) Verify(tokenString string) (*Claims, error) {
	if !m.Configured() || tokenString == "" {
		return nil, ErrInvalidSession
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Role != AdminRole {
		return nil, ErrInvalidSession
	}
	return claims, nil
}

// AdminCredentials are the single back-office account. PasswordHash, a bcrypt
// hash, takes precedence over the plain Password.
type AdminCredentials struct {
	Email        string
	Password     string
	PasswordHash string
}

func (c AdminCredentials) Configured() bool {
	return c.Email != "" && (c.Password != "" || c.PasswordHash != "")
}

// Match compares both fields without short-circuiting on the email.
func (c AdminCredentials) Match(email, password string) bool {
	emailOK := subtle.ConstantTimeCompare(
		[]byte(strings.ToLower(strings.TrimSpace(email))),
		[]byte(strings.ToLower(c.Email)),
	) == 1

	var passwordOK bool
	if c.PasswordHash != "" {
		passwordOK = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	} else {
		passwordOK = subtle.ConstantTimeCompare([]byte(password), []byte(c.Password)) == 1
	}

	return emailOK && passwordOK
}
