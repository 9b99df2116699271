package server

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"golang.org/x/crypto/bcrypt"
)

const (
	sessionCookie = "session"
	sessionTTL    = 12 * time.Hour
)

var ErrNoPassword = errors.New("dashboard password is not configured")

// Auth is the shared-password gate in front of the dashboard API. A correct
// password buys an HS256 session token.
type Auth struct {
	hash       []byte
	signingKey []byte
	now        func() time.Time
}

// NewAuth prepares the gate. password may be plain text or an existing
// bcrypt hash. An empty signingKey gets a random per-process key, so tokens
// do not survive a restart.
func NewAuth(password, signingKey string) (*Auth, error) {
	if password == "" {
		return nil, ErrNoPassword
	}

	hash := []byte(password)
	if _, err := bcrypt.Cost(hash); err != nil {
		hash, err = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
	}

	key := []byte(signingKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}

	return &Auth{hash: hash, signingKey: key, now: time.Now}, nil
}

func (a *Auth) checkPassword(password string) bool {
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// issue signs a new session token and returns it with its expiry.
func (a *Auth) issue() (string, time.Time, error) {
	now := a.now()
	exp := now.Add(sessionTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   "dashboard",
		IssuedAt:  now.Unix(),
		ExpiresAt: exp.Unix(),
	})
	signed, err := token.SignedString(a.signingKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (a *Auth) valid(tokenString string) bool {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.StandardClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.signingKey, nil
	})
	return err == nil && token.Valid
}

// Middleware rejects requests without a valid session token, taken from the
// Authorization header or the session cookie.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.valid(sessionToken(r)) {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}
