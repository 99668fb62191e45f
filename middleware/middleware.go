package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v4"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/service"
)

const (
	KeyJwtSessionCookieName = "jwt_session"
)

var (
	jwtSecret   []byte
	jwtSecretMu sync.RWMutex
)

// SetJWTSecret sets the HMAC key session tokens are signed with
func SetJWTSecret(secret string) {
	jwtSecretMu.Lock()
	defer jwtSecretMu.Unlock()
	jwtSecret = []byte(secret)
}

func secretKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
	}
	jwtSecretMu.RLock()
	defer jwtSecretMu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, errors.New("jwt secret is not configured")
	}
	return jwtSecret, nil
}

// tokenFromRequest reads the session cookie, falling back to a bearer token
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(KeyJwtSessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// JWTMiddleware lets requests with a valid session token through and puts
// their claims in the request context
func JWTMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw := tokenFromRequest(r)
		if raw == "" {
			http.Error(w, "session token not found, please login", http.StatusUnauthorized)
			return
		}

		var claims service.UserCredentialClaims
		token, err := jwt.ParseWithClaims(raw, &claims, secretKey)
		if err != nil || !token.Valid {
			log.Warnf("rejected session token, %v", err)
			http.Error(w, "invalid or expired session token, please login again", http.StatusUnauthorized)
			return
		}

		handler(w, r.WithContext(service.ContextWithClaims(r.Context(), claims)))
	}
}
