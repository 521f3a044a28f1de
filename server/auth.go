package server

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

const tokenBytes = 32

// ErrUnauthorized is returned for missing or wrong bearer tokens.
var ErrUnauthorized = errors.New("unauthorized")

// GenerateToken returns a random 64 character hex token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// validateToken checks the request's bearer token against expected using a
// constant-time comparison. Browsers cannot set headers on websocket
// upgrades, so a ?token= query parameter is accepted as well.
func validateToken(r *http.Request, expected string) error {
	token := r.URL.Query().Get("token")
	if header := r.Header.Get("Authorization"); header != "" {
		const bearerPrefix = "Bearer "
		if !strings.HasPrefix(header, bearerPrefix) {
			return ErrUnauthorized
		}
		token = header[len(bearerPrefix):]
	}
	if token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}
			if err := validateToken(r, token); err != nil {
				writeMappedError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
