// Package middleware holds the HTTP middleware chain for the janusd read
// API: origin checks, request logging, API-key auth, and Redis-backed rate
// limiting. Each middleware is a func(http.Handler) http.Handler so the
// server can stack them in a fixed order.
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Auth guards the API behind a single static key, presented either as
// "Authorization: Bearer <key>" or in the X-API-Key header. An empty
// configured key disables the check; that is how the local demo runs.
func Auth(apiKey string) func(http.Handler) http.Handler {
	key := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(key) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			presented := presentedKey(r)
			if presented == "" {
				deny(w, http.StatusUnauthorized, "missing API key")
				return
			}
			if subtle.ConstantTimeCompare([]byte(presented), key) != 1 {
				deny(w, http.StatusUnauthorized, "invalid API key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	const bearer = "Bearer "
	if auth := r.Header.Get("Authorization"); len(auth) > len(bearer) &&
		strings.EqualFold(auth[:len(bearer)], bearer) {
		return strings.TrimSpace(auth[len(bearer):])
	}
	return strings.TrimSpace(r.Header.Get("X-API-Key"))
}

// deny writes a small JSON error body. msg must not contain quotes.
func deny(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
