package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

type callerKey struct{}

// caller is shared between Logging and Auth for one request. Auth may run
// on the timeout handler's goroutine.
type caller struct {
	mu      sync.Mutex
	subject string
}

// withCaller returns r carrying a caller, reusing one already attached.
func withCaller(r *http.Request) (*http.Request, *caller) {
	if c, ok := r.Context().Value(callerKey{}).(*caller); ok {
		return r, c
	}
	c := &caller{}
	return r.WithContext(context.WithValue(r.Context(), callerKey{}, c)), c
}

// Subject returns the authenticated token subject, if any.
func Subject(ctx context.Context) string {
	c, ok := ctx.Value(callerKey{}).(*caller)
	if !ok {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subject
}

// Auth requires a bearer token signed with secret using HS256. Browsers
// cannot set headers on websocket requests, so the token may also be
// passed as the access_token query parameter.
func Auth(secret []byte) func(http.Handler) http.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (any, error) { return secret, nil }

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				raw = r.URL.Query().Get("access_token")
			}
			if raw == "" {
				unauthorized(w, "Authorization header required")
				return
			}

			claims := &jwt.RegisteredClaims{}
			if _, err := parser.ParseWithClaims(raw, claims, keyFunc); err != nil {
				unauthorized(w, "Invalid token")
				return
			}

			r, c := withCaller(r)
			c.mu.Lock()
			c.subject = claims.Subject
			c.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="walkwise"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
