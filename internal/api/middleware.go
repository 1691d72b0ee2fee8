package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/park285/chess-arena/internal/identity"
)

type contextKey int

const principalContextKey contextKey = iota

// PrincipalFrom returns the authenticated principal, if any.
func PrincipalFrom(ctx context.Context) (*identity.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(*identity.Principal)
	return p, ok
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := parseBearerToken(r)
		if err != nil {
			s.writeError(w, identity.ErrInvalidToken)
			return
		}
		p, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// optionalAuth attaches a principal when a token is present but lets
// anonymous requests through. Used for the viewer socket.
func (s *Server) optionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := parseBearerToken(r)
		if err != nil {
			if token = strings.TrimSpace(r.URL.Query().Get("token")); token == "" {
				next.ServeHTTP(w, r)
				return
			}
		}
		p, err := s.verifier.Verify(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), principalContextKey, p)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func parseBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", errors.New("invalid authorization header format")
	}
	return parts[1], nil
}
