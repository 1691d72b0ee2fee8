package identity

import (
	"context"
	"errors"
)

// Principal is the authenticated caller as reported by the identity service.
type Principal struct {
	UserID string `json:"user_id"`
	Handle string `json:"handle,omitempty"`
}

var (
	// ErrInvalidToken marks a token the identity service rejected.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrUnavailable marks a transport-level failure reaching the service.
	ErrUnavailable = errors.New("identity: service unavailable")
)

// Verifier resolves a bearer token to the principal it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}
