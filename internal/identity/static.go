package identity

import (
	"context"
	"sync"
)

// Static is an in-memory verifier keyed by raw token. Used in tests and
// single-node development setups.
type Static struct {
	mu     sync.RWMutex
	tokens map[string]Principal
}

func NewStatic() *Static {
	return &Static{tokens: make(map[string]Principal)}
}

// Grant binds a token to a principal, overwriting any previous binding.
func (s *Static) Grant(token, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[token] = Principal{UserID: userID}
}

func (s *Static) Verify(_ context.Context, token string) (*Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.tokens[token]
	if !ok {
		return nil, ErrInvalidToken
	}
	out := p
	return &out, nil
}

var _ Verifier = (*Static)(nil)
var _ Verifier = (*Client)(nil)
