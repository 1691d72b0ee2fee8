package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newVerifyServer(t *testing.T, valid map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/verify" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		uid, ok := valid[req.Token]
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(Principal{UserID: uid})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientVerify(t *testing.T) {
	srv := newVerifyServer(t, map[string]string{"tok-alice": "alice"})
	c := NewClient(srv.URL, WithTimeout(2*time.Second))

	p, err := c.Verify(context.Background(), "tok-alice")
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != "alice" {
		t.Fatalf("wrong principal: %+v", p)
	}

	if _, err := c.Verify(context.Background(), "bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if _, err := c.Verify(context.Background(), "  "); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for blank token, got %v", err)
	}
}

func TestClientUnavailable(t *testing.T) {
	srv := newVerifyServer(t, nil)
	c := NewClient(srv.URL, WithTimeout(500*time.Millisecond))
	srv.Close()

	if _, err := c.Verify(context.Background(), "tok"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestStaticVerifier(t *testing.T) {
	s := NewStatic()
	s.Grant("t1", "bob")

	p, err := s.Verify(context.Background(), "t1")
	if err != nil || p.UserID != "bob" {
		t.Fatalf("unexpected result: %+v, %v", p, err)
	}
	if _, err := s.Verify(context.Background(), "t2"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}
