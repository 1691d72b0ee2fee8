package api

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/directory"
	"github.com/park285/chess-arena/internal/hub"
	"github.com/park285/chess-arena/internal/identity"
	"github.com/park285/chess-arena/internal/msgcat"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/render"
	"github.com/park285/chess-arena/internal/session"
)

// Server is the HTTP surface over the session manager. Reads are public;
// every mutation requires a verified principal.
type Server struct {
	http     *http.Server
	manager  *session.Manager
	hub      *hub.Hub
	verifier identity.Verifier
	resolver directory.Resolver
	renderer render.BoardRenderer
	messages *msgcat.Catalog
}

type Options struct {
	Addr     string
	Manager  *session.Manager
	Hub      *hub.Hub
	Verifier identity.Verifier
	Resolver directory.Resolver
	Renderer render.BoardRenderer
	Messages *msgcat.Catalog
}

func NewServer(opts Options) *Server {
	s := &Server{
		manager:  opts.Manager,
		hub:      opts.Hub,
		verifier: opts.Verifier,
		resolver: opts.Resolver,
		renderer: opts.Renderer,
		messages: opts.Messages,
	}
	if s.renderer == nil {
		s.renderer = render.NewBoardRenderer()
	}
	if s.messages == nil {
		s.messages, _ = msgcat.New("")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/sessions", s.requireAuth(http.HandlerFunc(s.handleCreateSession)))
	mux.Handle("GET /api/sessions", s.requireAuth(http.HandlerFunc(s.handleListSessions)))
	mux.HandleFunc("GET /api/sessions/{id}", s.handleGetSession)
	mux.Handle("POST /api/sessions/{id}/moves", s.requireAuth(http.HandlerFunc(s.handleMove)))
	mux.Handle("POST /api/sessions/{id}/resign", s.requireAuth(http.HandlerFunc(s.handleResign)))
	mux.Handle("POST /api/sessions/{id}/draw/offer", s.requireAuth(http.HandlerFunc(s.handleOfferDraw)))
	mux.Handle("POST /api/sessions/{id}/draw/accept", s.requireAuth(http.HandlerFunc(s.handleAcceptDraw)))
	mux.Handle("POST /api/sessions/{id}/draw/decline", s.requireAuth(http.HandlerFunc(s.handleDeclineDraw)))
	mux.HandleFunc("GET /api/sessions/{id}/board.png", s.handleBoardPNG)
	mux.HandleFunc("GET /api/sessions/{id}/pgn", s.handlePGN)
	mux.Handle("GET /ws", s.optionalAuth(http.HandlerFunc(s.handleWS)))

	s.http = &http.Server{Addr: opts.Addr, Handler: mux}
	return s
}

// Handler exposes the routing table for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func (s *Server) Start() error {
	obslog.L().Info("api_listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if p, ok := PrincipalFrom(r.Context()); ok {
		userID = p.UserID
	}
	s.hub.ServeWS(w, r, userID)
}
