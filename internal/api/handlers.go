package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/chess-arena/internal/directory"
	"github.com/park285/chess-arena/internal/identity"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/render"
	"github.com/park285/chess-arena/internal/session"
	"github.com/park285/chess-arena/pkg/arenadto"
)

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		s.writeError(w, identity.ErrInvalidToken)
		return
	}

	var req arenadto.CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, session.ErrInvalidParticipants)
		return
	}

	whiteID, err := s.resolveParticipant(r, req.White, p)
	if err != nil {
		s.writeError(w, err)
		return
	}
	blackID, err := s.resolveParticipant(r, req.Black, p)
	if err != nil {
		s.writeError(w, err)
		return
	}

	g, err := s.manager.Create(r.Context(), whiteID, blackID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, g.Record())
}

// resolveParticipant maps a request participant to a stable id. "me" binds
// the caller; other values go through the directory when one is configured.
func (s *Server) resolveParticipant(r *http.Request, raw string, p *identity.Principal) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", session.ErrInvalidParticipants
	}
	if raw == "me" {
		return p.UserID, nil
	}
	if s.resolver == nil {
		return raw, nil
	}
	id, err := s.resolver.Resolve(r.Context(), raw)
	if errors.Is(err, directory.ErrUnknownHandle) {
		return "", session.ErrInvalidParticipants
	}
	return id, err
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		s.writeError(w, identity.ErrInvalidToken)
		return
	}

	games, err := s.manager.SessionsFor(r.Context(), p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	records := make([]*arenadto.SessionRecord, 0, len(games))
	for _, g := range games {
		records = append(records, g.Record())
	}
	s.writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	g, err := s.manager.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g.Record())
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		s.writeError(w, identity.ErrInvalidToken)
		return
	}

	var req arenadto.MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Move) == "" {
		s.writeError(w, session.ErrIllegalMove)
		return
	}

	g, err := s.manager.Move(r.Context(), r.PathValue("id"), p.UserID, req.Move)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g.Record())
}

func (s *Server) handleResign(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.Resign)
}

func (s *Server) handleOfferDraw(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.OfferDraw)
}

func (s *Server) handleAcceptDraw(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.AcceptDraw)
}

func (s *Server) handleDeclineDraw(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, s.manager.DeclineDraw)
}

func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, callerID string) (*session.Session, error)) {
	p, ok := PrincipalFrom(r.Context())
	if !ok {
		s.writeError(w, identity.ErrInvalidToken)
		return
	}
	g, err := op(r.Context(), r.PathValue("id"), p.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g.Record())
}

func (s *Server) handleBoardPNG(w http.ResponseWriter, r *http.Request) {
	g, err := s.manager.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := render.Options{Highlight: render.HighlightFromUCI(g.MovesUCI)}
	data, err := s.renderer.RenderPNG(r.Context(), g.FEN, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handlePGN(w http.ResponseWriter, r *http.Request) {
	g, err := s.manager.Fetch(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(session.BuildPGN(g)))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		obslog.L().Error("api_encode_failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, key := http.StatusInternalServerError, "errors.internal"

	switch {
	case errors.Is(err, session.ErrNotFound):
		status, key = http.StatusNotFound, "errors.not_found"
	case errors.Is(err, session.ErrNotAParticipant):
		status, key = http.StatusForbidden, "errors.not_a_participant"
	case errors.Is(err, session.ErrNotYourTurn):
		status, key = http.StatusForbidden, "errors.not_your_turn"
	case errors.Is(err, session.ErrOwnDrawOffer):
		status, key = http.StatusForbidden, "errors.own_draw_offer"
	case errors.Is(err, session.ErrIllegalMove):
		status, key = http.StatusBadRequest, "errors.illegal_move"
	case errors.Is(err, session.ErrInvalidParticipants):
		status, key = http.StatusBadRequest, "errors.invalid_participants"
	case errors.Is(err, session.ErrNoOfferPending):
		status, key = http.StatusBadRequest, "errors.no_offer_pending"
	case errors.Is(err, session.ErrGameOver):
		status, key = http.StatusConflict, "errors.game_over"
	case errors.Is(err, identity.ErrInvalidToken):
		status, key = http.StatusUnauthorized, "errors.unauthorized"
	case errors.Is(err, identity.ErrUnavailable):
		status, key = http.StatusBadGateway, "errors.internal"
	default:
		obslog.L().Error("api_internal_error", zap.Error(err))
	}

	s.writeJSON(w, status, arenadto.ErrorResponse{
		Error:  http.StatusText(status),
		Reason: s.messages.Get(key),
	})
}
