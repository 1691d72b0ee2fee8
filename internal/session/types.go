package session

import (
	"time"

	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/arenadto"
)

// Outcome is the lifecycle result of a session. It transitions exactly once
// from undecided to a terminal value and never back.
type Outcome string

const (
	OutcomeUndecided Outcome = "undecided"
	OutcomeWhiteWon  Outcome = "white"
	OutcomeBlackWon  Outcome = "black"
	OutcomeDrawn     Outcome = "draw"
)

// Session is the persisted state of one match. White is the first mover.
type Session struct {
	ID        string    `json:"id"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	FEN       string    `json:"fen"`
	MovesSAN  []string  `json:"moves_san"`
	MovesUCI  []string  `json:"moves_uci"`
	Outcome   Outcome   `json:"outcome"`
	Method    string    `json:"outcome_method,omitempty"`
	DrawOffer string    `json:"draw_offer,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether the session reached a final outcome.
func (s *Session) Terminal() bool { return s.Outcome != OutcomeUndecided }

// Turn derives the side to move from move-log parity, independent of clocks.
func (s *Session) Turn() rules.Color {
	if len(s.MovesSAN)%2 == 0 {
		return rules.White
	}
	return rules.Black
}

// OnTurnID returns the participant whose turn it is.
func (s *Session) OnTurnID() string {
	if s.Turn() == rules.White {
		return s.WhiteID
	}
	return s.BlackID
}

// IsParticipant reports whether id is one of the two bound players.
func (s *Session) IsParticipant(id string) bool {
	return id != "" && (id == s.WhiteID || id == s.BlackID)
}

// OpponentOf returns the other participant, or "" when id is not bound.
func (s *Session) OpponentOf(id string) string {
	if id == s.WhiteID {
		return s.BlackID
	}
	if id == s.BlackID {
		return s.WhiteID
	}
	return ""
}

// Record converts the session to its API representation.
func (s *Session) Record() *arenadto.SessionRecord {
	return &arenadto.SessionRecord{
		ID:        s.ID,
		WhiteID:   s.WhiteID,
		BlackID:   s.BlackID,
		Position:  s.FEN,
		MovesSAN:  append([]string(nil), s.MovesSAN...),
		MovesUCI:  append([]string(nil), s.MovesUCI...),
		Outcome:   string(s.Outcome),
		Method:    s.Method,
		DrawOffer: s.DrawOffer,
		Turn:      string(s.Turn()),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}
