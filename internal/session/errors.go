package session

import (
	"errors"

	"github.com/park285/chess-arena/internal/rules"
)

var (
	ErrNotFound            = errors.New("session not found")
	ErrGameOver            = errors.New("game is already over")
	ErrNotAParticipant     = errors.New("caller is not a participant")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrNoOfferPending      = errors.New("no draw offer pending")
	ErrOwnDrawOffer        = errors.New("cannot accept own draw offer")
	ErrInvalidParticipants = errors.New("invalid participants")

	// ErrIllegalMove is the codec's rejection, re-exported so callers only
	// depend on this package for failure kinds.
	ErrIllegalMove = rules.ErrIllegalMove
)
