package rules

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

var ErrIllegalMove = errors.New("illegal move")

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Outcome is the terminal report for a position.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeWhiteWon Outcome = "white"
	OutcomeBlackWon Outcome = "black"
	OutcomeDraw     Outcome = "draw"
)

// Result describes an accepted move.
type Result struct {
	SAN     string
	UCI     string
	FEN     string
	Turn    Color
	Outcome Outcome
	Method  string
}

// Replay rebuilds a game from the standard start by applying SAN moves in order.
func Replay(movesSAN []string) (*nchess.Game, error) {
	game := nchess.NewGame()
	for i, mv := range movesSAN {
		if err := game.PushNotationMove(mv, nchess.AlgebraicNotation{}, nil); err != nil {
			return nil, fmt.Errorf("replay move %d (%s): %w", i+1, mv, err)
		}
	}
	return game, nil
}

// FENOf returns the canonical position string after movesSAN.
func FENOf(movesSAN []string) (string, error) {
	game, err := Replay(movesSAN)
	if err != nil {
		return "", err
	}
	return game.FEN(), nil
}

// TurnOf reports the side to move after movesSAN.
func TurnOf(movesSAN []string) (Color, error) {
	game, err := Replay(movesSAN)
	if err != nil {
		return "", err
	}
	return colorFrom(game.Position().Turn()), nil
}

// Apply validates a candidate move against the position after movesSAN and
// returns the canonical notation plus the resulting position and terminal
// report. UCI input is preferred, SAN is the fallback, like player input in
// most clients. Rejections are ErrIllegalMove.
func Apply(movesSAN []string, move string) (Result, error) {
	game, err := Replay(movesSAN)
	if err != nil {
		return Result{}, err
	}
	pos := game.Position()

	raw := strings.TrimSpace(move)
	if raw == "" {
		return Result{}, ErrIllegalMove
	}

	var san, uci string
	if mv, derr := (nchess.UCINotation{}).Decode(pos, strings.ToLower(raw)); derr == nil {
		if err := game.Move(mv, nil); err != nil {
			return Result{}, ErrIllegalMove
		}
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
		uci = mv.String()
	} else {
		if err := game.PushNotationMove(raw, nchess.AlgebraicNotation{}, nil); err != nil {
			return Result{}, ErrIllegalMove
		}
		mv := lastMove(game)
		if mv == nil {
			return Result{}, ErrIllegalMove
		}
		san = nchess.AlgebraicNotation{}.Encode(pos, mv)
		uci = mv.String()
	}

	res := Result{
		SAN:  san,
		UCI:  uci,
		FEN:  game.FEN(),
		Turn: colorFrom(game.Position().Turn()),
	}
	switch game.Outcome() {
	case nchess.WhiteWon:
		res.Outcome = OutcomeWhiteWon
	case nchess.BlackWon:
		res.Outcome = OutcomeBlackWon
	case nchess.Draw:
		res.Outcome = OutcomeDraw
	}
	if res.Outcome != OutcomeNone {
		res.Method = strings.ToLower(game.Method().String())
	}
	return res, nil
}

func lastMove(game *nchess.Game) *nchess.Move {
	moves := game.Moves()
	if len(moves) == 0 {
		return nil
	}
	return moves[len(moves)-1]
}

func colorFrom(c nchess.Color) Color {
	if c == nchess.White {
		return White
	}
	return Black
}
