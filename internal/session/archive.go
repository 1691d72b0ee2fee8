package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// Archive persists finished games to Postgres for history and export.
// Failures here never roll back the live session record.
type Archive struct {
	db *sql.DB
}

func NewArchive(databaseURL string) (*Archive, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

// DB exposes the underlying pool for collaborators sharing the connection.
func (a *Archive) DB() *sql.DB {
	if a == nil {
		return nil
	}
	return a.db
}

func (a *Archive) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// SaveResult upserts a terminal session into arena_games.
func (a *Archive) SaveResult(ctx context.Context, g *Session) error {
	if a == nil || a.db == nil || g == nil {
		return nil
	}

	pgn := BuildPGN(g)
	movesSANRaw, _ := json.Marshal(g.MovesSAN)
	movesUCIRaw, _ := json.Marshal(g.MovesUCI)
	duration := g.UpdatedAt.Sub(g.CreatedAt).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO arena_games (
	    session_id, white_id, black_id,
	    outcome, outcome_method, final_fen,
	    moves_san, moves_uci, pgn,
	    started_at, ended_at, duration_ms
	  ) VALUES (
	    $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
	  ) ON CONFLICT (session_id) DO UPDATE SET
	    outcome=EXCLUDED.outcome,
	    outcome_method=EXCLUDED.outcome_method,
	    final_fen=EXCLUDED.final_fen,
	    moves_san=EXCLUDED.moves_san,
	    moves_uci=EXCLUDED.moves_uci,
	    pgn=EXCLUDED.pgn,
	    ended_at=EXCLUDED.ended_at,
	    duration_ms=EXCLUDED.duration_ms`

	_, err := a.db.ExecContext(ctx, q,
		g.ID, g.WhiteID, g.BlackID,
		string(g.Outcome), g.Method, g.FEN,
		string(movesSANRaw), string(movesUCIRaw), pgn,
		g.CreatedAt, g.UpdatedAt, duration,
	)
	return err
}

// BuildPGN renders the session's move log as a PGN document.
func BuildPGN(g *Session) string {
	if g == nil {
		return ""
	}
	result := pgnResultToken(g.Outcome)

	var b strings.Builder
	date := g.UpdatedAt
	if date.IsZero() {
		date = time.Now()
	}
	b.WriteString("[Event \"chess-arena\"]\n")
	b.WriteString(fmt.Sprintf("[Site \"%s\"]\n", sanitizePGN(g.ID)))
	b.WriteString(fmt.Sprintf("[Date \"%04d.%02d.%02d\"]\n", date.Year(), int(date.Month()), date.Day()))
	b.WriteString(fmt.Sprintf("[White \"%s\"]\n", sanitizePGN(g.WhiteID)))
	b.WriteString(fmt.Sprintf("[Black \"%s\"]\n", sanitizePGN(g.BlackID)))
	if strings.TrimSpace(g.Method) != "" {
		b.WriteString(fmt.Sprintf("[Termination \"%s\"]\n", sanitizePGN(strings.ToLower(g.Method))))
	}
	b.WriteString(fmt.Sprintf("[Result \"%s\"]\n\n", result))

	for i := 0; i < len(g.MovesSAN); i += 2 {
		turn := (i / 2) + 1
		b.WriteString(fmt.Sprintf("%d. %s", turn, strings.TrimSpace(g.MovesSAN[i])))
		if i+1 < len(g.MovesSAN) {
			b.WriteString(" ")
			b.WriteString(strings.TrimSpace(g.MovesSAN[i+1]))
		}
		b.WriteString(" ")
	}
	b.WriteString(result)
	return b.String()
}

func pgnResultToken(o Outcome) string {
	switch o {
	case OutcomeWhiteWon:
		return "1-0"
	case OutcomeBlackWon:
		return "0-1"
	case OutcomeDrawn:
		return "1/2-1/2"
	default:
		return "*"
	}
}

func sanitizePGN(s string) string {
	s = strings.ReplaceAll(s, "\\", " ")
	s = strings.ReplaceAll(s, "\"", "'")
	return strings.TrimSpace(s)
}
