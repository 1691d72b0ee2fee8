package arenadto

import "time"

// SessionRecord is the API representation of a game session.
type SessionRecord struct {
	ID        string    `json:"id"`
	WhiteID   string    `json:"white_id"`
	BlackID   string    `json:"black_id"`
	Position  string    `json:"position"`
	MovesSAN  []string  `json:"moves_san"`
	MovesUCI  []string  `json:"moves_uci"`
	Outcome   string    `json:"outcome"`
	Method    string    `json:"outcome_method,omitempty"`
	DrawOffer string    `json:"draw_offer,omitempty"`
	Turn      string    `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
