package arenadto

// Event types pushed to subscribed viewers, one topic per session.
const (
	EventGameStarted = "gameStarted"
	EventMoveMade    = "moveMade"
	EventDrawOffered = "drawOffered"
	EventDrawReset   = "drawReset"
	EventGameEnded   = "gameEnded"
)

// Client → server signal types.
const (
	SignalJoinSession = "joinSession"
	SignalDeclineDraw = "declineDraw"
)

// Event is the wire format for realtime session updates.
type Event struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Position  string `json:"position,omitempty"`
	Turn      string `json:"turn,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Reason    string `json:"reason,omitempty"`
	By        string `json:"by,omitempty"`
}

// Signal is the wire format for viewer-originated messages.
type Signal struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}
