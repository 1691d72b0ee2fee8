package arenadto

// CreateSessionRequest starts a new game between two handles. The caller must
// be one of the two.
type CreateSessionRequest struct {
	White string `json:"white"`
	Black string `json:"black"`
}

// MoveRequest submits a candidate move in UCI or SAN.
type MoveRequest struct {
	Move string `json:"move"`
}

// ErrorResponse carries a machine code and a displayable reason.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}
