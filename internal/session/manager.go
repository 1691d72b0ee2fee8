package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/internal/rules"
	"github.com/park285/chess-arena/pkg/arenadto"
	"go.uber.org/zap"
)

// Publisher fans a committed event out to every viewer of a session. It must
// be non-blocking with respect to slow subscribers.
type Publisher interface {
	Publish(sessionID string, ev arenadto.Event)
}

// Manager owns the per-session state machine: lifecycle, turn authority, the
// draw sub-protocol, and terminal outcomes. Mutations for one session are
// serialized through a keyed lock; different sessions never contend.
type Manager struct {
	store   *Store
	pub     Publisher
	archive *Archive
	locks   *keyLocks
}

func NewManager(store *Store, pub Publisher) *Manager {
	return &Manager{store: store, pub: pub, locks: newKeyLocks()}
}

// AttachPublisher wires the event fan-out. Allows the hub to be constructed
// after the manager when the two reference each other.
func (m *Manager) AttachPublisher(pub Publisher) {
	if m != nil {
		m.pub = pub
	}
}

// AttachArchive wires a database archive for finished games.
func (m *Manager) AttachArchive(a *Archive) {
	if m != nil {
		m.archive = a
	}
}

// Create starts a new session between two resolved participant ids and
// broadcasts gameStarted. White moves first.
func (m *Manager) Create(ctx context.Context, whiteID, blackID string) (*Session, error) {
	whiteID = strings.TrimSpace(whiteID)
	blackID = strings.TrimSpace(blackID)
	if whiteID == "" || blackID == "" || whiteID == blackID {
		return nil, ErrInvalidParticipants
	}

	now := time.Now()
	g := &Session{
		ID:        uuid.NewString(),
		WhiteID:   whiteID,
		BlackID:   blackID,
		FEN:       rules.StartingFEN,
		MovesSAN:  []string{},
		MovesUCI:  []string{},
		Outcome:   OutcomeUndecided,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.store.Insert(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("session_create",
		zap.String("session_id", g.ID),
		zap.String("white_id", whiteID),
		zap.String("black_id", blackID),
	)
	m.publish(g.ID, arenadto.Event{
		Type:      arenadto.EventGameStarted,
		SessionID: g.ID,
		Position:  g.FEN,
		Turn:      string(g.Turn()),
	})
	return g, nil
}

// Fetch returns the session read-only. ErrNotFound is its only failure kind.
func (m *Manager) Fetch(ctx context.Context, id string) (*Session, error) {
	g, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	return g, nil
}

// SessionsFor lists every session the user participates in, newest first.
func (m *Manager) SessionsFor(ctx context.Context, userID string) ([]*Session, error) {
	return m.store.SessionsByUser(ctx, userID)
}

// Move applies a candidate move for the caller. The full read-validate-
// mutate-persist sequence runs under the session's exclusive scope; the
// terminal check therefore never acts on a stale read.
func (m *Manager) Move(ctx context.Context, id, callerID, move string) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	g, err := m.loadForMutation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if g.OnTurnID() != callerID {
		return nil, ErrNotYourTurn
	}

	res, err := rules.Apply(g.MovesSAN, move)
	if err != nil {
		return nil, err
	}

	g.MovesSAN = append(g.MovesSAN, res.SAN)
	g.MovesUCI = append(g.MovesUCI, res.UCI)
	g.FEN = res.FEN
	g.DrawOffer = ""
	g.UpdatedAt = time.Now()
	switch res.Outcome {
	case rules.OutcomeWhiteWon:
		g.Outcome = OutcomeWhiteWon
		g.Method = res.Method
	case rules.OutcomeBlackWon:
		g.Outcome = OutcomeBlackWon
		g.Method = res.Method
	case rules.OutcomeDraw:
		g.Outcome = OutcomeDrawn
		g.Method = res.Method
	}

	if err := m.persist(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("session_move",
		zap.String("session_id", g.ID),
		zap.String("user_id", callerID),
		zap.String("san", res.SAN),
		zap.String("turn", string(g.Turn())),
		zap.String("outcome", string(g.Outcome)),
	)
	ev := arenadto.Event{
		Type:      arenadto.EventMoveMade,
		SessionID: g.ID,
		Position:  g.FEN,
		Turn:      string(g.Turn()),
	}
	if g.Terminal() {
		ev.Outcome = string(g.Outcome)
		ev.Reason = g.Method
	}
	m.publish(g.ID, ev)
	m.archiveIfFinal(ctx, g)
	return g, nil
}

// Resign ends the game in the opponent's favor.
func (m *Manager) Resign(ctx context.Context, id, callerID string) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	g, err := m.loadForMutation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}

	if callerID == g.WhiteID {
		g.Outcome = OutcomeBlackWon
	} else {
		g.Outcome = OutcomeWhiteWon
	}
	g.Method = "resignation"
	g.DrawOffer = ""
	g.UpdatedAt = time.Now()

	if err := m.persist(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("session_resign",
		zap.String("session_id", g.ID),
		zap.String("resigner", callerID),
		zap.String("outcome", string(g.Outcome)),
	)
	m.publish(g.ID, arenadto.Event{
		Type:      arenadto.EventGameEnded,
		SessionID: g.ID,
		Position:  g.FEN,
		Outcome:   string(g.Outcome),
		Reason:    "resignation",
	})
	m.archiveIfFinal(ctx, g)
	return g, nil
}

// OfferDraw records a standing offer by the caller. Re-offering by the same
// side is a no-op; an offer by the other side overwrites the standing one —
// acceptance stays a distinct explicit action.
func (m *Manager) OfferDraw(ctx context.Context, id, callerID string) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	g, err := m.loadForMutation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if g.DrawOffer == callerID {
		return g, nil
	}

	g.DrawOffer = callerID
	g.UpdatedAt = time.Now()
	if err := m.persist(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("session_draw_offer",
		zap.String("session_id", g.ID),
		zap.String("by", callerID),
	)
	m.publish(g.ID, arenadto.Event{
		Type:      arenadto.EventDrawOffered,
		SessionID: g.ID,
		By:        callerID,
	})
	return g, nil
}

// AcceptDraw ends the game drawn. Only the non-offering side may accept.
func (m *Manager) AcceptDraw(ctx context.Context, id, callerID string) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	g, err := m.loadForMutation(ctx, id, callerID)
	if err != nil {
		return nil, err
	}
	if g.DrawOffer == "" {
		return nil, ErrNoOfferPending
	}
	if g.DrawOffer == callerID {
		return nil, ErrOwnDrawOffer
	}

	g.Outcome = OutcomeDrawn
	g.Method = "draw"
	g.DrawOffer = ""
	g.UpdatedAt = time.Now()
	if err := m.persist(ctx, g); err != nil {
		return nil, err
	}
	obslog.L().Info("session_draw_accept",
		zap.String("session_id", g.ID),
		zap.String("by", callerID),
	)
	m.publish(g.ID, arenadto.Event{
		Type:      arenadto.EventGameEnded,
		SessionID: g.ID,
		Position:  g.FEN,
		Outcome:   string(g.Outcome),
		Reason:    "draw",
	})
	m.archiveIfFinal(ctx, g)
	return g, nil
}

// DeclineDraw clears any standing offer and signals drawReset so neither
// client is left believing an offer is still live.
func (m *Manager) DeclineDraw(ctx context.Context, id, callerID string) (*Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	g, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if !g.IsParticipant(callerID) {
		return nil, ErrNotAParticipant
	}

	if g.DrawOffer != "" {
		g.DrawOffer = ""
		g.UpdatedAt = time.Now()
		if err := m.persist(ctx, g); err != nil {
			return nil, err
		}
	}
	obslog.L().Info("session_draw_decline",
		zap.String("session_id", g.ID),
		zap.String("by", callerID),
	)
	m.publish(g.ID, arenadto.Event{
		Type:      arenadto.EventDrawReset,
		SessionID: g.ID,
	})
	return g, nil
}

// loadForMutation performs the shared NotFound → GameOver → NotAParticipant
// check sequence under the caller-held session lock.
func (m *Manager) loadForMutation(ctx context.Context, id, callerID string) (*Session, error) {
	g, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrNotFound
	}
	if g.Terminal() {
		return nil, ErrGameOver
	}
	if !g.IsParticipant(callerID) {
		return nil, ErrNotAParticipant
	}
	return g, nil
}

// persist commits the record on a context detached from the caller: a client
// disconnecting mid-operation must not leave a half-applied mutation behind.
func (m *Manager) persist(ctx context.Context, g *Session) error {
	return m.store.Save(context.WithoutCancel(ctx), g)
}

func (m *Manager) publish(id string, ev arenadto.Event) {
	if m.pub != nil {
		m.pub.Publish(id, ev)
	}
}

func (m *Manager) archiveIfFinal(ctx context.Context, g *Session) {
	if m.archive == nil || g == nil || !g.Terminal() {
		return
	}
	if err := m.archive.SaveResult(context.WithoutCancel(ctx), g); err != nil {
		obslog.L().Error("session_archive_error",
			zap.String("session_id", g.ID),
			zap.String("outcome", string(g.Outcome)),
			zap.Error(err),
		)
		return
	}
	obslog.L().Info("session_archive",
		zap.String("session_id", g.ID),
		zap.String("outcome", string(g.Outcome)),
		zap.String("method", g.Method),
	)
}

// IsDomainError reports whether err is one of the caller-addressable failure
// kinds rather than an infrastructure fault.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrGameOver, ErrNotAParticipant, ErrNotYourTurn,
		ErrNoOfferPending, ErrOwnDrawOffer, ErrInvalidParticipants, ErrIllegalMove,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
