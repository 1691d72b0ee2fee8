package hub

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/internal/obslog"
	"github.com/park285/chess-arena/pkg/arenadto"
)

const writeTimeout = 10 * time.Second

// DeclineFunc is invoked when a connected player declines a standing draw
// offer over the socket instead of the HTTP API.
type DeclineFunc func(ctx context.Context, sessionID, userID string) error

// Hub fans session events out to every socket watching that session. A
// connection watches at most one session at a time; joinSession re-targets it.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*client]struct{}
	closed   bool

	sendBuffer     int
	originPatterns []string
	onDecline      DeclineFunc
}

type client struct {
	conn    *websocket.Conn
	send    chan arenadto.Event
	userID  string
	session string
	dead    bool
	once    sync.Once
}

type Option func(*Hub)

func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

func WithOriginPatterns(patterns []string) Option {
	return func(h *Hub) { h.originPatterns = patterns }
}

func WithDeclineHandler(fn DeclineFunc) Option {
	return func(h *Hub) { h.onDecline = fn }
}

func New(opts ...Option) *Hub {
	h := &Hub{
		sessions:   make(map[string]map[*client]struct{}),
		sendBuffer: 64,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish enqueues ev for every watcher of sessionID without blocking. A
// watcher whose buffer is full is dropped rather than allowed to stall the
// caller.
func (h *Hub) Publish(sessionID string, ev arenadto.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.sessions[sessionID] {
		select {
		case c.send <- ev:
		default:
			h.dropLocked(c)
			obslog.L().Warn("hub_client_dropped",
				zap.String("session_id", sessionID),
				zap.String("user_id", c.userID))
		}
	}
}

// ServeWS upgrades the request and runs the connection until the peer goes
// away. userID may be empty for unauthenticated viewers.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		obslog.L().Warn("hub_accept_failed", zap.Error(err))
		return
	}

	c := &client{
		conn:   conn,
		send:   make(chan arenadto.Event, h.sendBuffer),
		userID: userID,
	}

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
}

func (h *Hub) writeLoop(c *client) {
	for ev := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, c.conn, ev)
		cancel()
		if err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *Hub) readLoop(ctx context.Context, c *client) {
	defer h.remove(c)

	for {
		var sig arenadto.Signal
		if err := wsjson.Read(ctx, c.conn, &sig); err != nil {
			return
		}

		switch sig.Type {
		case arenadto.SignalJoinSession:
			if sig.SessionID != "" {
				h.subscribe(sig.SessionID, c)
			}
		case arenadto.SignalDeclineDraw:
			h.handleDecline(ctx, c, sig.SessionID)
		default:
			obslog.L().Debug("hub_unknown_signal", zap.String("type", sig.Type))
		}
	}
}

func (h *Hub) handleDecline(ctx context.Context, c *client, sessionID string) {
	if h.onDecline == nil || c.userID == "" {
		return
	}
	if sessionID == "" {
		h.mu.Lock()
		sessionID = c.session
		h.mu.Unlock()
	}
	if sessionID == "" {
		return
	}
	if err := h.onDecline(ctx, sessionID, c.userID); err != nil {
		obslog.L().Debug("hub_decline_rejected",
			zap.String("session_id", sessionID),
			zap.String("user_id", c.userID),
			zap.Error(err))
	}
}

// subscribe moves c onto sessionID. Joining the session it already watches
// is a no-op. A dropped client is refused: its send channel is closed and
// re-adding it would make the next Publish panic.
func (h *Hub) subscribe(sessionID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed || c.dead || c.session == sessionID {
		return
	}
	h.detachLocked(c)
	if h.sessions[sessionID] == nil {
		h.sessions[sessionID] = make(map[*client]struct{})
	}
	h.sessions[sessionID][c] = struct{}{}
	c.session = sessionID
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

func (h *Hub) dropLocked(c *client) {
	h.detachLocked(c)
	c.dead = true
	c.once.Do(func() { close(c.send) })
}

func (h *Hub) detachLocked(c *client) {
	if c.session == "" {
		return
	}
	if set, ok := h.sessions[c.session]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.sessions, c.session)
		}
	}
	c.session = ""
}

// Close drops every watcher and refuses new subscriptions.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, set := range h.sessions {
		for c := range set {
			c.dead = true
			c.once.Do(func() { close(c.send) })
		}
	}
	h.sessions = make(map[string]map[*client]struct{})
}
