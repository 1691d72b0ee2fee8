package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/chess-arena/pkg/arenadto"
)

func newTestHub(t *testing.T, opts ...Option) (*Hub, string) {
	t.Helper()
	h := New(opts...)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("uid"))
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(h.Close)
	return h, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func join(t *testing.T, conn *websocket.Conn, sessionID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := wsjson.Write(ctx, conn, arenadto.Signal{Type: arenadto.SignalJoinSession, SessionID: sessionID})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) arenadto.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var ev arenadto.Event
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func waitSubscribed(t *testing.T, h *Hub, sessionID string, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		got := len(h.sessions[sessionID])
		h.mu.Unlock()
		if got == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("never saw %d watchers on %s", n, sessionID)
}

func TestPublishFanOut(t *testing.T) {
	h, url := newTestHub(t)

	a := dial(t, url)
	b := dial(t, url)
	join(t, a, "s1")
	join(t, b, "s1")
	waitSubscribed(t, h, "s1", 2)

	h.Publish("s1", arenadto.Event{Type: arenadto.EventMoveMade, SessionID: "s1", Position: "fen", Turn: "black"})

	for _, conn := range []*websocket.Conn{a, b} {
		ev := readEvent(t, conn)
		if ev.Type != arenadto.EventMoveMade || ev.SessionID != "s1" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestPublishScopedToSession(t *testing.T) {
	h, url := newTestHub(t)

	a := dial(t, url)
	b := dial(t, url)
	join(t, a, "s1")
	join(t, b, "s2")
	waitSubscribed(t, h, "s1", 1)
	waitSubscribed(t, h, "s2", 1)

	h.Publish("s1", arenadto.Event{Type: arenadto.EventDrawOffered, SessionID: "s1", By: "alice"})
	h.Publish("s2", arenadto.Event{Type: arenadto.EventDrawReset, SessionID: "s2"})

	if ev := readEvent(t, a); ev.Type != arenadto.EventDrawOffered {
		t.Fatalf("watcher of s1 got %+v", ev)
	}
	if ev := readEvent(t, b); ev.Type != arenadto.EventDrawReset {
		t.Fatalf("watcher of s2 got %+v", ev)
	}
}

func TestRejoinRetargets(t *testing.T) {
	h, url := newTestHub(t)

	a := dial(t, url)
	join(t, a, "s1")
	waitSubscribed(t, h, "s1", 1)
	join(t, a, "s2")
	waitSubscribed(t, h, "s2", 1)

	h.mu.Lock()
	left := len(h.sessions["s1"])
	h.mu.Unlock()
	if left != 0 {
		t.Fatalf("stale watcher left on s1: %d", left)
	}

	h.Publish("s2", arenadto.Event{Type: arenadto.EventGameEnded, SessionID: "s2", Outcome: "draw", Reason: "draw"})
	if ev := readEvent(t, a); ev.Type != arenadto.EventGameEnded {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestDeclineSignal(t *testing.T) {
	var mu sync.Mutex
	var gotSession, gotUser string
	h, url := newTestHub(t, WithDeclineHandler(func(_ context.Context, sessionID, userID string) error {
		mu.Lock()
		defer mu.Unlock()
		gotSession, gotUser = sessionID, userID
		return nil
	}))

	a := dial(t, url+"?uid=bob")
	join(t, a, "s1")
	waitSubscribed(t, h, "s1", 1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := wsjson.Write(ctx, a, arenadto.Signal{Type: arenadto.SignalDeclineDraw}); err != nil {
		t.Fatalf("signal: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		s, u := gotSession, gotUser
		mu.Unlock()
		if s == "s1" && u == "bob" {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("decline handler never invoked: session=%q user=%q", gotSession, gotUser)
}

func TestDroppedWatcherCannotRejoin(t *testing.T) {
	h, _ := newTestHub(t, WithSendBuffer(1))

	c := &client{send: make(chan arenadto.Event, 1)}
	h.subscribe("s1", c)

	// second enqueue overflows the buffer and drops the watcher
	h.Publish("s1", arenadto.Event{Type: arenadto.EventMoveMade})
	h.Publish("s1", arenadto.Event{Type: arenadto.EventMoveMade})

	// a join signal arriving after the drop must not resurrect the client;
	// its send channel is closed and publishing to it would panic
	h.subscribe("s1", c)
	h.subscribe("s2", c)

	h.Publish("s1", arenadto.Event{Type: arenadto.EventDrawReset})
	h.Publish("s2", arenadto.Event{Type: arenadto.EventDrawReset})

	h.mu.Lock()
	left := len(h.sessions["s1"]) + len(h.sessions["s2"])
	h.mu.Unlock()
	if left != 0 {
		t.Fatalf("dead watcher re-subscribed: %d entries", left)
	}
}

func TestSlowWatcherDropped(t *testing.T) {
	h, _ := newTestHub(t, WithSendBuffer(1))

	c := &client{send: make(chan arenadto.Event, 1)}
	h.subscribe("s1", c)

	h.Publish("s1", arenadto.Event{Type: arenadto.EventMoveMade})
	h.Publish("s1", arenadto.Event{Type: arenadto.EventMoveMade})

	h.mu.Lock()
	left := len(h.sessions["s1"])
	h.mu.Unlock()
	if left != 0 {
		t.Fatalf("slow watcher not dropped: %d remain", left)
	}
	if _, open := <-c.send; !open {
		t.Fatalf("buffered event lost on drop")
	}
}
