package relay

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openhours/timebank/internal/ports"
)

type memPresence struct {
	mu     sync.Mutex
	online map[uuid.UUID]map[string]struct{}
}

func newMemPresence() *memPresence {
	return &memPresence{online: make(map[uuid.UUID]map[string]struct{})}
}

func (p *memPresence) MarkOnline(_ context.Context, userID uuid.UUID, sessionID string, _ time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	set, ok := p.online[userID]
	if !ok {
		set = make(map[string]struct{})
		p.online[userID] = set
	}
	set[sessionID] = struct{}{}
	return nil
}

func (p *memPresence) MarkOffline(_ context.Context, userID uuid.UUID, sessionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if set, ok := p.online[userID]; ok {
		delete(set, sessionID)
		if len(set) == 0 {
			delete(p.online, userID)
		}
	}
	return nil
}

func (p *memPresence) IsOnline(_ context.Context, userID uuid.UUID) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.online[userID]) > 0, nil
}

type chatCall struct {
	SenderID   uuid.UUID
	ReceiverID uuid.UUID
	Content    string
}

type hubHarness struct {
	hub      *Hub
	presence *memPresence
	chats    chan chatCall
	server   *httptest.Server
}

func newHubHarness(t *testing.T) *hubHarness {
	t.Helper()
	presence := newMemPresence()
	chats := make(chan chatCall, 8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger, presence, func(_ context.Context, senderID, receiverID uuid.UUID, content string) error {
		chats <- chatCall{SenderID: senderID, ReceiverID: receiverID, Content: content}
		return nil
	})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(r.URL.Query().Get("user"))
		if err != nil {
			http.Error(w, "bad user", http.StatusBadRequest)
			return
		}
		hub.HandleConnection(w, r, ports.AuthClaims{UserID: userID})
	}))
	t.Cleanup(server.Close)

	return &hubHarness{hub: hub, presence: presence, chats: chats, server: server}
}

func (h *hubHarness) dial(t *testing.T, userID uuid.UUID) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.server.URL, "http") + "?user=" + userID.String()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	var frame envelope
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	return frame
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestHubBroadcastReachesAllSessions(t *testing.T) {
	h := newHubHarness(t)
	alice := uuid.New()
	bob := uuid.New()

	aliceConn := h.dial(t, alice)
	bobConn := h.dial(t, bob)
	waitFor(t, "both sessions registered", func() bool {
		aOn, _ := h.presence.IsOnline(context.Background(), alice)
		bOn, _ := h.presence.IsOnline(context.Background(), bob)
		return aOn && bOn
	})

	h.hub.Broadcast(ports.RelayEventNewService, map[string]string{"title": "Guitar lessons"})

	for _, conn := range []*websocket.Conn{aliceConn, bobConn} {
		frame := readFrame(t, conn)
		if frame.Event != ports.RelayEventNewService {
			t.Fatalf("frame event = %q, want %q", frame.Event, ports.RelayEventNewService)
		}
	}
}

func TestHubEmitToUserIsScoped(t *testing.T) {
	h := newHubHarness(t)
	alice := uuid.New()
	bob := uuid.New()

	aliceConn := h.dial(t, alice)
	bobConn := h.dial(t, bob)
	waitFor(t, "both sessions registered", func() bool {
		aOn, _ := h.presence.IsOnline(context.Background(), alice)
		bOn, _ := h.presence.IsOnline(context.Background(), bob)
		return aOn && bOn
	})

	h.hub.EmitToUser(bob, ports.RelayEventLedgerUpdated, map[string]float64{"balance": 2.5})

	frame := readFrame(t, bobConn)
	if frame.Event != ports.RelayEventLedgerUpdated {
		t.Fatalf("frame event = %q, want %q", frame.Event, ports.RelayEventLedgerUpdated)
	}

	// Alice's session stays quiet.
	_ = aliceConn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := aliceConn.ReadMessage(); err == nil {
		t.Fatalf("emit to bob leaked to alice")
	}
}

func TestHubDispatchesInboundChatFrames(t *testing.T) {
	h := newHubHarness(t)
	alice := uuid.New()
	bob := uuid.New()

	aliceConn := h.dial(t, alice)

	frame, _ := json.Marshal(map[string]any{
		"event": inboundChatEvent,
		"data":  map[string]any{"receiver": bob, "content": "still on for tomorrow?"},
	})
	if err := aliceConn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("write chat frame: %v", err)
	}

	select {
	case call := <-h.chats:
		if call.SenderID != alice || call.ReceiverID != bob || call.Content != "still on for tomorrow?" {
			t.Fatalf("unexpected chat dispatch: %+v", call)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("chat frame never reached the handler")
	}

	// Garbage and unknown events are ignored without killing the session.
	if err := aliceConn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if err := aliceConn.WriteMessage(websocket.TextMessage, []byte(`{"event":"unknown"}`)); err != nil {
		t.Fatalf("write unknown event: %v", err)
	}
	h.hub.EmitToUser(alice, ports.RelayEventChatMessage, map[string]string{"content": "pong"})
	got := readFrame(t, aliceConn)
	if got.Event != ports.RelayEventChatMessage {
		t.Fatalf("session died after bad frames, got event %q", got.Event)
	}
}

func TestSlowConsumerIsDroppedWithoutPanic(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger, newMemPresence(), nil)

	alice := uuid.New()
	s := &session{
		hub:       hub,
		userID:    alice,
		sessionID: "slow",
		send:      make(chan []byte, 1),
		done:      make(chan struct{}),
	}
	hub.register(s)

	// Nothing drains send: the first emit fills the buffer, the next one
	// drops the session, and every later emit must be a quiet no-op rather
	// than a panic.
	for i := 0; i < 5; i++ {
		hub.EmitToUser(alice, ports.RelayEventLedgerUpdated, map[string]int{"seq": i})
		hub.Broadcast(ports.RelayEventNewService, map[string]int{"seq": i})
	}

	select {
	case <-s.done:
	default:
		t.Fatalf("slow session should have been dropped")
	}
}

func TestHubPresenceLifecycle(t *testing.T) {
	h := newHubHarness(t)
	alice := uuid.New()

	conn := h.dial(t, alice)
	waitFor(t, "session online", func() bool {
		on, _ := h.presence.IsOnline(context.Background(), alice)
		return on
	})

	_ = conn.Close()
	waitFor(t, "session offline", func() bool {
		on, _ := h.presence.IsOnline(context.Background(), alice)
		return !on
	})
}
