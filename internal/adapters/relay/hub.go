package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/openhours/timebank/internal/ports"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	presenceTTL    = 90 * time.Second
	maxFrameBytes  = 8 * 1024
	sendBufferSize = 32
)

// inboundChatEvent is the frame name clients use to send a direct message.
const inboundChatEvent = "send message"

// envelope is the wire frame in both directions.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type chatFrame struct {
	ReceiverID uuid.UUID `json:"receiver"`
	Content    string    `json:"content"`
}

// ChatHandler is invoked for every inbound chat frame. The hub stays ignorant
// of chat semantics; the workflow layer owns validation and persistence.
type ChatHandler func(ctx context.Context, senderID, receiverID uuid.UUID, content string) error

// Hub owns every live websocket session on this instance. Delivery is best
// effort: a session whose send buffer is full is dropped rather than allowed
// to stall the emitting goroutine.
type Hub struct {
	logger      *slog.Logger
	presence    ports.PresenceStore
	chatHandler ChatHandler
	upgrader    websocket.Upgrader

	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*session]struct{}
}

type session struct {
	hub       *Hub
	conn      *websocket.Conn
	userID    uuid.UUID
	sessionID string
	send      chan []byte
	// done is closed exactly once to drop the session. The send channel is
	// never closed; emitters race against conn teardown, not a close.
	done     chan struct{}
	dropOnce sync.Once
}

func NewHub(logger *slog.Logger, presence ports.PresenceStore, chatHandler ChatHandler) *Hub {
	return &Hub{
		logger:      logger,
		presence:    presence,
		chatHandler: chatHandler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browsers send the app's bearer token during the upgrade; origin
			// policy is enforced at the edge proxy, not here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[uuid.UUID]map[*session]struct{}),
	}
}

// HandleConnection upgrades an authenticated request and services the
// session until the peer goes away.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, claims ports.AuthClaims) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			"module", "relay.hub",
			"layer", "adapter",
			"operation", "upgrade",
			"outcome", "failure",
			"error", err,
		)
		return
	}

	s := &session{
		hub:       h,
		conn:      conn,
		userID:    claims.UserID,
		sessionID: uuid.NewString(),
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
	}
	h.register(s)

	ctx := context.WithoutCancel(r.Context())
	if err := h.presence.MarkOnline(ctx, s.userID, s.sessionID, presenceTTL); err != nil {
		h.logger.WarnContext(ctx, "presence mark online failed",
			"module", "relay.hub",
			"layer", "adapter",
			"operation", "mark_online",
			"outcome", "failure",
			"user_id", s.userID,
			"error", err,
		)
	}

	go s.writePump(ctx)
	go s.readPump(ctx)
}

// Broadcast delivers an event to every session on this instance.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, set := range h.sessions {
		for s := range set {
			s.enqueue(frame)
		}
	}
}

// EmitToUser delivers an event to every session this instance holds for one
// user. Unknown users are a no-op; their sessions may live on a peer instance.
func (h *Hub) EmitToUser(userID uuid.UUID, event string, payload any) {
	frame, err := marshalFrame(event, payload)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions[userID] {
		s.enqueue(frame)
	}
}

func marshalFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Event: event, Data: data})
}

func (h *Hub) register(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.sessions[s.userID]
	if !ok {
		set = make(map[*session]struct{})
		h.sessions[s.userID] = set
	}
	set[s] = struct{}{}
}

func (h *Hub) unregister(ctx context.Context, s *session) {
	h.mu.Lock()
	if set, ok := h.sessions[s.userID]; ok {
		delete(set, s)
		if len(set) == 0 {
			delete(h.sessions, s.userID)
		}
	}
	h.mu.Unlock()

	_ = h.presence.MarkOffline(ctx, s.userID, s.sessionID)
}

// drop marks the session dead. The write pump sees done close and tears the
// connection down, which unwinds the read pump and unregisters the session.
func (s *session) drop() {
	s.dropOnce.Do(func() { close(s.done) })
}

func (s *session) enqueue(frame []byte) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.send <- frame:
	case <-s.done:
	default:
		// Slow consumer. Drop the session instead of blocking the emitter;
		// the client is expected to reconnect.
		s.drop()
	}
}

func (s *session) readPump(ctx context.Context) {
	defer func() {
		s.hub.unregister(ctx, s)
		_ = s.conn.Close()
	}()

	s.conn.SetReadLimit(maxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame envelope
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		switch frame.Event {
		case inboundChatEvent:
			var msg chatFrame
			if err := json.Unmarshal(frame.Data, &msg); err != nil {
				continue
			}
			if s.hub.chatHandler == nil {
				continue
			}
			if err := s.hub.chatHandler(ctx, s.userID, msg.ReceiverID, msg.Content); err != nil {
				s.hub.logger.WarnContext(ctx, "inbound chat frame rejected",
					"module", "relay.hub",
					"layer", "adapter",
					"operation", "handle_chat_frame",
					"outcome", "failure",
					"user_id", s.userID,
					"error", err,
				)
			}
		default:
			// Unknown client events are ignored rather than fatal so old
			// clients keep working across deploys.
		}
	}
}

func (s *session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			// Piggyback the presence refresh on the ping cadence.
			_ = s.hub.presence.MarkOnline(ctx, s.userID, s.sessionID, presenceTTL)
		}
	}
}
