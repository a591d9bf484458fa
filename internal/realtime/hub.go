package realtime

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chirp-social/chirp/internal/auth"
	"github.com/chirp-social/chirp/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 16 // 64 KiB

	defaultBufferSize = 64
)

// Event types delivered to realtime clients.
const (
	EventMessage = "message"
	EventError   = "error"
	EventPong    = "pong"
)

// Frame is an inbound client payload. Every frame carries the sender's
// current access token; the hub re-verifies it before acting, so a revoked
// or expired session stops mid-conversation rather than at the next connect.
type Frame struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
	To          string `json:"to,omitempty"`
	Content     string `json:"content,omitempty"`
}

// Event is an outbound payload delivered to clients.
type Event struct {
	Type    string    `json:"type"`
	From    string    `json:"from,omitempty"`
	Content string    `json:"content,omitempty"`
	Code    string    `json:"code,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// TokenVerifier validates an access token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(token string) (*auth.Claims, error)
}

// Hub routes chat messages between connected users and keeps the presence
// registry current.
type Hub struct {
	mu       sync.RWMutex
	conns    map[string]map[*connection]struct{}
	registry Registry
	verifier TokenVerifier
	upgrader websocket.Upgrader
	log      *zap.Logger
	now      func() time.Time
}

// NewHub constructs a Hub. registry may be nil, in which case an in-memory
// one is used.
func NewHub(verifier TokenVerifier, registry Registry) *Hub {
	if registry == nil {
		registry = NewMemoryRegistry()
	}

	return &Hub{
		conns:    make(map[string]map[*connection]struct{}),
		registry: registry,
		verifier: verifier,
		log:      logger.WithModule("realtime"),
		now:      time.Now,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				originHost := hostWithoutPort(origin)
				requestHost := hostWithoutPort(r.Host)
				return originHost == requestHost || isLoopback(originHost)
			},
		},
	}
}

// Registry exposes the presence registry the hub maintains.
func (h *Hub) Registry() Registry {
	return h.registry
}

// Serve upgrades the HTTP connection and pumps frames until the client
// disconnects or fails re-authentication. userID is the identity established
// by the connect-time token check.
func (h *Hub) Serve(userID string, w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &connection{
		hub:    h,
		socket: socket,
		userID: userID,
		send:   make(chan Event, defaultBufferSize),
	}

	h.register(client)

	go client.writeLoop()
	client.readLoop()
}

// SendToUser delivers an event to every open connection the user holds and
// reports whether at least one delivery was queued.
func (h *Hub) SendToUser(userID string, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := h.conns[userID]
	if len(targets) == 0 {
		return false
	}

	for client := range targets {
		h.enqueue(client, event)
	}
	return true
}

func (h *Hub) register(client *connection) {
	h.mu.Lock()
	if h.conns[client.userID] == nil {
		h.conns[client.userID] = make(map[*connection]struct{})
	}
	h.conns[client.userID][client] = struct{}{}
	h.mu.Unlock()

	h.registry.Connect(client.userID)
}

func (h *Hub) unregister(client *connection) {
	h.mu.Lock()
	clients := h.conns[client.userID]
	if _, ok := clients[client]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.conns, client.userID)
		}
		h.mu.Unlock()
		h.registry.Disconnect(client.userID)
		return
	}
	h.mu.Unlock()
}

func (h *Hub) enqueue(client *connection, event Event) {
	select {
	case client.send <- event:
	default:
		h.log.Warn("dropping backpressured realtime client", zap.String("user_id", client.userID))
		// close re-enters the hub lock; run it outside this critical section
		go client.close()
	}
}

// handleFrame re-authenticates and dispatches one inbound frame. It returns
// false when the connection must be torn down.
func (h *Hub) handleFrame(client *connection, frame Frame) bool {
	claims, err := h.verifier.VerifyAccess(frame.AccessToken)
	if err != nil || claims.UserID != client.userID {
		h.enqueue(client, Event{
			Type:   EventError,
			Code:   "UNAUTHORIZED",
			SentAt: h.now(),
		})
		h.log.Info("closing realtime connection after failed re-authentication",
			zap.String("user_id", client.userID),
		)
		return false
	}

	switch strings.ToLower(strings.TrimSpace(frame.Type)) {
	case EventMessage:
		if frame.To == "" {
			h.enqueue(client, Event{Type: EventError, Code: "RECIPIENT_REQUIRED", SentAt: h.now()})
			return true
		}
		if !h.SendToUser(frame.To, Event{
			Type:    EventMessage,
			From:    client.userID,
			Content: frame.Content,
			SentAt:  h.now(),
		}) {
			h.enqueue(client, Event{Type: EventError, Code: "RECIPIENT_OFFLINE", SentAt: h.now()})
		}
	case "ping":
		h.enqueue(client, Event{Type: EventPong, SentAt: h.now()})
	default:
		h.enqueue(client, Event{Type: EventError, Code: "UNSUPPORTED_FRAME", SentAt: h.now()})
	}

	return true
}

type connection struct {
	hub    *Hub
	socket *websocket.Conn
	userID string
	send   chan Event
	once   sync.Once
}

func (c *connection) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		if err := c.socket.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Info("unexpected realtime close",
					zap.String("user_id", c.userID),
					zap.Error(err),
				)
			}
			return
		}

		if !c.hub.handleFrame(c, frame) {
			return
		}
	}
}

func (c *connection) writeLoop() {
	defer c.close()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *connection) close() {
	c.once.Do(func() {
		c.hub.unregister(c)
		close(c.send)
		_ = c.socket.Close()
	})
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if host == "" {
		return ""
	}

	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		parsed, err := http.NewRequest(http.MethodGet, host, nil)
		if err == nil {
			return hostWithoutPort(parsed.URL.Host)
		}
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	ip := net.ParseIP(host)
	if ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
