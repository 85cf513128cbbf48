package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/craftmarket/backend/internal/domain/messaging"
	"github.com/craftmarket/backend/internal/domain/shared"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = 54 * time.Second
	wsMaxMessageSize = 512
	wsSendBufferSize = 32
)

// WSEvent is the envelope pushed to connected chat clients
type WSEvent struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WSMessagePayload is pushed to the recipient when a message arrives
type WSMessagePayload struct {
	DialogueID  uuid.UUID `json:"dialogue_id"`
	MessageID   uuid.UUID `json:"message_id"`
	SenderID    uuid.UUID `json:"sender_id"`
	SenderEmail string    `json:"sender_email"`
	Preview     string    `json:"preview"`
}

// WSReadPayload is pushed to the sender when its messages are read
type WSReadPayload struct {
	DialogueID uuid.UUID `json:"dialogue_id"`
	ReaderID   uuid.UUID `json:"reader_id"`
	Count      int64     `json:"count"`
}

type wsClient struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan WSEvent
	once   sync.Once
	done   chan struct{}
}

func (cl *wsClient) close() {
	cl.once.Do(func() {
		close(cl.done)
		cl.conn.Close()
	})
}

// ChatRelay fans chat events out to connected WebSocket clients. It keeps a
// registry of connections per user and subscribes to the messaging events on
// the in-process event bus, so HTTP and WebSocket senders reach the peer the
// same way.
type ChatRelay struct {
	BaseHandler
	upgrader   websocket.Upgrader
	logger     *zap.Logger
	mu         sync.RWMutex
	clients    map[uuid.UUID]map[*wsClient]struct{}
	maxClients int
}

// ChatRelayOption customizes a ChatRelay
type ChatRelayOption func(*ChatRelay)

// WithRelayMaxClients caps the number of concurrent connections
func WithRelayMaxClients(max int) ChatRelayOption {
	return func(r *ChatRelay) {
		r.maxClients = max
	}
}

// WithRelayCheckOrigin overrides the WebSocket origin check
func WithRelayCheckOrigin(check func(r *http.Request) bool) ChatRelayOption {
	return func(r *ChatRelay) {
		r.upgrader.CheckOrigin = check
	}
}

// NewChatRelay creates a chat relay
func NewChatRelay(logger *zap.Logger, opts ...ChatRelayOption) *ChatRelay {
	r := &ChatRelay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger:     logger,
		clients:    make(map[uuid.UUID]map[*wsClient]struct{}),
		maxClients: 10000,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Connect upgrades the request to a WebSocket connection and streams chat
// events for the authenticated user until the client disconnects
func (r *ChatRelay) Connect(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		r.Unauthorized(c, "Authentication required")
		return
	}

	if r.maxClients > 0 && r.ClientCount() >= r.maxClients {
		r.Error(c, http.StatusServiceUnavailable, "MAX_CONNECTIONS_REACHED", "Maximum number of chat connections reached")
		return
	}

	conn, err := r.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		r.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan WSEvent, wsSendBufferSize),
		done:   make(chan struct{}),
	}
	r.register(client)
	defer r.unregister(client)

	r.logger.Info("Chat client connected", zap.String("user_id", userID.String()))

	go client.writePump()
	client.readPump()

	r.logger.Info("Chat client disconnected", zap.String("user_id", userID.String()))
}

// Handle pushes a messaging event to the affected user's connections
func (r *ChatRelay) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch evt := event.(type) {
	case *messaging.MessageSentEvent:
		r.push(evt.RecipientID, WSEvent{
			Type: "message",
			Payload: WSMessagePayload{
				DialogueID:  evt.AggregateID(),
				MessageID:   evt.MessageID,
				SenderID:    evt.SenderID,
				SenderEmail: evt.SenderEmail,
				Preview:     evt.Preview,
			},
		})
	case *messaging.MessagesReadEvent:
		r.push(evt.PeerID, WSEvent{
			Type: "read",
			Payload: WSReadPayload{
				DialogueID: evt.AggregateID(),
				ReaderID:   evt.ReaderID,
				Count:      evt.Count,
			},
		})
	default:
		return fmt.Errorf("unexpected event type %T for %s", event, event.EventType())
	}
	return nil
}

// EventTypes returns the event types the relay subscribes to
func (r *ChatRelay) EventTypes() []string {
	return []string{messaging.EventTypeMessageSent, messaging.EventTypeMessagesRead}
}

var _ shared.EventHandler = (*ChatRelay)(nil)

// Shutdown closes every open connection
func (r *ChatRelay) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, conns := range r.clients {
		for client := range conns {
			client.close()
		}
	}
	r.clients = make(map[uuid.UUID]map[*wsClient]struct{})
}

// ClientCount returns the number of open connections
func (r *ChatRelay) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, conns := range r.clients {
		count += len(conns)
	}
	return count
}

func (r *ChatRelay) register(client *wsClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conns := r.clients[client.userID]
	if conns == nil {
		conns = make(map[*wsClient]struct{})
		r.clients[client.userID] = conns
	}
	conns[client] = struct{}{}
}

func (r *ChatRelay) unregister(client *wsClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conns, ok := r.clients[client.userID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(r.clients, client.userID)
		}
	}
	client.close()
}

// push delivers an event to every connection of the user. A slow connection
// drops the event instead of blocking the event bus.
func (r *ChatRelay) push(userID uuid.UUID, event WSEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for client := range r.clients[userID] {
		select {
		case client.send <- event:
		default:
			r.logger.Warn("Chat client send buffer full, dropping event",
				zap.String("user_id", userID.String()),
				zap.String("event_type", event.Type))
		}
	}
}

// readPump discards inbound frames and keeps the read deadline fresh. The
// relay is push-only; clients talk to the server through the REST API.
func (cl *wsClient) readPump() {
	defer cl.close()
	cl.conn.SetReadLimit(wsMaxMessageSize)
	cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	cl.conn.SetPongHandler(func(string) error {
		cl.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		return nil
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (cl *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cl.close()
	}()
	for {
		select {
		case <-cl.done:
			return
		case event := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
