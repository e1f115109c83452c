package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// Frame types pushed to clients.
const (
	FrameTypeConnected         = "connected"
	FrameTypeNotification      = "notification"
	FrameTypeNotificationBatch = "notification_batch"
	FrameTypeUnreadCount       = "unread_count"
	FrameTypePong              = "pong"
)

// Frame is a message sent over WebSocket
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client represents one connected WebSocket session. A user may hold
// several sessions (multiple tabs or devices) at once.
type Client struct {
	SessionID string
	UserID    primitive.ObjectID
	Conn      *websocket.Conn

	// gorilla/websocket allows one concurrent writer per connection
	writeMu sync.Mutex
}

func (c *Client) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(v)
}

// Hub maintains the set of active sessions keyed by user and fans messages
// out to every session a user holds. It implements the live delivery
// channel contract consumed by the notification service.
type Hub struct {
	clients    map[primitive.ObjectID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[primitive.ObjectID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			sessions, ok := h.clients[client.UserID]
			if !ok {
				sessions = make(map[string]*Client)
				h.clients[client.UserID] = sessions
			}
			sessions[client.SessionID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if sessions, ok := h.clients[client.UserID]; ok {
				if _, ok := sessions[client.SessionID]; ok {
					delete(sessions, client.SessionID)
					if len(sessions) == 0 {
						delete(h.clients, client.UserID)
					}
				}
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// Register queues a client for registration.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister queues a client for removal and closes its connection.
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline reports whether the user holds at least one open session.
// This is the transport-level fact, stronger than presence reachability.
func (h *Hub) IsUserOnline(userID primitive.ObjectID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// sendToUser writes a frame to every session the user holds. Write failures
// on individual sessions do not stop the fan-out; a failing session is torn
// down by its own read loop.
func (h *Hub) sendToUser(userID primitive.ObjectID, frame Frame) error {
	h.mu.RLock()
	sessions := make([]*Client, 0, len(h.clients[userID]))
	for _, client := range h.clients[userID] {
		sessions = append(sessions, client)
	}
	h.mu.RUnlock()

	if len(sessions) == 0 {
		return fmt.Errorf("user %s not connected", userID.Hex())
	}

	var lastErr error
	sent := 0
	for _, client := range sessions {
		if err := client.writeJSON(frame); err != nil {
			lastErr = err
			continue
		}
		sent++
	}
	if sent == 0 {
		return fmt.Errorf("all sessions failed for user %s: %v", userID.Hex(), lastErr)
	}
	return nil
}

// SendNotificationToUser pushes one notification to all of a user's sessions.
func (h *Hub) SendNotificationToUser(userID primitive.ObjectID, notification *models.Notification) error {
	return h.sendToUser(userID, Frame{Type: FrameTypeNotification, Data: notification})
}

// SendUnreadCountUpdate pushes a fresh unread-count snapshot.
func (h *Hub) SendUnreadCountUpdate(userID primitive.ObjectID, counts models.UnreadCounts) error {
	return h.sendToUser(userID, Frame{Type: FrameTypeUnreadCount, Data: counts})
}

// SendBatchNotifications replays a batch of notifications in one frame,
// used by the login reconciliation.
func (h *Hub) SendBatchNotifications(userID primitive.ObjectID, notifications []models.Notification) error {
	return h.sendToUser(userID, Frame{Type: FrameTypeNotificationBatch, Data: notifications})
}
