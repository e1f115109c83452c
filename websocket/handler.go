package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleWebSocket upgrades the connection and runs the session read loop.
// Connecting counts as a session start: presence flips online and the
// notification service replays whatever queued up while the user was away.
// A closing socket only unregisters from the hub; presence decays through
// the reachability window instead of being forced offline, since the user
// may reconnect immediately.
func HandleWebSocket(c echo.Context, hub *Hub, presence *services.PresenceTracker, notifications *services.NotificationService, userID primitive.ObjectID) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Conn:      conn,
	}

	hub.Register(client)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := presence.SetOnline(ctx, userID); err != nil {
		log.Printf("Error marking user %s online: %v", userID.Hex(), err)
	}

	if err := client.writeJSON(Frame{
		Type: FrameTypeConnected,
		Data: map[string]string{"sessionId": client.SessionID, "userId": userID.Hex()},
	}); err != nil {
		log.Printf("Error sending connected frame to user %s: %v", userID.Hex(), err)
	}

	// Reconciliation runs off the connection goroutine so a slow store
	// never blocks the read loop from starting.
	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := notifications.SyncOnLogin(syncCtx, userID); err != nil {
			log.Printf("Error syncing notifications for user %s: %v", userID.Hex(), err)
		}
	}()

	go func() {
		defer hub.Unregister(client)

		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				break
			}

			// Clients send "ping" text frames as heartbeats.
			if messageType == websocket.TextMessage && string(message) == "ping" {
				hbCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := presence.Heartbeat(hbCtx, userID); err != nil {
					log.Printf("Error recording heartbeat for user %s: %v", userID.Hex(), err)
				}
				cancel()
				if err := client.writeJSON(Frame{Type: FrameTypePong}); err != nil {
					log.Printf("Error sending pong to user %s: %v", userID.Hex(), err)
				}
			}
		}
	}()

	return nil
}
