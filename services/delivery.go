package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/models"
)

// LiveChannel is the per-user push-capable connection (the websocket hub in
// production). All sends are fire-and-forget: the orchestrator logs the
// outcome and never lets a send failure affect the durable record.
type LiveChannel interface {
	// IsUserOnline answers "does this user have an open transport session
	// right now" - a stronger fact than presence reachability.
	IsUserOnline(userID primitive.ObjectID) bool
	SendNotificationToUser(userID primitive.ObjectID, notification *models.Notification) error
	SendUnreadCountUpdate(userID primitive.ObjectID, counts models.UnreadCounts) error
	SendBatchNotifications(userID primitive.ObjectID, notifications []models.Notification) error
}

// OfflineChannel is the best-effort secondary delivery path (FCM push in
// production), used when the live channel is unreachable or the
// notification carries elevated priority.
type OfflineChannel interface {
	Push(ctx context.Context, userID primitive.ObjectID, notification *models.Notification) error
}

// Delivery outcomes. Attempts are one-shot; the durable record is the retry
// mechanism, recovered by polling or the login reconciliation.
const (
	DeliveryDelivered = "delivered"
	DeliverySkipped   = "skipped"
	DeliveryFailed    = "failed"
)

// DeliveryOutcome is the result of one delivery attempt over one channel.
// It is a value, not an error: none of these outcomes affect the committed
// notification row.
type DeliveryOutcome struct {
	Channel string
	Status  string
	Reason  string
}

func delivered(channel string) DeliveryOutcome {
	return DeliveryOutcome{Channel: channel, Status: DeliveryDelivered}
}

func skipped(channel, reason string) DeliveryOutcome {
	return DeliveryOutcome{Channel: channel, Status: DeliverySkipped, Reason: reason}
}

func failed(channel string, err error) DeliveryOutcome {
	return DeliveryOutcome{Channel: channel, Status: DeliveryFailed, Reason: err.Error()}
}
