package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"firebase.google.com/go/v4/messaging"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/models"
)

// FCMChannel delivers notifications through Firebase Cloud Messaging when
// the user has no live connection. It implements OfflineChannel.
type FCMChannel struct {
	db *mongo.Client
}

func NewFCMChannel(db *mongo.Client) *FCMChannel {
	return &FCMChannel{db: db}
}

// Push sends one FCM message for the notification. Missing tokens and an
// uninitialized Firebase app are errors so the orchestrator can log the
// attempt as failed, but they never propagate further.
func (f *FCMChannel) Push(ctx context.Context, userID primitive.ObjectID, notification *models.Notification) error {
	var user models.User
	err := config.GetCollection(f.db, "users").FindOne(ctx, bson.M{"_id": userID}).Decode(&user)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	if user.FCMToken == "" {
		return fmt.Errorf("user %s has no FCM token", userID.Hex())
	}

	if config.FirebaseApp == nil {
		return fmt.Errorf("firebase app not initialized")
	}

	client, err := config.FirebaseApp.Messaging(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize messaging client: %w", err)
	}

	data := map[string]string{
		"notificationId": notification.ID.Hex(),
		"kind":           notification.Kind,
		"category":       notification.Category(),
		"priority":       fmt.Sprintf("%d", notification.Priority),
		"timestamp":      notification.CreatedAt.Format(time.RFC3339),
	}
	if notification.Reference != nil {
		data["referenceType"] = notification.Reference.Type
		data["referenceId"] = notification.Reference.ID.Hex()
	}
	if notification.ActionURL != "" {
		data["actionUrl"] = notification.ActionURL
	}
	for key, value := range notification.Data {
		data[key] = value
	}

	androidPriority := "normal"
	if notification.Priority >= models.PriorityHigh {
		androidPriority = "high"
	}

	fcmMessage := &messaging.Message{
		Token: user.FCMToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Message,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "taskhive_fcm_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: notification.Title,
						Body:  notification.Message,
					},
					Sound:    "default",
					Badge:    func() *int { v := 1; return &v }(),
					Category: notification.Kind,
				},
			},
		},
	}

	response, err := client.Send(ctx, fcmMessage)
	if err != nil {
		return fmt.Errorf("failed to send FCM notification: %w", err)
	}

	log.Printf("FCM notification sent to user %s: %s", userID.Hex(), response)
	return nil
}
