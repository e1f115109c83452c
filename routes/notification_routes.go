package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/websocket"
)

// RegisterNotificationRoutes registers the notification, presence and
// websocket routes.
func RegisterNotificationRoutes(
	e *echo.Echo,
	notificationController *controllers.NotificationController,
	presenceController *controllers.PresenceController,
	hub *websocket.Hub,
	presence *services.PresenceTracker,
	notifications *services.NotificationService,
) {
	r := e.Group("/api")
	r.Use(middleware.JWTMiddleware())
	r.Use(middleware.ActivityTracker(presence))

	// Collaborator entry point: business services raise events here.
	r.POST("/notifications/send", notificationController.Send)

	// List and count queries
	r.GET("/notifications", notificationController.GetNotifications)
	r.GET("/notifications/unread", notificationController.GetUnreadNotifications)
	r.GET("/notifications/bookmarked", notificationController.GetBookmarkedNotifications)
	r.GET("/notifications/archived", notificationController.GetArchivedNotifications)
	r.GET("/notifications/active", notificationController.GetActiveNotifications)
	r.GET("/notifications/unread-count", notificationController.GetUnreadCount)

	// Lifecycle mutations
	r.PUT("/notifications/read", notificationController.MarkAsRead)
	r.PUT("/notifications/read-all", notificationController.MarkAllAsRead)
	r.PUT("/notifications/:id/bookmark", notificationController.ToggleBookmark)
	r.PUT("/notifications/archive", notificationController.ArchiveNotifications)
	r.PUT("/notifications/unarchive", notificationController.UnarchiveNotifications)
	r.DELETE("/notifications/:id", notificationController.DeleteNotification)
	r.DELETE("/notifications", notificationController.DeleteNotifications)

	// Reconciliation on demand
	r.POST("/notifications/sync", notificationController.Sync)

	// Device token for the offline fallback channel
	r.POST("/users/fcm-token", notificationController.UpdateFCMToken)

	// Presence
	r.POST("/presence/heartbeat", presenceController.Heartbeat)
	r.GET("/presence/:id/status", presenceController.Status)

	// Live delivery channel
	r.GET("/ws", func(c echo.Context) error {
		userID, err := middleware.ExtractUserID(c)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, models.Response{
				Status:  http.StatusUnauthorized,
				Message: "Unauthorized",
			})
		}
		return websocket.HandleWebSocket(c, hub, presence, notifications, userID)
	})
}
