package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/services"
)

type NotificationController struct {
	service *services.NotificationService
	users   *repositories.UserRepository
}

func NewNotificationController(service *services.NotificationService, users *repositories.UserRepository) *NotificationController {
	return &NotificationController{service: service, users: users}
}

// serviceError maps the service error taxonomy onto HTTP responses.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.JSON(http.StatusNotFound, models.Response{
			Status:  http.StatusNotFound,
			Message: "Not found",
		})
	case errors.Is(err, services.ErrPermissionDenied):
		return c.JSON(http.StatusForbidden, models.Response{
			Status:  http.StatusForbidden,
			Message: "Permission denied",
		})
	case errors.Is(err, services.ErrInvalidKind):
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification kind",
		})
	default:
		c.Logger().Errorf("notification service error: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
}

func parsePaging(c echo.Context) (int64, int64) {
	page, _ := strconv.ParseInt(c.QueryParam("page"), 10, 64)
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

func parseObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, err
		}
		objIDs = append(objIDs, objID)
	}
	return objIDs, nil
}

// Send is the entry point collaborators call when a business event should
// notify a user. The notification is durably recorded before this returns;
// delivery continues in the background.
func (nc *NotificationController) Send(c echo.Context) error {
	var req models.SendNotificationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Missing required fields",
		})
	}

	notification, err := nc.service.CreateAndSend(c.Request().Context(), req)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Notification created",
		Data:    notification,
	})
}

func (nc *NotificationController) list(c echo.Context, filter string) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	page, limit := parsePaging(c)
	notifications, total, err := nc.service.GetNotifications(c.Request().Context(), userID, filter, page, limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications retrieved",
		Data: map[string]interface{}{
			"notifications": notifications,
			"total":         total,
			"page":          page,
			"limit":         limit,
		},
	})
}

// GetNotifications returns a page of all notifications for the user.
func (nc *NotificationController) GetNotifications(c echo.Context) error {
	return nc.list(c, models.FilterAll)
}

// GetUnreadNotifications returns a page of unread notifications.
func (nc *NotificationController) GetUnreadNotifications(c echo.Context) error {
	return nc.list(c, models.FilterUnread)
}

// GetBookmarkedNotifications returns a page of bookmarked notifications.
func (nc *NotificationController) GetBookmarkedNotifications(c echo.Context) error {
	return nc.list(c, models.FilterBookmarked)
}

// GetArchivedNotifications returns a page of archived notifications.
func (nc *NotificationController) GetArchivedNotifications(c echo.Context) error {
	return nc.list(c, models.FilterArchived)
}

// GetActiveNotifications returns a page of non-archived notifications.
func (nc *NotificationController) GetActiveNotifications(c echo.Context) error {
	return nc.list(c, models.FilterActive)
}

// GetUnreadCount returns the cached unread total and the per-category
// breakdown.
func (nc *NotificationController) GetUnreadCount(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	counts, err := nc.service.GetUnreadCount(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Unread count retrieved",
		Data:    counts,
	})
}

// MarkAsRead marks the given notifications as read.
func (nc *NotificationController) MarkAsRead(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.NotificationIDsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "At least one notification id is required",
		})
	}

	ids, err := parseObjectIDs(req.IDs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification id",
		})
	}

	transitioned, err := nc.service.MarkAsRead(c.Request().Context(), userID, ids)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications marked as read",
		Data:    map[string]int64{"marked": transitioned},
	})
}

// MarkAllAsRead marks every unread notification of the user as read.
func (nc *NotificationController) MarkAllAsRead(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	transitioned, err := nc.service.MarkAllAsRead(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "All notifications marked as read",
		Data:    map[string]int64{"marked": transitioned},
	})
}

// ToggleBookmark flips the bookmark flag of one notification.
func (nc *NotificationController) ToggleBookmark(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification id",
		})
	}

	notification, err := nc.service.ToggleBookmark(c.Request().Context(), userID, id)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Bookmark updated",
		Data:    notification,
	})
}

func (nc *NotificationController) setArchived(c echo.Context, archived bool) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.NotificationIDsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "At least one notification id is required",
		})
	}

	ids, err := parseObjectIDs(req.IDs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification id",
		})
	}

	var updated int64
	if archived {
		updated, err = nc.service.ArchiveNotifications(c.Request().Context(), userID, ids)
	} else {
		updated, err = nc.service.UnarchiveNotifications(c.Request().Context(), userID, ids)
	}
	if err != nil {
		return serviceError(c, err)
	}

	message := "Notifications archived"
	if !archived {
		message = "Notifications unarchived"
	}
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: message,
		Data:    map[string]int64{"updated": updated},
	})
}

// ArchiveNotifications archives the given notifications.
func (nc *NotificationController) ArchiveNotifications(c echo.Context) error {
	return nc.setArchived(c, true)
}

// UnarchiveNotifications unarchives the given notifications.
func (nc *NotificationController) UnarchiveNotifications(c echo.Context) error {
	return nc.setArchived(c, false)
}

// DeleteNotification permanently removes one notification.
func (nc *NotificationController) DeleteNotification(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification id",
		})
	}

	if err := nc.service.DeleteNotification(c.Request().Context(), userID, id); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notification deleted",
	})
}

// DeleteNotifications permanently removes a batch of notifications.
func (nc *NotificationController) DeleteNotifications(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.NotificationIDsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "At least one notification id is required",
		})
	}

	ids, err := parseObjectIDs(req.IDs)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid notification id",
		})
	}

	deleted, err := nc.service.DeleteNotifications(c.Request().Context(), userID, ids)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications deleted",
		Data:    map[string]int64{"deleted": deleted},
	})
}

// Sync reruns the login reconciliation on demand.
func (nc *NotificationController) Sync(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	if err := nc.service.SyncOnLogin(c.Request().Context(), userID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Notifications synchronized",
	})
}

// UpdateFCMToken stores the device token used by the offline fallback
// channel.
func (nc *NotificationController) UpdateFCMToken(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	var req models.FCMTokenUpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "FCM token is required",
		})
	}

	if err := nc.users.UpdateFCMToken(c.Request().Context(), userID, req.FCMToken); err != nil {
		c.Logger().Errorf("failed to update FCM token: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to update FCM token",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "FCM token updated",
	})
}
