package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/services"
)

type PresenceController struct {
	presence *services.PresenceTracker
}

func NewPresenceController(presence *services.PresenceTracker) *PresenceController {
	return &PresenceController{presence: presence}
}

// Heartbeat records activity for the authenticated user. Clients without a
// websocket session call this periodically to stay reachable.
func (pc *PresenceController) Heartbeat(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	if err := pc.presence.Heartbeat(c.Request().Context(), userID); err != nil {
		c.Logger().Errorf("failed to record heartbeat: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to record heartbeat",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Heartbeat recorded",
	})
}

// Status returns the derived presence tier of any user.
func (pc *PresenceController) Status(c echo.Context) error {
	userID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid user id",
		})
	}

	status, lastSeen, err := pc.presence.Status(c.Request().Context(), userID)
	if err != nil {
		c.Logger().Errorf("failed to load presence status: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to load presence status",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Presence status retrieved",
		Data: models.PresenceStatusResponse{
			UserID:   userID.Hex(),
			Status:   status,
			LastSeen: lastSeen,
		},
	})
}
