package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/models"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/utils"
)

type AuthController struct {
	users         *repositories.UserRepository
	presence      *services.PresenceTracker
	notifications *services.NotificationService
}

func NewAuthController(users *repositories.UserRepository, presence *services.PresenceTracker, notifications *services.NotificationService) *AuthController {
	return &AuthController{
		users:         users,
		presence:      presence,
		notifications: notifications,
	}
}

// Signup registers a new user account.
func (ac *AuthController) Signup(c echo.Context) error {
	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid signup data",
		})
	}

	existing, err := ac.users.FindByEmail(c.Request().Context(), req.Email)
	if err != nil {
		c.Logger().Errorf("signup lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
	if existing != nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Email already registered",
		})
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		c.Logger().Errorf("password hashing failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}

	user := &models.User{
		Email:    req.Email,
		Password: hash,
		FullName: req.FullName,
	}
	if err := ac.users.Create(c.Request().Context(), user); err != nil {
		c.Logger().Errorf("user creation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}

	user.Password = ""
	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Account created",
		Data:    user,
	})
}

// Login authenticates a user, marks them online and kicks off the
// notification reconciliation for the new session.
func (ac *AuthController) Login(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and password are required",
		})
	}

	user, err := ac.users.FindByEmail(c.Request().Context(), req.Email)
	if err != nil {
		c.Logger().Errorf("login lookup failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}
	if user == nil || !utils.CheckPasswordHash(req.Password, user.Password) {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Invalid email or password",
		})
	}

	token, refreshToken, err := middleware.GenerateJWT(user.ID.Hex(), user.Email)
	if err != nil {
		c.Logger().Errorf("token generation failed: %v", err)
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Internal server error",
		})
	}

	if err := ac.presence.SetOnline(c.Request().Context(), user.ID); err != nil {
		log.Printf("Error marking user %s online: %v", user.ID.Hex(), err)
	}

	// Session-start reconciliation runs off the request path; its result
	// reaches the user over the live channel, not this response.
	userID := user.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := ac.notifications.SyncOnLogin(ctx, userID); err != nil {
			log.Printf("Error syncing notifications for user %s: %v", userID.Hex(), err)
		}
	}()

	user.Password = ""
	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Login successful",
		Data: models.LoginResponse{
			Token:        token,
			RefreshToken: refreshToken,
			User:         *user,
		},
	})
}

// Logout invalidates the current token and marks the user offline.
func (ac *AuthController) Logout(c echo.Context) error {
	userID, err := middleware.ExtractUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, models.Response{
			Status:  http.StatusUnauthorized,
			Message: "Unauthorized",
		})
	}

	if token, ok := c.Get("user").(*jwt.Token); ok {
		middleware.BlacklistToken(token.Raw, time.Now().Add(24*time.Hour))
	}

	if err := ac.presence.SetOffline(c.Request().Context(), userID); err != nil {
		log.Printf("Error marking user %s offline: %v", userID.Hex(), err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Logout successful",
	})
}
