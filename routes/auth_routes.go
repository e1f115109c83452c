package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
)

// RegisterAuthRoutes sets up authentication routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController) {
	authGroup := e.Group("/api/auth")
	authGroup.POST("/signup", authController.Signup)
	authGroup.POST("/login", authController.Login)

	protected := e.Group("/api/auth")
	protected.Use(middleware.JWTMiddleware())
	protected.POST("/logout", authController.Logout)
}
