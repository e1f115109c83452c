package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/taskhive/taskhive_backend/config"
	"github.com/taskhive/taskhive_backend/controllers"
	"github.com/taskhive/taskhive_backend/middleware"
	"github.com/taskhive/taskhive_backend/repositories"
	"github.com/taskhive/taskhive_backend/routes"
	"github.com/taskhive/taskhive_backend/services"
	"github.com/taskhive/taskhive_backend/websocket"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Initialize Firebase (offline push channel)
	config.InitFirebase()

	// Connect to Redis (unread counter cache); nil is tolerated, counters
	// then fall back to database counts
	redisClient := config.ConnectRedis()

	// Connect to database
	client := config.ConnectDB()

	// Create WebSocket hub (live delivery channel)
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(client)
	notificationRepo := repositories.NewNotificationRepository(client)

	presenceTracker := services.NewPresenceTracker(services.NewMongoPresenceStore(client))
	unreadCounter := services.NewRedisUnreadCounter(redisClient)
	offlineChannel := services.NewFCMChannel(client)

	notificationService := services.NewNotificationService(
		notificationRepo,
		userRepo,
		unreadCounter,
		presenceTracker,
		wsHub,
		offlineChannel,
	)

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo, presenceTracker, notificationService)
	notificationController := controllers.NewNotificationController(notificationService, userRepo)
	presenceController := controllers.NewPresenceController(presenceTracker)

	// Create a new Echo instance
	e := echo.New()
	e.Validator = &CustomValidator{validator: validator.New()}

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(echoMiddleware.Secure())
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "TaskHive Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	// Register routes
	routes.RegisterAuthRoutes(e, authController)
	routes.RegisterNotificationRoutes(e, notificationController, presenceController, wsHub, presenceTracker, notificationService)

	// Periodically clean up the token blacklist
	go middleware.CleanupBlacklist()

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}
