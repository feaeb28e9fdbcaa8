package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"review-assignment-api/config"
	"review-assignment-api/controllers"
	"review-assignment-api/middleware"
	"review-assignment-api/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logging and database
	logFile, _ := config.InitLogging()
	if logFile != nil {
		defer logFile.Close()
	}
	config.InitDB()
	controllers.InitServices(config.DB)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add logging middleware
	router.Use(gin.Logger())

	// Add recovery middleware
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'self'")
		c.Next()
	})

	// Add CORS middleware
	router.Use(middleware.CORSMiddleware())

	// Setup routes
	routes.SetupRoutes(router)

	// Start the invitation notification dispatcher
	dispatchInterval := time.Minute
	if raw := os.Getenv("NOTIFY_DISPATCH_INTERVAL"); raw != "" {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			dispatchInterval = time.Duration(seconds) * time.Second
		}
	}
	controllers.Notifications().StartDispatcher(context.Background(), dispatchInterval)

	// Start server
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	log.Printf("Notification dispatch interval: %s", dispatchInterval)

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
