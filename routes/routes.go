package routes

import (
	"review-assignment-api/controllers"
	"review-assignment-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Review Assignment API is running",
				})
			})

			// Token-authenticated reviewer endpoints: no session, the
			// invitation token is the only credential.
			public.GET("/review-invitations/:token", controllers.GetInvitationByToken)
			public.POST("/review-invitations/:token/respond", controllers.RespondToInvitation)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)

			// Reviewer matching and conflict checks
			manuscripts := protected.Group("/manuscripts")
			{
				manuscripts.POST("/:id/find-reviewers", middleware.RequireRole(1, 3), controllers.FindReviewers)
				manuscripts.GET("/:id/conflicts/:reviewer_id", middleware.RequireRole(1, 3), controllers.CheckConflicts)
				manuscripts.POST("/:id/conflicts/check", middleware.RequireRole(1, 3), controllers.CheckMultipleConflicts)

				// Invitations
				manuscripts.POST("/:id/invitations", middleware.RequireRole(1, 3), controllers.CreateInvitation)
				manuscripts.POST("/:id/invitations/bulk", middleware.RequireRole(1, 3), controllers.BulkInvite)
			}

			invitations := protected.Group("/invitations")
			{
				invitations.POST("/:id/cancel", middleware.RequireRole(1, 3), controllers.CancelInvitation)
			}
		}
	}

	// 404 handler
	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Route not found"})
	})
}
