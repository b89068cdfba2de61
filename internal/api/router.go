// Package api assembles the HTTP router.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/api/handlers"
	"github.com/Marga-Ghale/ora-tasks-api/internal/api/middleware"
	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/service"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports an unhealthy dependency by returning an error.
type HealthCheck func(ctx context.Context) error

type RouterDeps struct {
	Services    *service.Services
	CORSOrigins []string

	// WebSocket serves GET /api/ws when set.
	WebSocket gin.HandlerFunc
	// Checks are run by /health, keyed by component name.
	Checks map[string]HealthCheck
	// WSClients reports connected websocket clients for /health.
	WSClients func() int
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(logger.GinRecovery(), logger.GinLogger())

	// Configure CORS
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(deps.CORSOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = deps.CORSOrigins
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", healthHandler(deps))

	h := handlers.NewHandlers(deps.Services)

	api := r.Group("/api")
	{
		// ============================================
		// Public routes (no auth required)
		// ============================================
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Auth.Register)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/refresh", h.Auth.Refresh)
			auth.POST("/logout", h.Auth.Logout)
		}

		// WebSocket authenticates itself from the query string
		if deps.WebSocket != nil {
			api.GET("/ws", deps.WebSocket)
		}

		// ============================================
		// Protected routes (require auth middleware)
		// ============================================
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(deps.Services.Auth))
		{
			users := protected.Group("/users")
			{
				users.GET("/me", h.User.GetCurrentUser)
				users.GET("/search", h.User.SearchUsers)
			}

			teams := protected.Group("/teams")
			{
				teams.POST("", h.Team.Create)
				teams.GET("", h.Team.ListMine)
				teams.GET("/:id", h.Team.Get)
				teams.DELETE("/:id", h.Team.Delete)

				teams.POST("/:id/members", h.Team.AddMember)
				teams.PATCH("/:id/members/:userId", h.Team.UpdateMemberRole)
				teams.DELETE("/:id/members/:userId", h.Team.RemoveMember)
			}

			projects := protected.Group("/projects")
			{
				projects.POST("", h.Project.Create)
				projects.GET("", h.Project.ListMine)
				projects.GET("/:id", h.Project.Get)
				projects.PUT("/:id", h.Project.Update)
				projects.DELETE("/:id", h.Project.Delete)
				projects.GET("/:id/role", h.Project.Role)

				// Members
				projects.GET("/:id/members", h.Project.ListMembers)
				projects.POST("/:id/members", h.Project.AddMember)
				projects.DELETE("/:id/members/:userId", h.Project.RemoveMember)

				// Tasks
				projects.GET("/:id/tasks", h.Task.ListByProject)
				projects.POST("/:id/tasks", h.Task.Create)
			}

			tasks := protected.Group("/tasks")
			{
				tasks.GET("/mine", h.Task.ListMine)
				tasks.GET("/:id", h.Task.Get)
				tasks.PUT("/:id", h.Task.Update)
				tasks.PATCH("/:id/assignee", h.Task.Assign)
				tasks.DELETE("/:id", h.Task.Delete)

				// Comments
				tasks.GET("/:id/comments", h.Comment.ListByTask)
				tasks.POST("/:id/comments", h.Comment.Create)

				// Attachments
				tasks.GET("/:id/attachments", h.Attachment.ListByTask)
				tasks.POST("/:id/attachments", h.Attachment.Upload)
			}

			protected.DELETE("/comments/:id", h.Comment.Delete)

			attachments := protected.Group("/attachments")
			{
				attachments.GET("/:id/download", h.Attachment.Download)
				attachments.DELETE("/:id", h.Attachment.Delete)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", h.Notification.List)
				notifications.GET("/count", h.Notification.Count)
				notifications.PATCH("/read-all", h.Notification.MarkAllRead)
				notifications.PATCH("/:id/read", h.Notification.MarkRead)
			}
		}
	}

	return r
}

func healthHandler(deps RouterDeps) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		status := http.StatusOK
		components := gin.H{}
		for name, check := range deps.Checks {
			if err := check(ctx); err != nil {
				logger.Warn().Err(err).Str("component", name).Msg("health check failed")
				components[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			components[name] = "connected"
		}

		body := gin.H{
			"status":     "healthy",
			"timestamp":  time.Now(),
			"components": components,
		}
		if status != http.StatusOK {
			body["status"] = "degraded"
		}
		if deps.WSClients != nil {
			body["ws_clients"] = deps.WSClients()
		}
		c.JSON(status, body)
	}
}
