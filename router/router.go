package router

import (
	"time"

	"github.com/NomadCrew/nomadnova-backend/config"
	"github.com/NomadCrew/nomadnova-backend/handlers"
	"github.com/NomadCrew/nomadnova-backend/internal/websocket"
	"github.com/NomadCrew/nomadnova-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config              *config.Config
	JWTValidator        middleware.Validator
	RedisClient         *redis.Client
	TripHandler         *handlers.TripHandler
	MemberHandler       *handlers.MemberHandler
	EconomyHandler      *handlers.EconomyHandler
	NotificationHandler *handlers.NotificationHandler
	HealthHandler       *handlers.HealthHandler
	WSHandler           *websocket.Handler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(deps.Config))

	if len(deps.Config.Server.TrustedProxies) > 0 {
		_ = r.SetTrustedProxies(deps.Config.Server.TrustedProxies)
	}

	// Health and Metrics Routes (typically don't require auth)
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	window := time.Duration(deps.Config.RateLimit.WindowSeconds) * time.Second
	membershipLimit := func(scope string) gin.HandlerFunc {
		return middleware.UserRateLimiter(deps.RedisClient, scope, deps.Config.RateLimit.MembershipPerMinute, window)
	}

	v1 := r.Group("/v1")
	authRoutes := v1.Group("")
	authRoutes.Use(middleware.AuthMiddleware(deps.JWTValidator))
	{
		// The token may arrive as a query parameter for browser websocket clients
		authRoutes.GET("/ws", deps.WSHandler.HandleWebSocket)

		tripRoutes := authRoutes.Group("/trips")
		{
			tripRoutes.POST("", deps.TripHandler.CreateTripHandler)
			tripRoutes.GET("", deps.TripHandler.ListUserTripsHandler)
			tripRoutes.GET("/:id", deps.TripHandler.GetTripHandler)
			tripRoutes.GET("/:id/members", deps.TripHandler.ListMembersHandler)
			tripRoutes.POST("/:id/complete", deps.TripHandler.CompleteTripHandler)
			tripRoutes.DELETE("/:id", membershipLimit("abandon"), deps.TripHandler.AbandonTripHandler)

			tripRoutes.POST("/:id/join", membershipLimit("join"), deps.MemberHandler.JoinTripHandler)
			tripRoutes.POST("/:id/leave", membershipLimit("leave"), deps.MemberHandler.LeaveTripHandler)
		}

		authRoutes.GET("/users/me/economy", deps.EconomyHandler.GetMyEconomyHandler)
		authRoutes.GET("/leaderboard", deps.EconomyHandler.LeaderboardHandler)

		notificationRoutes := authRoutes.Group("/notifications")
		{
			notificationRoutes.GET("", deps.NotificationHandler.GetNotificationsByUser)
			notificationRoutes.GET("/unread-count", deps.NotificationHandler.GetUnreadCount)
			notificationRoutes.PATCH("/read-all", deps.NotificationHandler.MarkAllNotificationsRead)
			notificationRoutes.PATCH("/:id/read", deps.NotificationHandler.MarkNotificationAsRead)
			notificationRoutes.DELETE("/:id", deps.NotificationHandler.DeleteNotification)
			notificationRoutes.DELETE("", deps.NotificationHandler.DeleteAllNotifications)
		}
	}

	return r
}
