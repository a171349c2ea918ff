package handlers

import (
	"net/http"
	"time"

	"betting-pool/internal/auth"
	"betting-pool/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Services bundles what the router dispatches to
type Services struct {
	Users          *services.UserService
	Bets           *services.BetService
	Pool           *services.PoolService
	Participation  *services.ParticipationService
	Settlement     *services.SettlementService
	Ledger         *services.LedgerService
	Admin          *services.AdminService
	Reconciliation *services.ReconciliationService
}

// NewRouter builds the HTTP surface. metricsHandler may be nil.
func NewRouter(svc Services, frontendURL string, metricsHandler http.Handler, log *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(log))

	allowedOrigins := []string{
		"http://localhost:3000", // Local development
		"http://localhost:5173", // Vite dev server
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
	}
	if frontendURL != "" {
		allowedOrigins = append(allowedOrigins, frontendURL)
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.GET("/metrics", gin.WrapH(metricsHandler))

	betHandler := NewBetHandler(svc.Bets, svc.Pool, svc.Settlement, log)
	participationHandler := NewParticipationHandler(svc.Participation, log)
	userHandler := NewUserHandler(svc.Users, svc.Ledger, log)
	adminHandler := NewAdminHandler(svc.Admin, svc.Ledger, svc.Reconciliation, log)

	// Public bet routes
	router.GET("/api/bets", betHandler.ListBets)
	router.GET("/api/bets/:id", betHandler.GetBet)
	router.GET("/api/bets/:id/pool-stats", betHandler.GetPoolStats)

	// API routes (protected)
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware(), EnsureUser(svc.Users, log))
	{
		userRoutes := api.Group("/user")
		{
			userRoutes.GET("/profile", userHandler.GetProfile)
			userRoutes.PUT("/profile", userHandler.UpdateProfile)
			userRoutes.GET("/payment-history", userHandler.GetPaymentHistory)
			userRoutes.GET("/participations", userHandler.GetParticipations)
		}

		api.GET("/bets/:id/participation", participationHandler.GetParticipation)
		api.POST("/bets/:id/participation", participationHandler.Participate)
		api.PUT("/bets/:id/participation", participationHandler.EditParticipation)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware(), auth.AdminMiddleware(), EnsureUser(svc.Users, log))
	{
		admin.GET("/stats", adminHandler.GetStats)
		admin.GET("/analytics", adminHandler.GetAnalytics)
		admin.GET("/logs", adminHandler.GetAdminLogs)
		admin.POST("/reconcile", adminHandler.Reconcile)

		// User management
		admin.GET("/users", adminHandler.ListUsers)
		admin.DELETE("/users/:id", adminHandler.DeactivateUser)
		admin.POST("/users/:id/adjust-balance", adminHandler.AdjustBalance)

		// Bet management
		admin.POST("/bets", betHandler.CreateBet)
		admin.PUT("/bets/:id", betHandler.UpdateBet)
		admin.PUT("/bets/:id/commission", betHandler.UpdateCommission)
		admin.PUT("/bets/:id/complete", betHandler.CompleteBet)
		admin.DELETE("/bets/:id", betHandler.DeleteBet)
	}

	return router
}
