package handlers

import (
	"net/http"
	"time"

	"betting-pool/internal/auth"
	"betting-pool/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDKey = "request_id"
	actorKey     = "actor"
)

// RequestLogger tags each request with an id and logs its outcome
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		log.Info("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// EnsureUser provisions the authenticated caller and stores the resolved
// actor. It must run after auth.AuthMiddleware.
func EnsureUser(users *services.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := auth.GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		_, err := users.EnsureUser(c.Request.Context(), services.Identity{
			UserID:  claims.UserID(),
			Name:    claims.Name,
			Email:   claims.Email,
			IsAdmin: claims.IsAdmin,
		})
		if err != nil {
			respondError(c, log, err)
			c.Abort()
			return
		}

		c.Set(actorKey, services.Actor{UserID: claims.UserID(), IsAdmin: claims.IsAdmin})
		c.Next()
	}
}

// actorFrom returns the caller resolved by EnsureUser
func actorFrom(c *gin.Context) services.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(services.Actor); ok {
			return actor
		}
	}
	return services.Actor{}
}
