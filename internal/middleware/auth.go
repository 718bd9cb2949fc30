package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/polizaflow/agency-backend/internal/clients/redis"
	"github.com/polizaflow/agency-backend/internal/logger"
	"github.com/polizaflow/agency-backend/internal/requestdata"
	"github.com/polizaflow/agency-backend/internal/services"
	"github.com/polizaflow/agency-backend/internal/sse"
	"github.com/polizaflow/agency-backend/internal/ssedata"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	hub         *sse.SSEHub
	bus         redis.SSEBus
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, hub *sse.SSEHub, bus redis.SSEBus) *AuthMiddleware {
	return &AuthMiddleware{
		log:         log.With("middleware", "AuthMiddleware"),
		authService: authService,
		hub:         hub,
		bus:         bus,
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid token"})
			return
		}
		ctx, err := am.authService.SetContextFromToken(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		ctx = ssedata.WithSSEData(ctx)
		c.Request = c.Request.WithContext(ctx)

		rd := requestdata.GetRequestData(ctx)
		if rd == nil || rd.AgentID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()

		// Publish messages the handler buffered; by now every service
		// transaction has committed or rolled back.
		am.flushSSEData(ctx)
	}
}

func (am *AuthMiddleware) flushSSEData(ctx context.Context) {
	ssd := ssedata.GetSSEData(ctx)
	if ssd == nil {
		return
	}
	for _, msg := range ssd.Messages {
		if am.bus != nil {
			if err := am.bus.Publish(ctx, msg); err == nil {
				continue
			}
		}
		if am.hub != nil {
			am.hub.Broadcast(msg)
		}
	}
}

// extractToken accepts the Authorization header or, for EventSource
// connections that cannot set headers, a token query parameter.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return authHeader[7:]
	}
	if qToken := c.Query("token"); qToken != "" {
		return qToken
	}
	return ""
}
