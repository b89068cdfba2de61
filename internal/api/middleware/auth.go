package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Marga-Ghale/ora-tasks-api/internal/logger"
	"github.com/Marga-Ghale/ora-tasks-api/internal/models"
)

const userIDKey = "userID"

// TokenValidator returns the user ID carried by an access token.
type TokenValidator interface {
	ValidateAccessToken(token string) (string, error)
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Success: false, Message: message})
}

// AuthMiddleware validates the Bearer token and sets the user ID in context.
func AuthMiddleware(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("missing authorization header")
			unauthorized(c, "Authorization header required")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			logger.Debug().Str("path", c.Request.URL.Path).Msg("invalid authorization header format")
			unauthorized(c, "Invalid authorization header format")
			return
		}

		userID, err := tokens.ValidateAccessToken(strings.TrimSpace(parts[1]))
		if err != nil || userID == "" {
			logger.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("invalid token")
			unauthorized(c, "Invalid or expired token")
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// GetUserID extracts user ID from gin context
func GetUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequireUserID writes a 401 and returns false if no user is authenticated.
func RequireUserID(c *gin.Context) (string, bool) {
	userID := GetUserID(c)
	if userID == "" {
		unauthorized(c, "User not authenticated")
		return "", false
	}
	return userID, true
}
