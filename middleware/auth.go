package middleware

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/NomadCrew/nomadnova-backend/errors"
	"github.com/NomadCrew/nomadnova-backend/logger"
	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token. Websocket clients that cannot
// set headers may pass the token as the "token" query parameter instead.
func AuthMiddleware(validator Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger()

		token := extractToken(c)
		if token == "" {
			_ = c.Error(apperrors.AuthenticationFailed("Authorization required"))
			c.Abort()
			return
		}

		userID, err := validator.Validate(token)
		if err != nil {
			log.Debugw("Token validation failed",
				"path", c.Request.URL.Path,
				"token", logger.MaskJWT(token),
				"error", err)
			message := "Invalid token"
			if errors.Is(err, ErrTokenExpired) {
				message = "Your session has expired"
			}
			_ = c.Error(apperrors.AuthenticationFailed(message))
			c.Abort()
			return
		}

		c.Set(string(UserIDKey), userID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), UserIDKey, userID))
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// GetUserID returns the authenticated user ID set by AuthMiddleware.
func GetUserID(c *gin.Context) string {
	return c.GetString(string(UserIDKey))
}
