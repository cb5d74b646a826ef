package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compasshq/compass-backend/internal/handlers"
	"github.com/compasshq/compass-backend/internal/platform/apierr"
	"github.com/compasshq/compass-backend/internal/platform/logger"
	"github.com/compasshq/compass-backend/internal/services"
)

type AuthMiddleware struct {
	log  *logger.Logger
	auth services.AuthService
}

func NewAuthMiddleware(log *logger.Logger, auth services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("middleware", "Auth"), auth: auth}
}

// RequireAuth validates the bearer token and attaches the authenticated
// identity to the request context. Requests without a valid token get a
// 401 envelope and never reach the handler.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c)
		if err != nil {
			handlers.RespondError(c, m.log, err)
			c.Abort()
			return
		}
		ctx, err := m.auth.SetContextFromToken(c.Request.Context(), token)
		if err != nil {
			handlers.RespondError(c, m.log, err)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", apierr.New(http.StatusUnauthorized, "missing_token", fmt.Errorf("missing Authorization header"))
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apierr.New(http.StatusUnauthorized, "malformed_token", fmt.Errorf("malformed Authorization header"))
	}
	return parts[1], nil
}
