package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"user-management-api/internal/adapter/gin/response"
	pkgerrors "user-management-api/pkg/errors"
	"user-management-api/pkg/logger"
)

// userIDKey is the gin context key holding the authenticated user ID.
const userIDKey = "auth.user_id"

// TokenValidator resolves a bearer token to the user ID it was issued for.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// Auth rejects requests without a valid bearer token before any handler runs.
func Auth(tokens TokenValidator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, log, pkgerrors.NewUnauthorizedError("Not authorized, no token"))
			return
		}

		userID, err := tokens.Validate(token)
		if err != nil {
			logger.WithContext(c.Request.Context(), log).Info("rejected bearer token", zap.Error(err))
			response.Error(c, log, pkgerrors.NewUnauthorizedError("Not authorized, token failed"))
			return
		}

		c.Set(userIDKey, userID)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// UserID returns the ID stored by Auth, or "" outside authenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
