package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"groupgames-service/internal/auth"
	"groupgames-service/internal/models"
)

// TokenParser validates a bearer token.
type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// UserUpserter persists the profile carried by the token.
type UserUpserter interface {
	UpsertUser(ctx context.Context, user models.User) (models.User, error)
}

// AuthMiddleware validates the bearer token, upserts the caller's profile and
// stores the user id under "userID". Browsers cannot set headers on a websocket
// upgrade, so a "token" query parameter is accepted as well.
func AuthMiddleware(tokens TokenParser, users UserUpserter) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		claims, err := tokens.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		user, err := users.UpsertUser(c.Request.Context(), claims.User())
		if err != nil {
			logrus.WithError(err).WithField("user_id", claims.Subject).Error("upsert user failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Internal server error"})
			return
		}

		c.Set("userID", user.ID)
		c.Set("user", user)
		c.Next()
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token := c.Query("token")
		return token, token != ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
