package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"groupgames-service/internal/models"
)

// CurrentUser handles GET /auth/user with the profile stored by the auth
// middleware.
func CurrentUser(c *gin.Context) {
	val, ok := c.Get("user")
	user, isUser := val.(models.User)
	if !ok || !isUser {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
		return
	}
	c.JSON(http.StatusOK, user)
}
