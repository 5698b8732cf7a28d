package controllers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

const currentUserKey = "currentUser"

// UserLoader resolves the authenticated user id (set by the token middleware)
// into a full user row with its role, and rejects inactive accounts. Every
// protected handler receives its caller identity explicitly from here instead
// of reading ambient state deeper down.
func UserLoader() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userId")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}

		var user models.User
		if err := config.DB.Preload("Role").First(&user, userID).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		if !user.IsActive {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Account is inactive."})
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

// CurrentUser returns the caller resolved by UserLoader.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, exists := c.Get(currentUserKey)
	if !exists {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

var kindStatus = map[services.Kind]int{
	services.KindNotFound:         http.StatusNotFound,
	services.KindPermissionDenied: http.StatusForbidden,
	services.KindInvalidInput:     http.StatusBadRequest,
	services.KindConflict:         http.StatusConflict,
	services.KindAuthFailure:      http.StatusUnauthorized,
	services.KindStorage:          http.StatusInternalServerError,
}

// respondServiceError maps a service failure to its HTTP status. Storage
// failures are logged in full but rendered generically.
func respondServiceError(c *gin.Context, err error) {
	kind := services.KindOf(err)
	status := kindStatus[kind]

	message := err.Error()
	if kind == services.KindStorage {
		slog.Error("storage failure",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"err", err)
		message = "Database error"
	}
	utils.RespondWithError(c, status, message)
}
