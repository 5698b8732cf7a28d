// controllers/auth.go
package controllers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/services"
	"medibill-backend/utils"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a signed token carrying the user id and
// role. Inactive accounts are rejected; every successful login is audited.
func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Missing username or password")
		return
	}

	username := strings.TrimSpace(input.Username)

	var user models.User
	result := config.DB.Preload("Role").Where("username = ?", username).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid username or password.")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.PasswordHash) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid username or password.")
		return
	}

	if !user.IsActive {
		utils.RespondWithError(c, http.StatusForbidden, "Account is inactive.")
		return
	}

	token, err := utils.GenerateToken(user.UserID, user.RoleName())
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	userID := user.UserID
	if err := services.AddLogEntry(config.DB, &userID, "User '"+user.Username+"' logged in."); err != nil {
		slog.Error("failed to log login event", "user", user.Username, "err", err)
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user": gin.H{
			"user_id":   user.UserID,
			"username":  user.Username,
			"full_name": user.FullName,
			"role":      user.RoleName(),
		},
	})
}

// Me returns the authenticated caller's identity.
func Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": gin.H{
			"user_id":   user.UserID,
			"username":  user.Username,
			"full_name": user.FullName,
			"role":      user.RoleName(),
		},
	})
}
