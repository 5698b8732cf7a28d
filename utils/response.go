// utils/response.go
package utils

import "github.com/gin-gonic/gin"

// RespondWithError sends the structured error payload used across the API.
func RespondWithError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}
