package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"medibill-backend/config"
	"medibill-backend/models"
	"medibill-backend/routes"
	"medibill-backend/services"
)

func init() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}
	config.ConnectDB()

	config.DB.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Staff{},
		&models.Item{},
		&models.Transaction{},
		&models.TransactionItem{},
		&models.TransactionVersion{},
		&models.LogEntry{},
	)

	seedRoles()
}

func seedRoles() {
	for _, name := range []string{models.RoleUser, models.RoleAdmin, models.RoleSuperAdmin} {
		var role models.Role
		err := config.DB.Where("role_name = ?", name).First(&role).Error
		if err == nil {
			continue
		}
		if err := config.DB.Create(&models.Role{RoleName: name}).Error; err != nil {
			slog.Error("failed to seed role", "role", name, "err", err)
		}
	}
}

func main() {
	digest := services.NewDigestService(config.DB)
	digest.StartScheduler()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	r := routes.SetupRouter()
	printRoutes(r)
	r.Run(":" + port)
}

func printRoutes(r *gin.Engine) {
	routes := r.Routes()
	for _, route := range routes {
		fmt.Printf("%-6s %s\n", route.Method, route.Path)
	}
}
