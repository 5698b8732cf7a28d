package routes

import (
	"os"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medibill-backend/config"
	"medibill-backend/controllers"
	"medibill-backend/services"
	"medibill-backend/utils"
)

func SetupRouter() *gin.Engine {
	r := gin.Default()

	allowOrigins := []string{"http://localhost:3000"}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		allowOrigins = strings.Split(env, ",")
	}
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.Use(config.PerformanceLogger())

	registry := services.NewRegistry()
	crud := controllers.NewCrudController(registry)
	txns := controllers.NewTransactionController(services.NewVersioning())

	r.Static("/static/signatures", utils.SignatureDir())

	auth := r.Group("/auth")
	{
		auth.POST("/login", controllers.Login)

		auth.Use(utils.AuthMiddleware(), controllers.UserLoader())
		auth.GET("/me", controllers.Me)
	}

	api := r.Group("/api")
	{
		// Point-of-sale creation carries no amendment semantics and stays
		// open, as the kiosk posts before staff log in.
		api.POST("/save-transaction", txns.SaveTransaction)

		authed := api.Group("")
		authed.Use(utils.AuthMiddleware(), controllers.UserLoader())
		{
			authed.GET("/initial-data", txns.GetInitialData)
			authed.GET("/transaction-history", txns.GetTransactionHistory)

			authed.GET("/transaction/:id", txns.GetTransaction)
			authed.PUT("/transaction/:id", txns.UpdateTransaction)
			authed.GET("/transaction/:id/versions", txns.GetTransactionVersions)

			authed.POST("/import", controllers.ImportCSV)
			authed.GET("/import/template/:table", controllers.DownloadTemplate)

			authed.GET("/dashboard", controllers.GetDashboardOverview)
			authed.GET("/roles", crud.GetRoles)

			authed.GET("/:table", crud.ListRecords)
			authed.POST("/:table", crud.CreateRecord)
			authed.PUT("/:table/:id", crud.UpdateRecord)
			authed.DELETE("/:table/:id", crud.DeleteRecord)
		}
	}

	return r
}
