package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/colenew1/Upload-BPO/config"
	"github.com/colenew1/Upload-BPO/database"
	"github.com/colenew1/Upload-BPO/server/handlers"
	"github.com/colenew1/Upload-BPO/server/middleware"
	"github.com/colenew1/Upload-BPO/server/services"
)

// NewRouter собирает gin-роутер со всеми маршрутами и middleware
func NewRouter(cfg *config.Config, serviceDB *database.ServiceDB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())

	uploadService := services.NewUploadService(serviceDB, cfg)
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.MaxUploadSizeMB)
	ruleHandler := handlers.NewAliasRuleHandler(serviceDB)

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		uploads := api.Group("/uploads")
		uploads.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		uploads.POST("", uploadHandler.HandleUpload)

		previews := api.Group("/previews")
		previews.GET("/:id", uploadHandler.HandleGetPreview)
		previews.POST("/:id/commit", uploadHandler.HandleCommitPreview)
		previews.GET("/:id/summary", uploadHandler.HandleExportSummary)

		rules := api.Group("/alias-rules/:kind")
		rules.GET("", ruleHandler.HandleList)
		rules.POST("", ruleHandler.HandleCreate)
		rules.PUT("/:id", ruleHandler.HandleUpdate)
		rules.DELETE("/:id", ruleHandler.HandleDelete)
	}

	return router
}
