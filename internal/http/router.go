package http

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig receives all controller dependencies, keeping the route table
// itself free of wiring.
type RouterConfig struct {
	Sync     *SyncController
	Servers  *ServersController
	Settings *SettingsController
	Health   *HealthController
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.GET("/health", cfg.Health.Status)

	api := router.Group("/api")
	{
		booksGroup := api.Group("/books/:id/sync")
		{
			booksGroup.GET("", cfg.Sync.Status)
			booksGroup.POST("/open", cfg.Sync.Open)
			booksGroup.POST("/close", cfg.Sync.Close)
			booksGroup.POST("/progress", cfg.Sync.Push)
			booksGroup.POST("/flush", cfg.Sync.Flush)
			booksGroup.POST("/resolve", cfg.Sync.Resolve)
			booksGroup.PUT("/enabled", cfg.Sync.SetSyncEnabled)
		}

		serversGroup := api.Group("/sync/servers")
		{
			serversGroup.GET("", cfg.Servers.List)
			serversGroup.POST("", cfg.Servers.Create)
			serversGroup.GET("/active", cfg.Servers.GetActive)
			serversGroup.POST("/:id/activate", cfg.Servers.Activate)
			serversGroup.POST("/:id/test", cfg.Servers.TestConnection)
			serversGroup.DELETE("/:id", cfg.Servers.Delete)
		}

		api.GET("/sync/settings", cfg.Settings.Get)
		api.PUT("/sync/settings", cfg.Settings.Update)
	}

	return router
}
