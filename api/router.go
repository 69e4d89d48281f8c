package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yourusername/ytdl-relay/api/handlers"
	"github.com/yourusername/ytdl-relay/api/middleware"
	"github.com/yourusername/ytdl-relay/internal/app"
	"github.com/yourusername/ytdl-relay/pkg/logger"
)

// SetupRouter sets up the HTTP router
func SetupRouter(
	manager *app.SessionManager,
	reporter *app.ProgressReporter,
	store *app.SessionStore,
	logAdapter *logger.LoggerAdapter,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(logAdapter))
	router.Use(middleware.Recovery(logAdapter))
	router.Use(middleware.CORS())

	healthHandler := handlers.NewHealthHandler(store)
	router.GET("/health", healthHandler.Health)

	downloadHandler := handlers.NewDownloadHandler(manager, reporter, logAdapter.General())
	router.GET("/validate", downloadHandler.Validate)
	router.GET("/download", downloadHandler.Download)
	router.GET("/progress", downloadHandler.Progress)

	wsHandler := handlers.NewProgressWebSocketHandler(reporter, logAdapter.General())
	router.GET("/progress/ws", wsHandler.HandleWebSocket)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, handlers.ErrorResponse{Error: "NotFound", Message: "no such endpoint"})
	})

	return router
}
