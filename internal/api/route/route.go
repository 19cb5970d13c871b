package route

import (
	"net/http"

	"github.com/bassista/go_persist/internal/api/middleware"
	"github.com/bassista/go_persist/internal/app"
	"github.com/gin-gonic/gin"
)

// SetupRoutes builds the HTTP engine of the document service.
func SetupRoutes(appCtx *app.App) *gin.Engine {
	r := gin.New()
	r.Use(gin.LoggerWithWriter(gin.DefaultWriter, "/health"))
	r.Use(gin.Recovery())
	r.Use(middleware.Report(appCtx.Reporter))
	r.Use(middleware.CORSMiddleware(appCtx.Config.Server.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "UP",
		})
	})

	publicRouter := r.Group("")
	NewDocumentRouter(appCtx.Config.Server.RequestTimeout, publicRouter, appCtx)

	return r
}
