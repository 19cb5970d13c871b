package route

import (
	"time"

	"github.com/bassista/go_persist/internal/api/controller"
	"github.com/bassista/go_persist/internal/api/middleware"
	"github.com/bassista/go_persist/internal/app"
	"github.com/gin-gonic/gin"
)

func NewDocumentRouter(timeout time.Duration, group *gin.RouterGroup, appCtx *app.App) {
	group.Use(middleware.RequestTimeout(timeout, appCtx.Reporter))

	dc := controller.NewDocumentController(appCtx)

	group.GET("status", dc.Status)
	group.GET("document", dc.GetDocument)
	group.PUT("document", dc.ReplaceDocument)
	group.PATCH("document", dc.MergeDocument)
	group.GET("document/:key", dc.GetKey)
	group.DELETE("document/:key", dc.DeleteKey)
	group.POST("persist", dc.Persist)
	group.POST("load", dc.Load)
}
