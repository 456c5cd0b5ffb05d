package router

import (
	"github.com/aulahub/console/handler"
	"github.com/aulahub/console/middleware"
	ginmetrics "github.com/aulahub/console/pkg/metrics/gin"
	"github.com/gin-gonic/gin"
)

func Setup(jwtSecret string, subjects *handler.SubjectHandler, modules *handler.ModuleHandler, drafts *handler.DraftHandler) *gin.Engine {
	r := gin.Default()
	r.Use(ginmetrics.PrometheusMiddleware("console"))

	api := r.Group("/api")
	api.Use(middleware.JWTAuth(jwtSecret))
	{
		api.GET("/cursos", subjects.ListCourses)

		api.POST("/materias", subjects.CreateSubject)
		api.PUT("/materias/:id", subjects.UpdateSubject)
		api.GET("/materias/:id/modulos", drafts.ResolveSubject)
		api.POST("/materias/:id/modulos", modules.CreateModule)

		api.PUT("/modulos/:id", modules.UpdateModule)
		api.DELETE("/modulos/:id", modules.DeleteModule)
		api.POST("/modulos/:id/reorder", modules.ReorderAttachments)
		api.POST("/videos/validate", modules.ValidateVideo)

		api.GET("/draft", drafts.ResolveDraft)
		api.PUT("/draft", drafts.SaveDraft)
		api.POST("/draft/modulos", drafts.CreateDraftModule)
		api.PUT("/draft/modulos/:id", drafts.UpdateDraftModule)
		api.DELETE("/draft/modulos/:id", drafts.DeleteDraftModule)
		api.POST("/draft/modulos/:id/reorder", drafts.ReorderDraftModule)
		api.POST("/draft/finish", drafts.Finish)
		api.POST("/draft/cancel", drafts.Cancel)
	}
	return r
}
