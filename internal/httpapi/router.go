package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/tutor-platform/internal/common"
	"github.com/suPer8Hu/tutor-platform/internal/config"
	"github.com/suPer8Hu/tutor-platform/internal/httpapi/handlers"
	"github.com/suPer8Hu/tutor-platform/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/healthz", h.Health)

	r.POST("/users", h.Register)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)
	authGroup.PUT("/me/preferences", h.UpdatePreferences)
	authGroup.PUT("/me/academic", h.UpdateAcademicInfo)

	authGroup.POST("/courses/:course_id/materials", h.UploadMaterial)
	authGroup.GET("/courses/:course_id/materials", h.ListMaterials)
	authGroup.GET("/courses/:course_id/materials/search", h.SearchMaterials)
	authGroup.GET("/materials/:id", h.GetMaterial)

	authGroup.POST("/chat/messages", h.SendChatMessage)
	authGroup.GET("/courses/:course_id/messages", h.ListChatMessages)

	return r
}
