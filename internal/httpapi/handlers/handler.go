package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/tutor-platform/internal/ai"
	"github.com/suPer8Hu/tutor-platform/internal/chat"
	"github.com/suPer8Hu/tutor-platform/internal/common"
	"github.com/suPer8Hu/tutor-platform/internal/config"
	"github.com/suPer8Hu/tutor-platform/internal/httpapi/middleware"
	"github.com/suPer8Hu/tutor-platform/internal/logger"
	"github.com/suPer8Hu/tutor-platform/internal/material"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

// Handler holds the constructed services; everything is injected from
// main so there is no hidden global state.
type Handler struct {
	Cfg       config.Config
	Users     *user.Repo
	Materials *material.Service
	Searcher  *material.Searcher
	ChatSvc   *chat.Service
	Provider  ai.Provider
	Log       *logger.Logger
}

func NewHandler(cfg config.Config, users *user.Repo, materials *material.Service,
	searcher *material.Searcher, chatSvc *chat.Service, provider ai.Provider, log *logger.Logger) *Handler {
	return &Handler{
		Cfg:       cfg,
		Users:     users,
		Materials: materials,
		Searcher:  searcher,
		ChatSvc:   chatSvc,
		Provider:  provider,
		Log:       log,
	}
}

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.Provider.HealthCheck(c.Request.Context()); err != nil {
		common.Fail(c, http.StatusServiceUnavailable, 50300, "ai provider unavailable")
		return
	}
	common.OK(c, gin.H{"status": "ok"})
}

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}
