package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/tutor-platform/internal/common"
)

type sendMessageReq struct {
	CourseID string `json:"course_id" binding:"required"`
	Message  string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	reply, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, req.CourseID, req.Message)
	if err != nil {
		h.Log.Error("chat turn failed", "course_id", req.CourseID, "err", err)
		common.Fail(c, http.StatusBadGateway, 50020, "failed to generate reply")
		return
	}

	common.OK(c, gin.H{
		"course_id": req.CourseID,
		"reply":     reply,
	})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	var beforeID uint64
	if v := c.Query("before_id"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), uid, c.Param("course_id"), limit, beforeID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50021, "failed to list messages")
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}
