package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/tutor-platform/internal/common"
	"github.com/suPer8Hu/tutor-platform/internal/material"
)

const maxUploadBytes = 50 << 20 // 50 MiB

// UploadMaterial stores the file and returns immediately with the
// pending row; processing happens in the background.
func (h *Handler) UploadMaterial(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	courseID := c.Param("course_id")
	if courseID == "" {
		common.Fail(c, http.StatusBadRequest, 10010, "course_id required")
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10011, "file required")
		return
	}
	if fileHeader.Size > maxUploadBytes {
		common.Fail(c, http.StatusRequestEntityTooLarge, 10012, "file too large")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10013, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10013, "failed to read file")
		return
	}

	m, err := h.Materials.Upload(c.Request.Context(), courseID, fileHeader.Filename, data)
	if err != nil {
		h.Log.Error("upload failed", "course_id", courseID, "err", err)
		common.Fail(c, http.StatusInternalServerError, 50010, "failed to store material")
		return
	}

	common.OK(c, m)
}

func (h *Handler) GetMaterial(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	m, err := h.Materials.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, material.ErrNotFound) {
			common.Fail(c, http.StatusNotFound, 40410, "material not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50011, "failed to load material")
		return
	}
	common.OK(c, m)
}

func (h *Handler) ListMaterials(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	mats, err := h.Materials.ListByCourse(c.Request.Context(), c.Param("course_id"))
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50012, "failed to list materials")
		return
	}
	common.OK(c, gin.H{"materials": mats})
}

func (h *Handler) SearchMaterials(c *gin.Context) {
	if _, ok := userIDFromContext(c); !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	results, err := h.Searcher.Search(c.Request.Context(), c.Param("course_id"), c.Query("q"), limit)
	if err != nil {
		h.Log.Error("search failed", "course_id", c.Param("course_id"), "err", err)
		common.Fail(c, http.StatusInternalServerError, 50013, "search failed")
		return
	}
	common.OK(c, gin.H{"results": results})
}
