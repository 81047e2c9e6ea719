package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/tutor-platform/internal/auth"
	"github.com/suPer8Hu/tutor-platform/internal/common"
	"github.com/suPer8Hu/tutor-platform/internal/user"
)

type registerReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !strings.Contains(req.Email, "@") || len(req.Password) < 8 {
		common.Fail(c, http.StatusBadRequest, 10002, "valid email and password (min 8 chars) required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	u := &user.User{Email: req.Email, PasswordHash: hash}
	if err := h.Users.Create(c.Request.Context(), u); err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(u.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"user_id": u.ID, "token": token})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	u, err := h.Users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil || !auth.CheckPassword(u.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40103, "invalid credentials")
		return
	}

	token, err := auth.SignJWT(u.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{"user_id": u.ID, "token": token})
}

func (h *Handler) Me(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	u, err := h.Users.GetByID(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusNotFound, 40401, "user not found")
		return
	}

	resp := gin.H{"user": u}
	if prefs, err := h.Users.GetPreferences(c.Request.Context(), uid); err == nil {
		resp["preferences"] = prefs
	}
	if info, err := h.Users.GetAcademicInfo(c.Request.Context(), uid); err == nil {
		resp["academic_info"] = info
	}
	common.OK(c, resp)
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var prefs user.Preferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !validWeight(prefs.DetailLevel) || !validWeight(prefs.ExamplePreference) ||
		!validWeight(prefs.AnalogyPreference) || !validWeight(prefs.TechnicalLanguage) ||
		!validWeight(prefs.StructurePreference) || !validWeight(prefs.VisualPreference) {
		common.Fail(c, http.StatusBadRequest, 10004, "preference weights must be within 0..1")
		return
	}
	if !validPace(prefs.LearningPace) || !validExperience(prefs.PriorExperience) {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid learning_pace or prior_experience")
		return
	}

	prefs.UserID = uid
	if err := h.Users.SavePreferences(c.Request.Context(), &prefs); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to save preferences")
		return
	}
	common.OK(c, prefs)
}

func (h *Handler) UpdateAcademicInfo(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var info user.AcademicInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	info.UserID = uid
	if err := h.Users.SaveAcademicInfo(c.Request.Context(), &info); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to save academic info")
		return
	}
	common.OK(c, info)
}

func validWeight(w float64) bool { return w >= 0 && w <= 1 }

func validPace(p string) bool {
	switch p {
	case user.PaceSlow, user.PaceModerate, user.PaceFast:
		return true
	}
	return false
}

func validExperience(e string) bool {
	switch e {
	case user.ExperienceBeginner, user.ExperienceIntermediate,
		user.ExperienceAdvanced, user.ExperienceExpert:
		return true
	}
	return false
}
