package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/soundwave"
	"github.com/MrEthical07/soundwave/middleware"
	"github.com/gin-gonic/gin"
)

type audioPlayRequest struct {
	UserID    string `json:"userId" binding:"required"`
	SessionID string `json:"sessionId" binding:"required"`
}

type profileRequest struct {
	Profile string `json:"profile" binding:"required,oneof=USER ARTIST"`
}

type loginRequest struct {
	UserID string `json:"userId" binding:"required"`
}

func (h *Handler) handleAudioPlay(c *gin.Context) {
	caller, ok := callerID(c)
	if !ok {
		return
	}

	var req audioPlayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId and sessionId are required")
		return
	}
	if req.UserID != caller {
		c.AbortWithStatusJSON(http.StatusForbidden, middleware.ErrorBody{
			Error:   CodeForbidden,
			Message: "userId does not match the authenticated user",
		})
		return
	}

	if err := h.engine.HandleAudioPlay(c.Request.Context(), req.UserID, req.SessionID); err != nil {
		h.log.Error("http.audio_play.fail", "user_id", req.UserID, "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, middleware.ErrorBody{
			Error:   soundwave.CodeInternal,
			Message: "failed to handle audio play",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Audio play handled"})
}

func (h *Handler) handleListSessions(c *gin.Context) {
	userID, sessionID, ok := callerSession(c)
	if !ok {
		return
	}

	sessions, err := h.engine.ListSessions(c.Request.Context(), userID)
	if err != nil {
		middleware.GinAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"currentSessionId": sessionID, "sessions": sessions})
}

func (h *Handler) handleUpdateProfile(c *gin.Context) {
	userID, sessionID, ok := callerSession(c)
	if !ok {
		return
	}

	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "profile must be USER or ARTIST")
		return
	}

	if err := h.engine.UpdateSessionProfile(c.Request.Context(), userID, sessionID, req.Profile); err != nil {
		middleware.GinAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "currentProfile": req.Profile})
}

func (h *Handler) handleLogout(c *gin.Context) {
	userID, sessionID, ok := callerSession(c)
	if !ok {
		return
	}

	if err := h.engine.RemoveSession(c.Request.Context(), userID, sessionID); err != nil {
		middleware.GinAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *Handler) handleLogoutAll(c *gin.Context) {
	userID, _, ok := callerSession(c)
	if !ok {
		return
	}

	if err := h.engine.LogoutAll(c.Request.Context(), userID); err != nil {
		middleware.GinAbort(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out everywhere"})
}

func (h *Handler) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "userId is required")
		return
	}

	res, err := h.engine.Login(c.Request.Context(), req.UserID)
	if err != nil {
		if !errors.Is(err, soundwave.ErrUserNotFound) && !errors.Is(err, soundwave.ErrAccountDeactivated) {
			h.log.Error("http.login.fail", "user_id", req.UserID, "error", err)
		}
		middleware.GinAbort(c, err)
		return
	}

	body := gin.H{"sessionId": res.SessionID}
	if res.AccessToken != "" {
		body["accessToken"] = res.AccessToken
		body["expiresIn"] = int64(res.ExpiresIn.Seconds())
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusCreated, body)
}
