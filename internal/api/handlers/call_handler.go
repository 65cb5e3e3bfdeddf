package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nikhilkumar000/Intern/internal/services"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

// PresenceReader exposes the current online-experts snapshot.
type PresenceReader interface {
	OnlineExperts(ctx context.Context) services.OnlineExpertsSnapshot
}

type CallHandler struct {
	calls    services.CallService
	presence PresenceReader
}

func NewCallHandler(calls services.CallService, presence PresenceReader) *CallHandler {
	return &CallHandler{calls: calls, presence: presence}
}

type StartCallRequest struct {
	ExpertID string `json:"expertId"`
	UserID   string `json:"userId"`
}

type EndCallRequest struct {
	CallID    string `json:"callId"`
	EndReason string `json:"endReason"`
}

type SetStatusRequest struct {
	CallID    string `json:"callId"`
	Status    string `json:"status"`
	EndReason string `json:"endReason"`
}

// Start creates a ringing session. The authenticated user wins over the
// userId field, which is accepted for clients that do not send a token.
func (h *CallHandler) Start(c *gin.Context) {
	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.Start", "invalid request body", err))
		return
	}

	callerID := userID(c)
	if callerID == "" {
		callerID = req.UserID
	}

	call, err := h.calls.Start(c.Request.Context(), callerID, req.ExpertID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "call": call})
}

func (h *CallHandler) End(c *gin.Context) {
	var req EndCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.End", "invalid request body", err))
		return
	}

	call, err := h.calls.End(c.Request.Context(), req.CallID, req.EndReason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "call": call})
}

func (h *CallHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.SetStatus", "invalid request body", err))
		return
	}

	call, err := h.calls.SetStatus(c.Request.Context(), req.CallID, req.Status, req.EndReason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "call": call})
}

func (h *CallHandler) Get(c *gin.Context) {
	call, err := h.calls.Get(c.Request.Context(), c.Param("callId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "call": call})
}

func (h *CallHandler) History(c *gin.Context) {
	uid, ok := requireUserID(c)
	if !ok {
		return
	}
	limit, err := queryLimit(c, 50)
	if err != nil {
		writeError(c, err)
		return
	}

	calls, err := h.calls.History(c.Request.Context(), uid, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": calls})
}

// AdminList is mounted behind RequireAdmin.
func (h *CallHandler) AdminList(c *gin.Context) {
	limit, err := queryLimit(c, 100)
	if err != nil {
		writeError(c, err)
		return
	}

	calls, err := h.calls.List(c.Request.Context(), c.Query("status"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": calls})
}

func (h *CallHandler) OnlineExperts(c *gin.Context) {
	snap := h.presence.OnlineExperts(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"success": true, "data": snap})
}
