package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nikhilkumar000/Intern/internal/services"
	"github.com/nikhilkumar000/Intern/internal/utils"
)

type TranscriptHandler struct {
	svc services.TranscriptService
}

func NewTranscriptHandler(svc services.TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{svc: svc}
}

type AddChunkRequest struct {
	CallID     string     `json:"callId"`
	Speaker    string     `json:"speaker"`
	Text       string     `json:"text"`
	Language   string     `json:"language,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	EndedAt    *time.Time `json:"endedAt,omitempty"`
	ChunkIndex *int64     `json:"chunkIndex,omitempty"`
}

func (h *TranscriptHandler) AddChunk(c *gin.Context) {
	var req AddChunkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "TranscriptHandler.AddChunk", "invalid request body", err))
		return
	}

	_, err := h.svc.Append(c.Request.Context(), services.AppendChunkInput{
		CallID:     req.CallID,
		Speaker:    req.Speaker,
		Text:       req.Text,
		Language:   req.Language,
		StartedAt:  req.StartedAt,
		EndedAt:    req.EndedAt,
		ChunkIndex: req.ChunkIndex,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *TranscriptHandler) Full(c *gin.Context) {
	chunks, err := h.svc.List(c.Request.Context(), c.Param("callId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": chunks})
}
