package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/lingualink/internal/models"
	mongorepo "github.com/yoockh/lingualink/internal/repositories/mongo"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/utils"
)

type CallHandler struct {
	svc         services.CallService
	transcripts mongorepo.TranscriptRepository
}

func NewCallHandler(svc services.CallService, transcripts mongorepo.TranscriptRepository) *CallHandler {
	return &CallHandler{svc: svc, transcripts: transcripts}
}

type StartCallRequest struct {
	CallerLanguage string         `json:"caller_language" binding:"required"`
	Metadata       map[string]any `json:"metadata"`
}

func (h *CallHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req StartCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.Start", "invalid request body", err))
		return
	}

	sess, err := h.svc.Start(c.Request.Context(), userID, req.CallerLanguage, req.Metadata)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sess)
}

func (h *CallHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Get(c.Request.Context(), c.Param("call_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !participant(c, sess, userID) {
		writeError(c, utils.E(utils.CodeForbidden, "CallHandler.Get", "forbidden", nil))
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (h *CallHandler) ListWaiting(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	out, err := h.svc.ListWaiting(c.Request.Context(), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": out})
}

type ClaimCallRequest struct {
	AgentLanguage string `json:"agent_language" binding:"required"`
}

// Claim is the agent's attempt to take a waiting call. Losing the race
// returns 409 CONTENTION; the agent resumes discovery.
func (h *CallHandler) Claim(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req ClaimCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.Claim", "invalid request body", err))
		return
	}

	sess, err := h.svc.Claim(c.Request.Context(), c.Param("call_id"), userID, req.AgentLanguage)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, sess)
}

func (h *CallHandler) Answer(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	sess, err := h.svc.Get(c.Request.Context(), callID)
	if err != nil {
		writeError(c, err)
		return
	}
	if sess.AgentID == nil || *sess.AgentID != userID {
		writeError(c, utils.E(utils.CodeForbidden, "CallHandler.Answer", "call is assigned to another agent", nil))
		return
	}

	answered, err := h.svc.Answer(c.Request.Context(), callID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, answered)
}

type EndCallRequest struct {
	Outcome models.CallOutcome `json:"outcome"`
}

func (h *CallHandler) End(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	sess, err := h.svc.Get(c.Request.Context(), callID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !participant(c, sess, userID) {
		writeError(c, utils.E(utils.CodeForbidden, "CallHandler.End", "forbidden", nil))
		return
	}

	var req EndCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, utils.E(utils.CodeInvalidArgument, "CallHandler.End", "invalid request body", err))
			return
		}
	}

	ended, err := h.svc.End(c.Request.Context(), callID, req.Outcome)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, ended)
}

func (h *CallHandler) Transcript(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	callID := c.Param("call_id")
	sess, err := h.svc.Get(c.Request.Context(), callID)
	if err != nil {
		writeError(c, err)
		return
	}
	if !participant(c, sess, userID) {
		writeError(c, utils.E(utils.CodeForbidden, "CallHandler.Transcript", "forbidden", nil))
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)
	entries, err := h.transcripts.ListByCall(c.Request.Context(), callID, limit)
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, "CallHandler.Transcript", "failed to load transcript", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"call_id": callID, "entries": entries})
}

// participant reports whether the authenticated user may act on the call:
// its caller, its assigned agent, or an admin.
func participant(c *gin.Context, sess *models.CallSession, userID string) bool {
	if sess.CallerID == userID {
		return true
	}
	if sess.AgentID != nil && *sess.AgentID == userID {
		return true
	}
	if v, ok := c.Get("role"); ok {
		if s, _ := v.(string); s == "admin" {
			return true
		}
	}
	return false
}
