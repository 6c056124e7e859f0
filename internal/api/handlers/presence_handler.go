package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/lingualink/internal/cache"
	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/utils"
)

const onlineAgentsCacheKey = "agents:online"

type PresenceHandler struct {
	svc   services.PresenceService
	cache cache.Cache // optional; nil skips caching
}

func NewPresenceHandler(svc services.PresenceService, c cache.Cache) *PresenceHandler {
	return &PresenceHandler{svc: svc, cache: c}
}

type HeartbeatRequest struct {
	IsAvailable bool     `json:"is_available"`
	Languages   []string `json:"languages"`
}

func (h *PresenceHandler) Heartbeat(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req HeartbeatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "PresenceHandler.Heartbeat", "invalid request body", err))
		return
	}

	if err := h.svc.Heartbeat(c.Request.Context(), userID, req.IsAvailable, req.Languages); err != nil {
		writeError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.Del(c.Request.Context(), onlineAgentsCacheKey)
	}

	c.JSON(http.StatusOK, gin.H{"agent_id": userID, "is_available": req.IsAvailable})
}

// ListOnline serves the eligible-agent roster. The roster changes at
// heartbeat cadence, so a short cache keeps poll traffic off Postgres.
func (h *PresenceHandler) ListOnline(c *gin.Context) {
	ctx := c.Request.Context()

	if h.cache != nil {
		var cached []models.AgentPresence
		if hit, err := h.cache.GetJSON(ctx, onlineAgentsCacheKey, &cached); err == nil && hit {
			c.JSON(http.StatusOK, gin.H{"agents": cached})
			return
		}
	}

	out, err := h.svc.ListOnline(ctx)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.cache != nil {
		_ = h.cache.SetJSON(ctx, onlineAgentsCacheKey, out, 2*time.Second)
	}

	c.JSON(http.StatusOK, gin.H{"agents": out})
}
