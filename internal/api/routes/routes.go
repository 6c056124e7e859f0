package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/yoockh/lingualink/internal/api/handlers"
	"github.com/yoockh/lingualink/internal/api/middleware"
)

type Deps struct {
	Call     *handlers.CallHandler
	Presence *handlers.PresenceHandler
	WS       *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	// Caller surface
	auth.POST("/calls", d.Call.Start)
	auth.GET("/calls/:call_id", d.Call.Get)
	auth.POST("/calls/:call_id/end", d.Call.End)
	auth.GET("/calls/:call_id/transcript", d.Call.Transcript)

	// Agent surface
	agent := auth.Group("/")
	agent.Use(middleware.RequireAgent())
	agent.GET("/calls/waiting", d.Call.ListWaiting)
	agent.POST("/calls/:call_id/claim", d.Call.Claim)
	agent.POST("/calls/:call_id/answer", d.Call.Answer)
	agent.POST("/presence/heartbeat", d.Presence.Heartbeat)

	auth.GET("/agents/online", d.Presence.ListOnline)

	// WebSocket
	auth.GET("/ws/calls/:call_id", d.WS.CallWS)
}
