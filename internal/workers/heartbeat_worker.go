package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/services"
)

// HeartbeatLoop keeps an agent's presence fresh, independent of call state.
// On shutdown it flips the agent unavailable so matching stops immediately
// instead of waiting out the freshness window.
type HeartbeatLoop struct {
	Presence services.PresenceService
	Logger   *logrus.Logger

	Interval time.Duration // default 30s
}

func (h *HeartbeatLoop) Run(ctx context.Context, agentID string, languages []string) {
	if h.Interval <= 0 {
		h.Interval = 30 * time.Second
	}
	log := h.Logger
	if log == nil {
		log = logrus.New()
	}

	beat := func(ctx context.Context, available bool) {
		if err := h.Presence.Heartbeat(ctx, agentID, available, languages); err != nil {
			log.WithError(err).WithField("agent_id", agentID).Warn("heartbeat failed")
		}
	}

	beat(ctx, true)

	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// best-effort goodbye with a fresh context
			offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			beat(offCtx, false)
			cancel()
			return
		case <-ticker.C:
			beat(ctx, true)
		}
	}
}
