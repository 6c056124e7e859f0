package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/services"
	"github.com/yoockh/lingualink/internal/utils"
)

// AgentMatcher is the agent-side discovery loop: while the agent is available
// and idle it polls for waiting calls oldest-first and tries to claim the
// head of the queue. Losing a claim is expected contention; the loop fetches
// fresh state on the next tick instead of retrying the stale candidate.
type AgentMatcher struct {
	Calls    services.CallService
	Presence services.PresenceService
	Logger   *logrus.Logger

	Interval time.Duration // default 2s
}

// Run polls until a claim succeeds, the agent becomes unavailable, or the
// context is cancelled. On success it returns the ringing session.
func (m *AgentMatcher) Run(ctx context.Context, agentID, agentLanguage string) (*models.CallSession, error) {
	const op = "AgentMatcher.Run"

	if m.Interval <= 0 {
		m.Interval = 2 * time.Second
	}
	log := m.Logger
	if log == nil {
		log = logrus.New()
	}

	ticker := time.NewTicker(m.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		p, err := m.Presence.Get(ctx, agentID)
		if err != nil {
			if utils.IsCode(err, utils.CodeNotFound) {
				return nil, utils.E(utils.CodeUnavailable, op, "agent has no presence record", err)
			}
			log.WithError(err).WithField("agent_id", agentID).Warn("presence check failed")
			continue
		}
		if !p.IsAvailable {
			return nil, utils.E(utils.CodeUnavailable, op, "agent is no longer available", nil)
		}

		waiting, err := m.Calls.ListWaiting(ctx, 1)
		if err != nil {
			log.WithError(err).Warn("waiting list failed")
			continue
		}
		if len(waiting) == 0 {
			continue
		}

		head := waiting[0]
		claimed, err := m.Calls.Claim(ctx, head.ID, agentID, agentLanguage)
		if err != nil {
			switch {
			case utils.IsCode(err, utils.CodeContention),
				utils.IsCode(err, utils.CodeStaleState),
				utils.IsCode(err, utils.CodeNotFound):
				// another agent got there first; back to discovery
				log.WithFields(logrus.Fields{
					"agent_id": agentID,
					"call_id":  head.ID,
				}).Debug("claim lost, resuming discovery")
				continue
			default:
				log.WithError(err).WithField("call_id", head.ID).Warn("claim failed")
				continue
			}
		}

		log.WithFields(logrus.Fields{
			"agent_id": agentID,
			"call_id":  claimed.ID,
		}).Info("call claimed")
		return claimed, nil
	}
}
