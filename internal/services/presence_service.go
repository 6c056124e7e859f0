package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	pgrepo "github.com/yoockh/lingualink/internal/repositories/postgres"
	"github.com/yoockh/lingualink/internal/utils"
)

// DefaultFreshnessWindow is the maximum heartbeat age before an agent is
// considered stale regardless of its is_available flag.
const DefaultFreshnessWindow = 5 * time.Minute

type PresenceService interface {
	Heartbeat(ctx context.Context, agentID string, isAvailable bool, languages []string) error
	Get(ctx context.Context, agentID string) (*models.AgentPresence, error)
	ListOnline(ctx context.Context) ([]models.AgentPresence, error)
}

type presenceService struct {
	presence  pgrepo.AgentPresenceRepository
	freshness time.Duration
}

func NewPresenceService(presence pgrepo.AgentPresenceRepository, freshness time.Duration) PresenceService {
	if freshness <= 0 {
		freshness = DefaultFreshnessWindow
	}
	return &presenceService{presence: presence, freshness: freshness}
}

func (s *presenceService) Heartbeat(ctx context.Context, agentID string, isAvailable bool, languages []string) error {
	const op = "PresenceService.Heartbeat"

	if agentID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "agent_id is required", nil)
	}

	p := &models.AgentPresence{
		AgentID:     agentID,
		IsAvailable: isAvailable,
		Languages:   strings.Join(languages, ","),
		LastSeenAt:  time.Now().UTC(),
	}
	if err := s.presence.Upsert(ctx, p); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to record heartbeat", err)
	}
	return nil
}

func (s *presenceService) Get(ctx context.Context, agentID string) (*models.AgentPresence, error) {
	const op = "PresenceService.Get"

	if agentID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "agent_id is required", nil)
	}

	out, err := s.presence.GetByAgentID(ctx, agentID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "agent presence not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get presence", err)
	}
	return out, nil
}

func (s *presenceService) ListOnline(ctx context.Context) ([]models.AgentPresence, error) {
	const op = "PresenceService.ListOnline"

	out, err := s.presence.ListEligible(ctx, s.freshness)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list online agents", err)
	}
	return out, nil
}
