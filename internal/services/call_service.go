package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/lingualink/internal/models"
	pgrepo "github.com/yoockh/lingualink/internal/repositories/postgres"
	"github.com/yoockh/lingualink/internal/utils"
)

// CallService drives the call-session state machine. Every mutation goes
// through the repository's conditional writes, so concurrent callers, agents
// and the expiry sweeper can race safely.
type CallService interface {
	Start(ctx context.Context, callerID, callerLanguage string, metadata map[string]any) (*models.CallSession, error)
	Get(ctx context.Context, callID string) (*models.CallSession, error)
	ListWaiting(ctx context.Context, limit int) ([]models.CallSession, error)

	// Claim assigns the agent to a waiting call (waiting -> ringing).
	// Losing the race returns a CONTENTION error; the agent orchestrator
	// treats that as expected and resumes discovery.
	Claim(ctx context.Context, callID, agentID, agentLanguage string) (*models.CallSession, error)

	// Answer moves a ringing call to connected and stamps the connection time
	// the duration is later computed from.
	Answer(ctx context.Context, callID string) (*models.CallSession, error)

	// End terminates the call from whatever non-terminal status it is in.
	// outcome may be empty; it is then derived from the status the call was in.
	End(ctx context.Context, callID string, outcome models.CallOutcome) (*models.CallSession, error)
}

type callService struct {
	calls pgrepo.CallSessionRepository
	rdb   *redis.Client // optional live event fan-out, nil in tests
	log   *logrus.Logger
}

func NewCallService(calls pgrepo.CallSessionRepository, rdb *redis.Client, log *logrus.Logger) CallService {
	if log == nil {
		log = logrus.New()
	}
	return &callService{calls: calls, rdb: rdb, log: log}
}

func (s *callService) Start(ctx context.Context, callerID, callerLanguage string, metadata map[string]any) (*models.CallSession, error) {
	const op = "CallService.Start"

	if callerID == "" || callerLanguage == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "caller_id and caller_language are required", nil)
	}

	sess := &models.CallSession{
		ID:             uuid.NewString(),
		CallerID:       callerID,
		Status:         models.StatusWaiting,
		CallerLanguage: callerLanguage,
		StartedAt:      time.Now().UTC(),
	}
	if len(metadata) > 0 {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "invalid metadata", err)
		}
		sess.Metadata = b
	}

	if err := s.calls.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create call session", err)
	}

	s.publishStatus(ctx, sess)
	return sess, nil
}

func (s *callService) Get(ctx context.Context, callID string) (*models.CallSession, error) {
	const op = "CallService.Get"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}

	out, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "call session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get call session", err)
	}
	return out, nil
}

func (s *callService) ListWaiting(ctx context.Context, limit int) ([]models.CallSession, error) {
	const op = "CallService.ListWaiting"

	out, err := s.calls.ListWaiting(ctx, limit)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list waiting calls", err)
	}
	return out, nil
}

func (s *callService) Claim(ctx context.Context, callID, agentID, agentLanguage string) (*models.CallSession, error) {
	const op = "CallService.Claim"

	if callID == "" || agentID == "" || agentLanguage == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id, agent_id, and agent_language are required", nil)
	}

	out, err := s.calls.Claim(ctx, callID, agentID, agentLanguage)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrContention):
			return nil, utils.E(utils.CodeContention, op, "call already claimed by another agent", err)
		case errors.Is(err, utils.ErrStaleState):
			return nil, utils.E(utils.CodeStaleState, op, "call is no longer waiting", err)
		case errors.Is(err, utils.ErrNotFound):
			return nil, utils.E(utils.CodeNotFound, op, "call session not found", err)
		default:
			return nil, utils.E(utils.CodeInternal, op, "failed to claim call", err)
		}
	}

	s.publishStatus(ctx, out)
	return out, nil
}

func (s *callService) Answer(ctx context.Context, callID string) (*models.CallSession, error) {
	const op = "CallService.Answer"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}

	out, err := s.calls.Transition(ctx, callID, models.StatusRinging, models.StatusConnected, map[string]any{
		"connected_at": time.Now().UTC(),
	})
	if err != nil {
		return nil, s.mapTransitionErr(op, "call is not ringing", err)
	}

	s.publishStatus(ctx, out)
	return out, nil
}

func (s *callService) End(ctx context.Context, callID string, outcome models.CallOutcome) (*models.CallSession, error) {
	const op = "CallService.End"

	if callID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "call_id is required", nil)
	}

	cur, err := s.Get(ctx, callID)
	if err != nil {
		return nil, err
	}
	if cur.Terminal() {
		return nil, utils.E(utils.CodeStaleState, op, "call already ended", utils.ErrStaleState)
	}

	now := time.Now().UTC()
	var dur int64
	if cur.ConnectedAt != nil {
		dur = int64(now.Sub(*cur.ConnectedAt).Seconds())
		if dur < 0 {
			dur = 0
		}
	}
	if outcome == "" {
		outcome = deriveOutcome(cur.Status)
	}

	out, err := s.calls.Transition(ctx, callID, cur.Status, models.StatusEnded, map[string]any{
		"ended_at":         now,
		"duration_seconds": dur,
		"outcome":          outcome,
	})
	if err != nil {
		// The status moved between our read and the write; the caller resyncs.
		return nil, s.mapTransitionErr(op, "call state changed, resync and retry", err)
	}

	s.publishStatus(ctx, out)
	return out, nil
}

func deriveOutcome(from models.CallStatus) models.CallOutcome {
	if from == models.StatusConnected {
		return models.OutcomeAnswered
	}
	return models.OutcomeCancelled
}

func (s *callService) mapTransitionErr(op, msg string, err error) error {
	switch {
	case errors.Is(err, utils.ErrStaleState), errors.Is(err, utils.ErrContention):
		return utils.E(utils.CodeStaleState, op, msg, err)
	case errors.Is(err, utils.ErrNotFound):
		return utils.E(utils.CodeNotFound, op, "call session not found", err)
	default:
		return utils.E(utils.CodeInternal, op, "conditional transition failed", err)
	}
}

// publishStatus fans the new status out on the call's Redis channel for the
// WebSocket surface. Fire-and-forget: the store remains the source of truth
// and pollers never depend on these events.
func (s *callService) publishStatus(ctx context.Context, sess *models.CallSession) {
	if s.rdb == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"type":    "status",
		"call_id": sess.ID,
		"status":  sess.Status,
		"outcome": sess.Outcome,
	})
	if err := s.rdb.Publish(ctx, CallEventsChannel(sess.ID), string(payload)).Err(); err != nil {
		s.log.WithError(err).WithField("call_id", sess.ID).Warn("status publish failed")
	}
}

// CallEventsChannel names the Redis Pub/Sub channel carrying a call's live
// status and bridge events.
func CallEventsChannel(callID string) string {
	return "call:" + callID + ":events"
}
