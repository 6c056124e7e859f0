package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/utils"
	"gorm.io/gorm"
)

type CallSessionRepository interface {
	Create(ctx context.Context, s *models.CallSession) error
	GetByID(ctx context.Context, id string) (*models.CallSession, error)

	// ListWaiting returns unclaimed sessions oldest-first (best-effort FIFO).
	ListWaiting(ctx context.Context, limit int) ([]models.CallSession, error)

	// Claim atomically assigns the agent to a waiting, unclaimed session and
	// moves it to ringing. Returns ErrContention when another agent won the
	// race, ErrStaleState when the session already left waiting for other
	// reasons, ErrNotFound when no such session exists.
	Claim(ctx context.Context, id, agentID, agentLanguage string) (*models.CallSession, error)

	// Transition performs a conditional status move guarded on the expected
	// current status. extra columns are written in the same statement.
	Transition(ctx context.Context, id string, expected, next models.CallStatus, extra map[string]any) (*models.CallSession, error)

	// ExpireWaiting ends every waiting session that started before the cutoff
	// with a no_agent outcome. Returns the number of sessions expired.
	ExpireWaiting(ctx context.Context, cutoff time.Time) (int64, error)
}

type callSessionRepo struct {
	db *gorm.DB
}

func NewCallSessionRepo(db *gorm.DB) CallSessionRepository {
	return &callSessionRepo{db: db}
}

func (r *callSessionRepo) Create(ctx context.Context, s *models.CallSession) error {
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *callSessionRepo) GetByID(ctx context.Context, id string) (*models.CallSession, error) {
	var s models.CallSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &s, err
}

func (r *callSessionRepo) ListWaiting(ctx context.Context, limit int) ([]models.CallSession, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []models.CallSession
	err := r.db.WithContext(ctx).
		Where("status = ? AND agent_id IS NULL", models.StatusWaiting).
		Order("started_at ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Claim is the single conditional write that resolves the agent race: the
// WHERE clause re-checks status and agent_id inside the statement, so a
// read-then-write race cannot double-assign. Losers see RowsAffected == 0
// and are classified by a fresh read.
func (r *callSessionRepo) Claim(ctx context.Context, id, agentID, agentLanguage string) (*models.CallSession, error) {
	res := r.db.WithContext(ctx).
		Model(&models.CallSession{}).
		Where("id = ? AND status = ? AND agent_id IS NULL", id, models.StatusWaiting).
		Updates(map[string]any{
			"status":         models.StatusRinging,
			"agent_id":       agentID,
			"agent_language": agentLanguage,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.classifyFailed(ctx, id, models.StatusWaiting)
	}
	return r.GetByID(ctx, id)
}

func (r *callSessionRepo) Transition(ctx context.Context, id string, expected, next models.CallStatus, extra map[string]any) (*models.CallSession, error) {
	if !models.CanTransition(expected, next) {
		return nil, utils.ErrStaleState
	}

	updates := map[string]any{"status": next}
	for k, v := range extra {
		updates[k] = v
	}

	res := r.db.WithContext(ctx).
		Model(&models.CallSession{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, r.classifyFailed(ctx, id, expected)
	}
	return r.GetByID(ctx, id)
}

func (r *callSessionRepo) ExpireWaiting(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.CallSession{}).
		Where("status = ? AND started_at < ?", models.StatusWaiting, cutoff).
		Updates(map[string]any{
			"status":           models.StatusEnded,
			"outcome":          models.OutcomeNoAgent,
			"ended_at":         now,
			"duration_seconds": 0, // expired sessions never connected
		})
	return res.RowsAffected, res.Error
}

// classifyFailed turns a zero-row conditional write into the right sentinel:
// contention when another agent took the session out of waiting, stale state
// for any other precondition miss, not-found when the row does not exist.
func (r *callSessionRepo) classifyFailed(ctx context.Context, id string, expected models.CallStatus) error {
	cur, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// The winner may have answered already, so any live assigned session
	// counts as contention, not just ringing.
	if expected == models.StatusWaiting && cur.AgentID != nil && !cur.Terminal() {
		return utils.ErrContention
	}
	return utils.ErrStaleState
}
