package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AgentPresenceRepository interface {
	// Upsert records a heartbeat: insert on first sight, refresh afterwards.
	Upsert(ctx context.Context, p *models.AgentPresence) error
	GetByAgentID(ctx context.Context, agentID string) (*models.AgentPresence, error)

	// ListEligible returns agents that are available and whose heartbeat is
	// no older than the freshness window.
	ListEligible(ctx context.Context, freshness time.Duration) ([]models.AgentPresence, error)
}

type presenceRepo struct {
	db *gorm.DB
}

func NewPresenceRepo(db *gorm.DB) AgentPresenceRepository {
	return &presenceRepo{db: db}
}

func (r *presenceRepo) Upsert(ctx context.Context, p *models.AgentPresence) error {
	if p.LastSeenAt.IsZero() {
		p.LastSeenAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "agent_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"is_available", "languages", "last_seen_at"}),
		}).
		Create(p).Error
}

func (r *presenceRepo) GetByAgentID(ctx context.Context, agentID string) (*models.AgentPresence, error) {
	var p models.AgentPresence
	err := r.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	return &p, err
}

func (r *presenceRepo) ListEligible(ctx context.Context, freshness time.Duration) ([]models.AgentPresence, error) {
	cutoff := time.Now().UTC().Add(-freshness)
	var out []models.AgentPresence
	err := r.db.WithContext(ctx).
		Where("is_available = ? AND last_seen_at >= ?", true, cutoff).
		Order("last_seen_at DESC").
		Find(&out).Error
	return out, err
}
