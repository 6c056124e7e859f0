package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/utils"
)

func TestPresenceUpsert_InsertThenRefresh(t *testing.T) {
	repo := NewPresenceRepo(openTestDB(t))
	ctx := context.Background()

	first := time.Now().UTC().Add(-time.Minute).Truncate(time.Second)
	if err := repo.Upsert(ctx, &models.AgentPresence{
		AgentID:     "agent-1",
		IsAvailable: true,
		Languages:   "english,hindi",
		LastSeenAt:  first,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	second := time.Now().UTC().Truncate(time.Second)
	if err := repo.Upsert(ctx, &models.AgentPresence{
		AgentID:     "agent-1",
		IsAvailable: false,
		Languages:   "english",
		LastSeenAt:  second,
	}); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	p, err := repo.GetByAgentID(ctx, "agent-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if p.IsAvailable {
		t.Error("is_available must reflect the latest heartbeat")
	}
	if !p.LastSeenAt.Equal(second) {
		t.Errorf("last_seen_at = %v, want %v", p.LastSeenAt, second)
	}
	if p.Languages != "english" {
		t.Errorf("languages = %q", p.Languages)
	}
}

func TestPresenceGet_Missing(t *testing.T) {
	repo := NewPresenceRepo(openTestDB(t))
	_, err := repo.GetByAgentID(context.Background(), "nobody")
	if !errors.Is(err, utils.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListEligible_FreshnessWindow(t *testing.T) {
	repo := NewPresenceRepo(openTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	seed := []models.AgentPresence{
		{AgentID: "fresh-available", IsAvailable: true, LastSeenAt: now.Add(-time.Minute)},
		{AgentID: "stale-available", IsAvailable: true, LastSeenAt: now.Add(-10 * time.Minute)},
		{AgentID: "fresh-unavailable", IsAvailable: false, LastSeenAt: now},
	}
	for i := range seed {
		if err := repo.Upsert(ctx, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	got, err := repo.ListEligible(ctx, 5*time.Minute)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].AgentID != "fresh-available" {
		t.Errorf("eligible = %+v, want only fresh-available", got)
	}
}
