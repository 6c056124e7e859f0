package workers

import (
	"context"
	"testing"
	"time"

	"github.com/yoockh/lingualink/internal/models"
	"github.com/yoockh/lingualink/internal/utils"
)

func TestAgentMatcher_ClaimsOldestWaitingCall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.calls.Start(ctx, "caller-1", "marathi", nil)
	if err != nil {
		t.Fatalf("start first: %v", err)
	}
	// backdate so ordering is unambiguous
	time.Sleep(10 * time.Millisecond)
	if _, err := env.calls.Start(ctx, "caller-2", "spanish", nil); err != nil {
		t.Fatalf("start second: %v", err)
	}
	if err := env.presence.Heartbeat(ctx, "agent-1", true, []string{"english"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	m := &AgentMatcher{Calls: env.calls, Presence: env.presence, Interval: 5 * time.Millisecond}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	claimed, err := m.Run(runCtx, "agent-1", "english")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if claimed.ID != first.ID {
		t.Errorf("claimed %s, want oldest %s", claimed.ID, first.ID)
	}
	if claimed.Status != models.StatusRinging {
		t.Errorf("status = %s, want ringing", claimed.Status)
	}
	if claimed.AgentID == nil || *claimed.AgentID != "agent-1" {
		t.Errorf("agent_id = %v, want agent-1", claimed.AgentID)
	}
}

func TestAgentMatcher_SurvivesLostClaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	contested, err := env.calls.Start(ctx, "caller-1", "hindi", nil)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := env.presence.Heartbeat(ctx, "agent-slow", true, []string{"english"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	// a rival takes the only call before the matcher's first tick
	if _, err := env.calls.Claim(ctx, contested.ID, "agent-fast", "english"); err != nil {
		t.Fatalf("rival claim: %v", err)
	}

	m := &AgentMatcher{Calls: env.calls, Presence: env.presence, Interval: 5 * time.Millisecond}

	done := make(chan struct{})
	var claimed *models.CallSession
	var runErr error
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		claimed, runErr = m.Run(runCtx, "agent-slow", "english")
		close(done)
	}()

	// the matcher keeps polling; give it a fresh call and expect a claim
	time.Sleep(30 * time.Millisecond)
	fresh, err := env.calls.Start(ctx, "caller-2", "french", nil)
	if err != nil {
		t.Fatalf("start fresh: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("matcher did not recover from lost claim")
	}
	if runErr != nil {
		t.Fatalf("run: %v", runErr)
	}
	if claimed.ID != fresh.ID {
		t.Errorf("claimed %s, want %s", claimed.ID, fresh.ID)
	}
}

func TestAgentMatcher_StopsWhenAgentUnavailable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.presence.Heartbeat(ctx, "agent-1", false, []string{"english"}); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	m := &AgentMatcher{Calls: env.calls, Presence: env.presence, Interval: 5 * time.Millisecond}

	runCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := m.Run(runCtx, "agent-1", "english"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("err = %v, want UNAVAILABLE", err)
	}
}

func TestAgentMatcher_StopsWithoutPresenceRecord(t *testing.T) {
	env := newTestEnv(t)

	m := &AgentMatcher{Calls: env.calls, Presence: env.presence, Interval: 5 * time.Millisecond}

	runCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := m.Run(runCtx, "agent-ghost", "english"); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Errorf("err = %v, want UNAVAILABLE", err)
	}
}

func TestAgentMatcher_ContextCancel(t *testing.T) {
	env := newTestEnv(t)

	m := &AgentMatcher{Calls: env.calls, Presence: env.presence, Interval: 5 * time.Millisecond}

	runCtx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Run(runCtx, "agent-1", "english"); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
