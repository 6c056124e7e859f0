package models

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to CallStatus
		want     bool
	}{
		{StatusWaiting, StatusRinging, true},
		{StatusWaiting, StatusEnded, true},
		{StatusWaiting, StatusConnected, false},
		{StatusRinging, StatusConnected, true},
		{StatusRinging, StatusEnded, true},
		{StatusRinging, StatusWaiting, false},
		{StatusConnected, StatusEnded, true},
		{StatusConnected, StatusRinging, false},
		{StatusEnded, StatusWaiting, false},
		{StatusEnded, StatusRinging, false},
		{StatusEnded, StatusConnected, false},
		{StatusEnded, StatusEnded, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestPresenceEligible(t *testing.T) {
	now := time.Now().UTC()
	window := 5 * time.Minute

	p := &AgentPresence{AgentID: "a-1", IsAvailable: true, LastSeenAt: now.Add(-time.Minute)}
	if !p.Eligible(now, window) {
		t.Error("fresh available agent must be eligible")
	}

	p.LastSeenAt = now.Add(-6 * time.Minute)
	if p.Eligible(now, window) {
		t.Error("stale heartbeat must make the agent ineligible")
	}

	p.LastSeenAt = now
	p.IsAvailable = false
	if p.Eligible(now, window) {
		t.Error("unavailable agent must be ineligible even when fresh")
	}
}
