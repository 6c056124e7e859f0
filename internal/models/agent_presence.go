package models

import "time"

// AgentPresence is owned solely by the agent process and refreshed on a
// periodic heartbeat, independent of call state. An agent is eligible for
// matching iff IsAvailable and LastSeenAt is within the freshness window;
// the window guards against agents whose process died without flipping
// IsAvailable.
type AgentPresence struct {
	AgentID     string    `gorm:"primaryKey;size:36" json:"agent_id"`
	IsAvailable bool      `gorm:"index" json:"is_available"`
	Languages   string    `gorm:"size:255" json:"languages"` // comma-separated language codes
	LastSeenAt  time.Time `gorm:"index" json:"last_seen_at"`
}

func (AgentPresence) TableName() string { return "agent_presence" }

// Eligible reports whether the agent can be matched at time now.
func (p *AgentPresence) Eligible(now time.Time, freshness time.Duration) bool {
	return p.IsAvailable && now.Sub(p.LastSeenAt) <= freshness
}
