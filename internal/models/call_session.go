package models

import (
	"time"

	"gorm.io/datatypes"
)

// CallStatus is the lifecycle state of a call session. Status only moves
// forward: waiting -> ringing -> connected -> ended, with waiting/ringing
// allowed to jump straight to ended (cancel, timeout, no answer).
type CallStatus string

const (
	StatusWaiting   CallStatus = "waiting"
	StatusRinging   CallStatus = "ringing"
	StatusConnected CallStatus = "connected"
	StatusEnded     CallStatus = "ended"
)

// CallOutcome records how an ended call terminated.
type CallOutcome string

const (
	OutcomeAnswered  CallOutcome = "answered"
	OutcomeNoAgent   CallOutcome = "no_agent"
	OutcomeCancelled CallOutcome = "cancelled"
	OutcomeDeclined  CallOutcome = "declined"
)

// CallSession is the single source of truth for a call. It is only ever
// mutated through conditional writes keyed on the expected current status;
// ended rows are terminal records and never change again.
type CallSession struct {
	ID       string  `gorm:"primaryKey;size:36" json:"id"` // uuid v4
	CallerID string  `gorm:"size:36;index" json:"caller_id"`
	AgentID  *string `gorm:"size:36;index" json:"agent_id,omitempty"`

	Status         CallStatus `gorm:"size:16;index" json:"status"`
	CallerLanguage string     `gorm:"size:32" json:"caller_language"`
	AgentLanguage  *string    `gorm:"size:32" json:"agent_language,omitempty"`

	StartedAt   time.Time  `gorm:"index" json:"started_at"`
	ConnectedAt *time.Time `json:"connected_at,omitempty"`
	EndedAt     *time.Time `json:"ended_at,omitempty"`

	DurationSeconds *int64      `json:"duration_seconds,omitempty"`
	Outcome         CallOutcome `gorm:"size:16" json:"outcome,omitempty"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`
}

func (CallSession) TableName() string { return "call_sessions" }

// Terminal reports whether the session can never transition again.
func (s *CallSession) Terminal() bool { return s.Status == StatusEnded }

// CanTransition reports whether moving from the session's current status to
// next is a legal state-machine edge. waiting->ringing is reserved for the
// claim operation and carries the agent assignment with it.
func CanTransition(from, to CallStatus) bool {
	switch from {
	case StatusWaiting:
		return to == StatusRinging || to == StatusEnded
	case StatusRinging:
		return to == StatusConnected || to == StatusEnded
	case StatusConnected:
		return to == StatusEnded
	default:
		return false
	}
}
