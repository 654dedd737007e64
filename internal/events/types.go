// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	OpportunityFound    EventType = "opportunity.found"
	OpportunityExecuted EventType = "opportunity.executed"
	OpportunityRejected EventType = "opportunity.rejected"
	NewPoolDetected     EventType = "pool.detected"
	BackrunDetected     EventType = "backrun.detected"
	KillSwitchTripped   EventType = "engine.kill_switch_tripped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// OpportunityFoundEvent is emitted whenever a scanner surfaces an
// opportunity past the admissibility threshold, whether or not the
// orchestrator goes on to execute it.
type OpportunityFoundEvent struct {
	BaseEvent
	Pair         string
	Kind         string // "two_leg" or "triangular"
	ProfitBps    int32
	BorrowAmount uint64
}

// OpportunityExecutedEvent is emitted after a composed transaction is
// confirmed on-chain.
type OpportunityExecutedEvent struct {
	BaseEvent
	Pair           string
	Kind           string
	Signature      string
	ExpectedProfit int64
}

// OpportunityRejectedEvent is emitted when an opportunity fails
// composition (including going stale), simulation or submission, or the
// chain returns an error or the transaction expires at confirmation.
type OpportunityRejectedEvent struct {
	BaseEvent
	Pair   string
	Kind   string
	Stage  string // "composition", "simulation", "submission", "confirmation"
	Reason string
}

// NewPoolDetectedEvent is emitted by the orchestrator when a pool reported
// by a discovery source is promoted to a dynamic pair.
type NewPoolDetectedEvent struct {
	BaseEvent
	Pair    string
	Program string
}

// BackrunDetectedEvent is emitted by the orchestrator for a qualifying
// large-swap signal from the backrun listener, before any probe has been
// quoted.
type BackrunDetectedEvent struct {
	BaseEvent
	Signature string
	TokenIn   string
	TokenOut  string
}

// KillSwitchTrippedEvent is emitted once, when the orchestrator's
// consecutive-failure counter reaches its limit and the main loop halts.
type KillSwitchTrippedEvent struct {
	BaseEvent
	ConsecutiveFailures int
}
