// internal/events/types.go
package events

import (
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/whirlpool-positions/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// Position lifecycle events
	PositionOpened          EventType = "position.opened"
	PositionFrozen          EventType = "position.frozen"
	PositionThawed          EventType = "position.thawed"
	PositionTransferred     EventType = "position.transferred"
	PositionClosed          EventType = "position.closed"
	HoldingAccountClosed    EventType = "position.account_closed"
	PositionTeardownResumed EventType = "position.teardown_resumed"

	// Reward events
	RewardInitialized EventType = "reward.initialized"

	// Failures of any operation
	OperationFailed EventType = "operation.failed"
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

// NewBase stamps an event of type t with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// PositionEvent is emitted when a position token changes lifecycle stage.
type PositionEvent struct {
	BaseEvent
	Mint        solana.PublicKey
	Position    solana.PublicKey
	Owner       solana.PublicKey
	Account     solana.PublicKey
	Transitions []domain.Transition
}

// Stage is the stage the position reached.
func (e PositionEvent) Stage() domain.Stage {
	if len(e.Transitions) == 0 {
		return domain.StageUnallocated
	}
	return e.Transitions[len(e.Transitions)-1].To
}

// RewardInitializedEvent is emitted when a reward slot is bound.
type RewardInitializedEvent struct {
	BaseEvent
	Whirlpool solana.PublicKey
	Index     int
	Mint      solana.PublicKey
	Vault     solana.PublicKey
}

// OperationFailedEvent is emitted when an operation aborts.
type OperationFailedEvent struct {
	BaseEvent
	Operation string
	Mint      solana.PublicKey
	Kind      string
	Error     error
}
