package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStateEnter EventType = "state_enter"
	EventStateExit  EventType = "state_exit"
	EventTransition EventType = "transition"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StateEvent represents one enter or exit step of a transition.
type StateEvent struct {
	EventBase
	StateID  string        `json:"state_id"`
	From     string        `json:"from"`
	To       string        `json:"to"`
	Async    bool          `json:"async"`
	Duration time.Duration `json:"duration"`
	Err      error         `json:"-"`
}

// TransitionEvent represents a completed transition, as published to external inspectors.
type TransitionEvent struct {
	EventBase
	ID      string `json:"id"`
	Machine string `json:"machine,omitempty"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// NewTransitionEvent stamps a transition event with the current time.
func NewTransitionEvent(machine, from, to string) TransitionEvent {
	return TransitionEvent{
		EventBase: EventBase{Timestamp: time.Now().UTC(), Type: EventTransition},
		ID:        uuid.NewString(),
		Machine:   machine,
		From:      from,
		To:        to,
	}
}

// LifecycleHooks defines callbacks for engine observability.
// They run after the corresponding state hook returned.
type LifecycleHooks struct {
	OnStateEnter func(context.Context, *StateEvent)
	OnStateExit  func(context.Context, *StateEvent)
}
