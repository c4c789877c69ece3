package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTurn      EventType = "turn"
	EventDelivery  EventType = "delivery"
	EventNotify    EventType = "notify"
	EventBroadcast EventType = "broadcast"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
}

// TurnEvent is emitted after a turn has been decided.
type TurnEvent struct {
	EventBase
	Kind     EventKind `json:"kind"`
	FromNode int       `json:"from_node"`
	ToNode   int       `json:"to_node"`
	Recorded bool      `json:"recorded"`
	Fallback bool      `json:"fallback"`
}

// DeliveryOutcome classifies a send or edit attempt.
type DeliveryOutcome string

const (
	DeliveryOK        DeliveryOutcome = "ok"
	DeliveryTransient DeliveryOutcome = "transient"
	DeliveryPermanent DeliveryOutcome = "permanent"
)

// DeliveryEvent describes one outbound attempt.
type DeliveryEvent struct {
	EventBase
	Op      string          `json:"op"` // "send" or "edit"
	Outcome DeliveryOutcome `json:"outcome"`
}

// NotifyEvent describes one operator notification.
type NotifyEvent struct {
	EventBase
	Kind NotificationKind `json:"kind"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnTurn     func(context.Context, *TurnEvent)
	OnDelivery func(context.Context, *DeliveryEvent)
	OnNotify   func(context.Context, *NotifyEvent)
}

// OutcomeOf classifies err for delivery events.
func OutcomeOf(err error) DeliveryOutcome {
	switch {
	case err == nil:
		return DeliveryOK
	case IsPermanentDelivery(err):
		return DeliveryPermanent
	default:
		return DeliveryTransient
	}
}
