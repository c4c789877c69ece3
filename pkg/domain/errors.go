package domain

import (
	"errors"
	"fmt"
)

// ErrUserNotFound is returned when a user id cannot be found in the store.
var ErrUserNotFound = errors.New("user not found")

// ErrNoAnswers is returned when a user has no recorded answers.
var ErrNoAnswers = errors.New("no answers recorded")

// ErrPermanentDelivery marks delivery failures that will not go away (the
// recipient blocked the bot or no longer exists).
var ErrPermanentDelivery = errors.New("recipient unreachable")

// ErrNotTerminal is returned when escalation is configured to land on a node
// inside the question sequence.
var ErrNotTerminal = errors.New("node is not terminal")

// ErrNothingStaged is returned when a broadcast is confirmed without a message.
var ErrNothingStaged = errors.New("no broadcast staged")

// UnknownNodeError is a script-authoring bug: a cursor points at a node id
// the script does not define.
type UnknownNodeError struct {
	NodeID int
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown script node %d", e.NodeID)
}

// DanglingTargetError reports an action or listen target that names no node.
type DanglingTargetError struct {
	NodeID int
	Token  string // "listen" for listen targets
	Target int
}

func (e *DanglingTargetError) Error() string {
	return fmt.Sprintf("node %d: %s points to missing node %d", e.NodeID, e.Token, e.Target)
}

// DeliveryError wraps an outbound transport failure.
type DeliveryError struct {
	Permanent bool
	Err       error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s delivery failure: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrPermanentDelivery) match permanent failures.
func (e *DeliveryError) Is(target error) bool {
	return target == ErrPermanentDelivery && e.Permanent
}

// IsPermanentDelivery reports whether err is a permanent delivery failure.
func IsPermanentDelivery(err error) bool {
	return errors.Is(err, ErrPermanentDelivery)
}
