package ports

//go:generate mockgen -source=renderer.go -destination=mocks/renderer.go -package=mocks Renderer,Notifier

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// Renderer delivers content on a chat transport.
//
// Errors that mean the recipient can never be reached again must satisfy
// errors.Is(err, domain.ErrPermanentDelivery); everything else is treated as
// transient. Implementations never retry.
type Renderer interface {
	// Send delivers a new message to a destination and returns its reference.
	Send(ctx context.Context, to string, msg domain.Message) (string, error)

	// Edit changes a previously sent message.
	Edit(ctx context.Context, to string, ref string, edit domain.Edit) error
}

// Notifier relays a notification to the operator channel.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}
