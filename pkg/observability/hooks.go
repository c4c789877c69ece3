package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/intake/pkg/domain"
)

// Chain combines hooks so that each event reaches all of them, in order.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range hooks {
		if h.OnTurn != nil {
			prev, next := out.OnTurn, h.OnTurn
			out.OnTurn = func(ctx context.Context, e *domain.TurnEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
		if h.OnDelivery != nil {
			prev, next := out.OnDelivery, h.OnDelivery
			out.OnDelivery = func(ctx context.Context, e *domain.DeliveryEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
		if h.OnNotify != nil {
			prev, next := out.OnNotify, h.OnNotify
			out.OnNotify = func(ctx context.Context, e *domain.NotifyEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				next(ctx, e)
			}
		}
	}
	return out
}

// LogHooks writes one audit line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn",
				"user_id", e.UserID,
				"kind", e.Kind,
				"from", e.FromNode,
				"to", e.ToNode,
				"recorded", e.Recorded,
				"fallback", e.Fallback,
			)
		},
		OnDelivery: func(ctx context.Context, e *domain.DeliveryEvent) {
			logger.InfoContext(ctx, "delivery",
				"user_id", e.UserID,
				"type", e.Type,
				"op", e.Op,
				"outcome", e.Outcome,
			)
		},
		OnNotify: func(ctx context.Context, e *domain.NotifyEvent) {
			logger.InfoContext(ctx, "notify", "user_id", e.UserID, "kind", e.Kind)
		},
	}
}
