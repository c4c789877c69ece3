package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnTurn(ctx, &domain.TurnEvent{Kind: domain.EventChoice, FromNode: 1, ToNode: 2, Recorded: true})
	hooks.OnTurn(ctx, &domain.TurnEvent{Kind: domain.EventFreeText, FromNode: 2, ToNode: 2, Fallback: true})
	hooks.OnDelivery(ctx, &domain.DeliveryEvent{EventBase: domain.EventBase{Type: domain.EventBroadcast}, Outcome: domain.DeliveryPermanent})
	hooks.OnNotify(ctx, &domain.NotifyEvent{Kind: domain.NotifyEscalation})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Turns.WithLabelValues("choice")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.NodeVisits.WithLabelValues("2")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues("broadcast", "permanent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("escalation")))
}

func TestMetrics_Handler(t *testing.T) {
	m := observability.NewMetrics()
	m.Hooks().OnNotify(context.Background(), &domain.NotifyEvent{Kind: domain.NotifyNewUser})

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `intake_notifications_total{kind="new_user"} 1`)
}

func TestChain(t *testing.T) {
	var order []string
	a := domain.LifecycleHooks{OnTurn: func(context.Context, *domain.TurnEvent) { order = append(order, "a") }}
	b := domain.LifecycleHooks{
		OnTurn:   func(context.Context, *domain.TurnEvent) { order = append(order, "b") },
		OnNotify: func(context.Context, *domain.NotifyEvent) { order = append(order, "notify") },
	}

	h := observability.Chain(a, domain.LifecycleHooks{}, b)
	h.OnTurn(context.Background(), &domain.TurnEvent{})
	h.OnNotify(context.Background(), &domain.NotifyEvent{})
	assert.Nil(t, h.OnDelivery)
	assert.Equal(t, []string{"a", "b", "notify"}, order)
}

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := observability.LogHooks(logging.NewWriter(&buf, slog.LevelInfo, true))
	hooks.OnTurn(context.Background(), &domain.TurnEvent{
		EventBase: domain.EventBase{UserID: "telegram_1"},
		Kind:      domain.EventEntry,
		ToNode:    1,
	})
	assert.Contains(t, buf.String(), `"msg":"turn"`)
	assert.Contains(t, buf.String(), `"user_id":"telegram_1"`)
}
