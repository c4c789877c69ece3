package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	intakehttp "github.com/aretw0/intake/pkg/adapters/http"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookRenderer(t *testing.T) {
	var got []intakehttp.WebhookRequest
	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req intakehttp.WebhookRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		got = append(got, req)

		switch req.To {
		case "gone":
			w.WriteHeader(http.StatusGone)
		case "blocked":
			w.WriteHeader(http.StatusForbidden)
		case "flaky":
			http.Error(w, "try later", http.StatusBadGateway)
		default:
			if req.Op == "edit" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			_ = json.NewEncoder(w).Encode(intakehttp.WebhookResponse{Ref: "42"})
		}
	}))
	defer gateway.Close()

	r := intakehttp.NewWebhookRenderer(gateway.URL)
	ctx := context.Background()

	ref, err := r.Send(ctx, "telegram_1", domain.Message{Text: "hi", Choices: [][]domain.Choice{{{Token: "yes", Label: "Yes"}}}})
	require.NoError(t, err)
	assert.Equal(t, "42", ref)
	require.NoError(t, r.Edit(ctx, "telegram_1", "42", domain.Edit{StripChoices: true, Append: "✏️ Yes"}))

	require.Len(t, got, 2)
	assert.Equal(t, "send", got[0].Op)
	assert.Equal(t, "yes", got[0].Message.Choices[0][0].Token)
	assert.Equal(t, "edit", got[1].Op)
	assert.Equal(t, "42", got[1].Ref)
	assert.True(t, got[1].Edit.StripChoices)

	_, err = r.Send(ctx, "gone", domain.Message{Text: "hi"})
	assert.ErrorIs(t, err, domain.ErrPermanentDelivery)
	_, err = r.Send(ctx, "blocked", domain.Message{Text: "hi"})
	assert.True(t, domain.IsPermanentDelivery(err))

	_, err = r.Send(ctx, "flaky", domain.Message{Text: "hi"})
	require.Error(t, err)
	assert.False(t, domain.IsPermanentDelivery(err))
	assert.Equal(t, domain.DeliveryTransient, domain.OutcomeOf(err))
}

func TestWebhookRenderer_Unreachable(t *testing.T) {
	gateway := httptest.NewServer(http.NotFoundHandler())
	url := gateway.URL
	gateway.Close()

	_, err := intakehttp.NewWebhookRenderer(url).Send(context.Background(), "telegram_1", domain.Message{Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, domain.DeliveryTransient, domain.OutcomeOf(err))
}
