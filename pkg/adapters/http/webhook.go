package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// WebhookRenderer delivers outbound messages by POSTing them as JSON to a
// chat gateway. 403 and 410 responses mean the recipient is gone.
type WebhookRenderer struct {
	url    string
	client *http.Client
}

var _ ports.Renderer = (*WebhookRenderer)(nil)

// WebhookOption configures a WebhookRenderer.
type WebhookOption func(*WebhookRenderer)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(r *WebhookRenderer) {
		r.client = c
	}
}

// NewWebhookRenderer creates a renderer posting to url.
func NewWebhookRenderer(url string, opts ...WebhookOption) *WebhookRenderer {
	r := &WebhookRenderer{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// WebhookRequest is the body posted to the gateway.
type WebhookRequest struct {
	Op      string          `json:"op"`
	To      string          `json:"to"`
	Ref     string          `json:"ref,omitempty"`
	Message *domain.Message `json:"message,omitempty"`
	Edit    *domain.Edit    `json:"edit,omitempty"`
}

// WebhookResponse is what the gateway answers to a send.
type WebhookResponse struct {
	Ref string `json:"ref"`
}

// Send posts msg and returns the gateway's message reference.
func (r *WebhookRenderer) Send(ctx context.Context, to string, msg domain.Message) (string, error) {
	var resp WebhookResponse
	if err := r.post(ctx, WebhookRequest{Op: "send", To: to, Message: &msg}, &resp); err != nil {
		return "", err
	}
	return resp.Ref, nil
}

// Edit posts an edit of a previously sent message.
func (r *WebhookRenderer) Edit(ctx context.Context, to string, ref string, edit domain.Edit) error {
	return r.post(ctx, WebhookRequest{Op: "edit", To: to, Ref: ref, Edit: &edit}, nil)
}

func (r *WebhookRenderer) post(ctx context.Context, body WebhookRequest, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode webhook request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return &domain.DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusGone:
		return &domain.DeliveryError{Permanent: true, Err: fmt.Errorf("%s %s: %s", body.Op, body.To, resp.Status)}
	case resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &domain.DeliveryError{Err: fmt.Errorf("%s %s: %s %s", body.Op, body.To, resp.Status, bytes.TrimSpace(msg))}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode webhook response: %w", err)
	}
	return nil
}
