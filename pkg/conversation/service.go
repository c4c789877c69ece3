// Package conversation runs user turns end to end: it serialises a user,
// asks the engine for a decision, persists it and delivers the result.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

// InboundEvent is one user input as delivered by a transport.
type InboundEvent struct {
	Profile domain.Profile    `json:"profile"`
	Event   domain.InputEvent `json:"event"`

	// AnchorRef is the message the pressed button belonged to, when the
	// transport knows it. The stored anchor is used otherwise.
	AnchorRef string `json:"anchor_ref,omitempty"`
}

// TurnResult reports what a turn did.
type TurnResult struct {
	User       *domain.User     `json:"user"`
	Decision   *domain.Decision `json:"decision"`
	MessageRef string           `json:"message_ref,omitempty"`
	Answer     *domain.Answer   `json:"answer,omitempty"`
}

// Service orchestrates turns.
type Service struct {
	engine   *runtime.Engine
	store    ports.Store
	sessions *session.Manager
	renderer ports.Renderer
	notifier ports.Notifier
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Service.
type Option func(*Service)

// WithNotifier sets where engine notifications go. Without one they are
// dropped.
func WithNotifier(n ports.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithSessions replaces the default in-process session manager.
func WithSessions(m *session.Manager) Option {
	return func(s *Service) {
		s.sessions = m
	}
}

// WithLifecycleHooks registers delivery and notification hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Service) {
		s.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source for lastActivity.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires a Service.
func NewService(engine *runtime.Engine, store ports.Store, renderer ports.Renderer, opts ...Option) *Service {
	s := &Service{
		engine:   engine,
		store:    store,
		renderer: renderer,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(store, session.WithLogger(s.logger))
	}
	return s
}

// Engine returns the navigation engine.
func (s *Service) Engine() *runtime.Engine {
	return s.engine
}

// HandleTurn runs one turn for the sender of in. Events from senders
// without a row are treated as entry. The operator is notified after the
// user lock is released.
func (s *Service) HandleTurn(ctx context.Context, in InboundEvent) (*TurnResult, error) {
	id := in.Profile.UserID()
	var result *TurnResult

	err := s.sessions.WithLock(ctx, id, func(ctx context.Context) error {
		r, err := s.turn(ctx, id, in)
		result = r
		return err
	})
	if err != nil {
		return nil, err
	}

	if n := result.Decision.Notify; n != nil {
		s.notify(ctx, *n)
	}
	return result, nil
}

func (s *Service) turn(ctx context.Context, id string, in InboundEvent) (*TurnResult, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		user = nil
	} else if err != nil {
		return nil, fmt.Errorf("load user %s: %w", id, err)
	}

	ev := in.Event
	profile := in.Profile
	ev.Profile = &profile
	if user == nil && ev.Kind != domain.EventEntry {
		s.logger.Debug("Unknown sender, starting over", "user_id", id, "kind", ev.Kind)
		ev = domain.InputEvent{Kind: domain.EventEntry, Profile: &profile}
	}

	d, err := s.engine.Advance(ctx, user, ev)
	if err != nil {
		return nil, err
	}

	result := &TurnResult{Decision: d}
	if d.Answer != nil {
		a, err := s.store.AppendAnswer(ctx, id, d.Answer.QuestionID, d.Answer.Text)
		if err != nil {
			return nil, fmt.Errorf("record answer: %w", err)
		}
		result.Answer = a
	}

	anchor := in.AnchorRef
	if anchor == "" && user != nil {
		anchor = user.AnchorRef
	}
	ref, delivered, blocked := s.deliver(ctx, id, anchor, ev.Kind, d)
	result.MessageRef = ref

	now := s.now()
	patch := domain.UserPatch{
		Progress:     domain.Ptr(d.NextProgress),
		LastActivity: &now,
	}
	if ev.Kind == domain.EventEntry {
		patch.Source = domain.Ptr(profile.Source)
		patch.FirstName = domain.Ptr(profile.FirstName)
		patch.LastName = domain.Ptr(profile.LastName)
		patch.Username = domain.Ptr(profile.Username)
	}
	if ref != "" {
		patch.AnchorRef = domain.Ptr(ref)
	}
	switch {
	case blocked:
		patch.IsActive = domain.Ptr(false)
	case delivered && user != nil && !user.IsActive:
		// The user came back after blocking us.
		patch.IsActive = domain.Ptr(true)
	}

	updated, err := s.store.UpsertUser(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("save user %s: %w", id, err)
	}
	result.User = updated
	return result, nil
}

// deliver updates the anchor and sends the decision. It reports the new
// message ref, whether the send succeeded and whether the user is
// permanently unreachable.
func (s *Service) deliver(ctx context.Context, id, anchor string, kind domain.EventKind, d *domain.Decision) (string, bool, bool) {
	blocked := false

	if anchor != "" {
		var edit *domain.Edit
		switch {
		case kind == domain.EventEntry:
			edit = &domain.Edit{Delete: true}
		case d.MutateAnchor:
			edit = &domain.Edit{StripChoices: true, Append: s.echo(d)}
		}
		if edit != nil {
			err := s.renderer.Edit(ctx, id, anchor, *edit)
			s.delivery(ctx, id, "edit", err)
			blocked = domain.IsPermanentDelivery(err)
		}
	}
	if blocked {
		return "", false, true
	}

	ref, err := s.renderer.Send(ctx, id, domain.Message{Text: d.Text, Choices: d.Choices})
	s.delivery(ctx, id, "send", err)
	if err != nil {
		return "", false, domain.IsPermanentDelivery(err)
	}
	return ref, true, false
}

// echo is the answer line appended to the anchor.
func (s *Service) echo(d *domain.Decision) string {
	if d.Answer == nil {
		return ""
	}
	return "✏️ " + s.engine.Script().Label(d.Answer.Text)
}

func (s *Service) delivery(ctx context.Context, id, op string, err error) {
	outcome := domain.OutcomeOf(err)
	switch outcome {
	case domain.DeliveryPermanent:
		s.logger.Warn("User unreachable, deactivating", "user_id", id, "op", op, "err", err)
	case domain.DeliveryTransient:
		s.logger.Warn("Delivery failed", "user_id", id, "op", op, "err", err)
	}
	if s.hooks.OnDelivery != nil {
		s.hooks.OnDelivery(ctx, &domain.DeliveryEvent{
			EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventDelivery, UserID: id},
			Op:        op,
			Outcome:   outcome,
		})
	}
}

func (s *Service) notify(ctx context.Context, n domain.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Operator notification failed", "user_id", n.UserID, "kind", n.Kind, "err", err)
	}
}
