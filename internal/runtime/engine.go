// Package runtime holds the navigation engine: the pure decision logic that
// maps a user row and one input event to a domain.Decision.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// TextRenderer resolves node content to text. *registry.Registry satisfies it.
type TextRenderer interface {
	Render(c domain.Content, u *domain.User) (string, error)
}

// BackPolicy selects how "back" behaves at nodes without a back edge.
type BackPolicy string

const (
	// BackLastAnswer re-enters the node whose id equals the question slot of
	// the user's most recent answer. It is an approximation kept for scripts
	// written before graph-directed back edges.
	BackLastAnswer BackPolicy = "last_answer"
	// BackDecrement moves to progress - 1.
	BackDecrement BackPolicy = "decrement"
	// BackNone treats back without an edge as unexpected input.
	BackNone BackPolicy = "none"
)

// ParseBackPolicy validates a configured policy name.
func ParseBackPolicy(s string) (BackPolicy, error) {
	switch p := BackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return BackLastAnswer, nil
	case BackLastAnswer, BackDecrement, BackNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown back policy %q", s)
	}
}

// Engine is the navigation state machine. It is safe for concurrent use; all
// per-user state arrives with each call.
type Engine struct {
	script  *domain.Script
	texts   TextRenderer
	answers ports.LastAnswerReader

	backPolicy     BackPolicy
	escalationNode int
	maxInput       int
	hooks          domain.LifecycleHooks
	logger         *slog.Logger
	now            func() time.Time
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithBackPolicy sets the legacy back policy.
func WithBackPolicy(p BackPolicy) EngineOption {
	return func(e *Engine) {
		if p != "" {
			e.backPolicy = p
		}
	}
}

// WithEscalationNode sets the terminal node escalation lands on when the
// current node has no terminal target of its own.
func WithEscalationNode(id int) EngineOption {
	return func(e *Engine) {
		e.escalationNode = id
	}
}

// WithMaxInputSize bounds free-text input, in bytes.
func WithMaxInputSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxInput = n
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over a validated script. answers may be nil,
// in which case the last-answer back policy degrades to the fallback.
func NewEngine(script *domain.Script, texts TextRenderer, answers ports.LastAnswerReader, opts ...EngineOption) *Engine {
	e := &Engine{
		script:         script,
		texts:          texts,
		answers:        answers,
		backPolicy:     BackLastAnswer,
		escalationNode: domain.CompletionNodeID,
		maxInput:       DefaultMaxInputSize,
		logger:         logging.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Script returns the script the engine navigates.
func (e *Engine) Script() *domain.Script {
	return e.script
}

// Advance decides one turn. user is nil when the sender has no row yet;
// only entry events are accepted then. Advance never writes: the returned
// Decision says what the caller must persist and deliver.
func (e *Engine) Advance(ctx context.Context, user *domain.User, ev domain.InputEvent) (*domain.Decision, error) {
	var (
		d    *domain.Decision
		err  error
		from = domain.RootNodeID
	)
	if user != nil {
		from = user.Progress
	}

	switch ev.Kind {
	case domain.EventEntry:
		d, err = e.entry(user, ev.Profile)
	case domain.EventChoice, domain.EventFreeText:
		if user == nil {
			return nil, domain.ErrUserNotFound
		}
		current, ok := e.script.Node(user.Progress)
		if !ok {
			err = &domain.UnknownNodeError{NodeID: user.Progress}
			break
		}
		if ev.Kind == domain.EventChoice {
			d, err = e.choice(ctx, user, current, ev.Token)
		} else {
			d, err = e.freeText(user, current, ev.Text)
		}
	default:
		return nil, fmt.Errorf("unsupported event kind %q", ev.Kind)
	}

	if err != nil {
		e.logger.Error("Turn failed", "user_id", userID(user), "kind", ev.Kind, "progress", from, "err", err)
		return nil, err
	}

	e.logger.Debug("Turn decided",
		"user_id", userID(user),
		"kind", ev.Kind,
		"from", from,
		"to", d.NextProgress,
		"recorded", d.Answer != nil,
		"fallback", d.Fallback,
	)
	if e.hooks.OnTurn != nil {
		e.hooks.OnTurn(ctx, &domain.TurnEvent{
			EventBase: domain.EventBase{Timestamp: e.now(), Type: domain.EventTurn, UserID: userID(user)},
			Kind:      ev.Kind,
			FromNode:  from,
			ToNode:    d.NextProgress,
			Recorded:  d.Answer != nil,
			Fallback:  d.Fallback,
		})
	}
	return d, nil
}

func userID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

// entry resets (or creates) the user at the root.
func (e *Engine) entry(user *domain.User, profile *domain.Profile) (*domain.Decision, error) {
	view := viewFor(user, profile)
	d, err := e.renderAt(view, domain.RootNodeID)
	if err != nil {
		return nil, err
	}
	d.NextProgress = domain.RootNodeID
	if user == nil {
		d.Created = true
		d.Notify = &domain.Notification{Kind: domain.NotifyNewUser, UserID: view.ID, Payload: view.Username}
	}
	return d, nil
}

// viewFor is the user as seen by text functions: the stored row, refreshed
// with the sender profile when one is attached.
func viewFor(user *domain.User, profile *domain.Profile) *domain.User {
	var view domain.User
	if user != nil {
		view = *user
	}
	if profile != nil {
		if view.ID == "" {
			view.ID = profile.UserID()
		}
		view.Source = profile.Source
		view.FirstName = profile.FirstName
		view.LastName = profile.LastName
		view.Username = profile.Username
	}
	return &view
}
