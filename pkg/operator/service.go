package operator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/export"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/session"
)

// Operator commands understood by HandleCommand.
const (
	CommandReport    = "/report"
	CommandExport    = "/export"
	CommandBroadcast = "/broadcast"
)

// Event is one input from the operator channel: a typed command or a
// pressed button.
type Event struct {
	Text  string `json:"text,omitempty"`
	Token string `json:"token,omitempty"`
}

// Report is the aggregate read and its rendering.
type Report struct {
	domain.Counts
	Text string `json:"text"`
}

// BroadcastResult tallies one fan-out.
type BroadcastResult struct {
	Total     int `json:"total"`
	Delivered int `json:"delivered"`
	Blocked   int `json:"blocked"`
	Failed    int `json:"failed"`
}

// Service implements the operator channel. It also satisfies
// ports.Notifier for the conversation service.
type Service struct {
	store    ports.Store
	renderer ports.Renderer
	sessions *session.Manager
	script   *domain.Script

	channel   string
	source    string
	exportDir string

	mu     sync.Mutex
	staged *staged

	hooks  domain.LifecycleHooks
	logger *slog.Logger
	now    func() time.Time
}

type staged struct {
	text string
	ref  string
}

var _ ports.Notifier = (*Service)(nil)

// Option configures the Service.
type Option func(*Service)

// WithSource sets the channel tag whose users receive broadcasts.
func WithSource(source string) Option {
	return func(s *Service) {
		s.source = source
	}
}

// WithScript lets summaries show question text instead of slot numbers.
func WithScript(script *domain.Script) Option {
	return func(s *Service) {
		s.script = script
	}
}

// WithSessions serialises deactivation with user turns.
func WithSessions(m *session.Manager) Option {
	return func(s *Service) {
		s.sessions = m
	}
}

// WithExportDir enables the /export command.
func WithExportDir(dir string) Option {
	return func(s *Service) {
		s.exportDir = dir
	}
}

// WithLifecycleHooks registers notification and delivery hooks.
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

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates the operator service sending to channel.
func NewService(store ports.Store, renderer ports.Renderer, channel string, opts ...Option) *Service {
	s := &Service{
		store:    store,
		renderer: renderer,
		channel:  channel,
		source:   "telegram",
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

// send delivers text to the operator channel, split to fit.
func (s *Service) send(ctx context.Context, text string) error {
	for _, chunk := range Chunk(text, MaxMessageLen) {
		if _, err := s.renderer.Send(ctx, s.channel, domain.Message{Text: chunk}); err != nil {
			return fmt.Errorf("send to operator channel: %w", err)
		}
	}
	return nil
}

// Notify relays an engine notification to the operator channel.
func (s *Service) Notify(ctx context.Context, n domain.Notification) error {
	text, err := s.notificationText(ctx, n)
	if err != nil {
		return err
	}
	err = s.send(ctx, text)
	if s.hooks.OnNotify != nil {
		s.hooks.OnNotify(ctx, &domain.NotifyEvent{
			EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventNotify, UserID: n.UserID},
			Kind:      n.Kind,
		})
	}
	return err
}

func (s *Service) notificationText(ctx context.Context, n domain.Notification) (string, error) {
	if n.Kind == domain.NotifyNewUser {
		who := n.UserID
		if n.Payload != "" {
			who = "@" + n.Payload
		}
		return "🆕 We have a new user!\n" + who, nil
	}

	summary, err := s.Summary(ctx, n.UserID)
	if err != nil {
		return "", err
	}
	switch n.Kind {
	case domain.NotifyEscalation:
		return "🆘 A user asked for a consultant.\n\n" + summary, nil
	case domain.NotifyCompletion:
		return "✅ A user finished the questionnaire.\n\n" + summary, nil
	case domain.NotifyQuestion:
		return "❓ New question:\n" + n.Payload + "\n\n" + summary, nil
	default:
		return "", fmt.Errorf("unknown notification kind %q", n.Kind)
	}
}

// Report reads and renders the aggregate counts.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	c, err := s.store.AggregateCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("aggregate counts: %w", err)
	}
	return &Report{Counts: c, Text: FormatCounts(c)}, nil
}

// Summary renders the profile and answers of one user.
func (s *Service) Summary(ctx context.Context, userID string) (string, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user %s: %w", userID, err)
	}
	return s.summarize(ctx, u)
}

func (s *Service) summarize(ctx context.Context, u *domain.User) (string, error) {
	answers, err := s.store.Answers(ctx, u.ID)
	if err != nil {
		return "", fmt.Errorf("load answers %s: %w", u.ID, err)
	}
	return FormatUser(s.script, u, answers), nil
}

// UserInfo looks a user up by username (with or without the leading @) and
// returns the summary split into operator-sized chunks.
func (s *Service) UserInfo(ctx context.Context, username string) ([]string, error) {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	u, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	text, err := s.summarize(ctx, u)
	if err != nil {
		return nil, err
	}
	return Chunk(text, MaxMessageLen), nil
}

var broadcastChoices = [][]domain.Choice{{
	{Token: domain.TokenBroadcastConfirm, Label: "✅ Send to all"},
	{Token: domain.TokenBroadcastCancel, Label: "❌ Cancel"},
}}

// Stage keeps text as the pending broadcast and asks the operator channel
// to confirm it. A previously staged message is replaced.
func (s *Service) Stage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("broadcast text is empty")
	}
	ref, err := s.renderer.Send(ctx, s.channel, domain.Message{
		Text:    text + "\n\nDo you want to send this message to all users?",
		Choices: broadcastChoices,
	})
	if err != nil {
		return fmt.Errorf("stage broadcast: %w", err)
	}

	s.mu.Lock()
	s.staged = &staged{text: text, ref: ref}
	s.mu.Unlock()
	return nil
}

func (s *Service) takeStaged() (*staged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.staged
	s.staged = nil
	if st == nil {
		return nil, domain.ErrNothingStaged
	}
	return st, nil
}

// Staged returns the pending broadcast text, if any.
func (s *Service) Staged() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.staged == nil {
		return "", false
	}
	return s.staged.text, true
}

// Confirm sends the staged message to every active user of the source,
// once each. Permanent failures deactivate the user; nothing is retried and
// no single failure stops the loop. The tally is reported to the channel.
func (s *Service) Confirm(ctx context.Context) (*BroadcastResult, error) {
	st, err := s.takeStaged()
	if err != nil {
		return nil, err
	}
	s.retract(ctx, st)

	ids, err := s.store.ListUserIDs(ctx, s.source)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	res := &BroadcastResult{Total: len(ids)}
	msg := domain.Message{Text: st.text}
	for _, id := range ids {
		_, err := s.renderer.Send(ctx, id, msg)
		outcome := domain.OutcomeOf(err)
		switch outcome {
		case domain.DeliveryOK:
			res.Delivered++
		case domain.DeliveryPermanent:
			res.Blocked++
			if derr := s.sessions.Deactivate(ctx, id); derr != nil {
				s.logger.Error("Failed to deactivate user", "user_id", id, "err", derr)
			}
		default:
			res.Failed++
			s.logger.Warn("Broadcast delivery failed", "user_id", id, "err", err)
		}
		if s.hooks.OnDelivery != nil {
			s.hooks.OnDelivery(ctx, &domain.DeliveryEvent{
				EventBase: domain.EventBase{Timestamp: s.now(), Type: domain.EventBroadcast, UserID: id},
				Op:        "send",
				Outcome:   outcome,
			})
		}
	}

	s.logger.Info("Broadcast finished",
		"total", res.Total, "delivered", res.Delivered, "blocked", res.Blocked, "failed", res.Failed)
	if err := s.send(ctx, FormatBroadcast(*res)); err != nil {
		s.logger.Warn("Failed to report broadcast", "err", err)
	}
	return res, nil
}

// Cancel drops the staged message.
func (s *Service) Cancel(ctx context.Context) error {
	st, err := s.takeStaged()
	if err != nil {
		return err
	}
	s.retract(ctx, st)
	return s.send(ctx, "❌ Broadcast cancelled.")
}

// retract removes the confirm keyboard from the staged preview.
func (s *Service) retract(ctx context.Context, st *staged) {
	if st.ref == "" {
		return
	}
	if err := s.renderer.Edit(ctx, s.channel, st.ref, domain.Edit{StripChoices: true}); err != nil {
		s.logger.Warn("Failed to strip broadcast keyboard", "err", err)
	}
}

// Export writes the workbook into the export directory and returns its path.
func (s *Service) Export(ctx context.Context) (string, error) {
	if s.exportDir == "" {
		return "", fmt.Errorf("export directory is not configured")
	}
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(s.exportDir, "intake-"+s.now().UTC().Format("20060102-150405")+".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := export.WriteWorkbook(ctx, s.store, f); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}

// HandleCommand routes one operator input and answers in the channel.
// Unrecognised text is ignored.
func (s *Service) HandleCommand(ctx context.Context, ev Event) error {
	switch ev.Token {
	case domain.TokenBroadcastConfirm:
		_, err := s.Confirm(ctx)
		return s.softStaged(ctx, err)
	case domain.TokenBroadcastCancel:
		return s.softStaged(ctx, s.Cancel(ctx))
	}

	text := strings.TrimSpace(ev.Text)
	cmd, rest, _ := strings.Cut(text, " ")
	switch {
	case cmd == CommandReport:
		r, err := s.Report(ctx)
		if err != nil {
			return err
		}
		return s.send(ctx, r.Text)
	case cmd == CommandExport:
		path, err := s.Export(ctx)
		if err != nil {
			return s.send(ctx, "⚠️ Export failed: "+err.Error())
		}
		return s.send(ctx, "📁 Export written to "+path)
	case cmd == CommandBroadcast:
		if strings.TrimSpace(rest) == "" {
			return s.send(ctx, "Usage: /broadcast <message>")
		}
		return s.Stage(ctx, rest)
	case strings.HasPrefix(text, "@") && len(text) > 1:
		chunks, err := s.UserInfo(ctx, text)
		if errors.Is(err, domain.ErrUserNotFound) {
			return s.send(ctx, fmt.Sprintf("User with username %s not found.", text))
		}
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if err := s.send(ctx, c); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}

func (s *Service) softStaged(ctx context.Context, err error) error {
	if errors.Is(err, domain.ErrNothingStaged) {
		return s.send(ctx, "Nothing to send.")
	}
	return err
}
