package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/intake/internal/config"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/adapters/redis"
	"github.com/aretw0/intake/pkg/adapters/sqlite"
	"github.com/aretw0/intake/pkg/conversation"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/observability"
	"github.com/aretw0/intake/pkg/operator"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/aretw0/intake/pkg/script"
	"github.com/aretw0/intake/pkg/session"
)

// Version is overridden at build time with -ldflags "-X".
var Version = "dev"

// App holds the wired services of one process.
type App struct {
	Config       config.Config
	Script       *domain.Script
	Store        ports.Store
	Sessions     *session.Manager
	Engine       *runtime.Engine
	Conversation *conversation.Service
	Operator     *operator.Service
	Metrics      *observability.Metrics

	logger *slog.Logger
}

type options struct {
	renderer ports.Renderer
	store    ports.Store
	script   *domain.Script
	texts    *registry.Registry
	hooks    []domain.LifecycleHooks
	logger   *slog.Logger
}

// Option configures New.
type Option func(*options)

// WithRenderer sets the outbound renderer. It is required.
func WithRenderer(r ports.Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithStore injects an already opened store instead of opening the one the
// configuration names. The App still closes it.
func WithStore(s ports.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithScript uses an already built script instead of the configured path.
// It is validated against the text registry like a loaded one.
func WithScript(s *domain.Script) Option {
	return func(o *options) {
		o.script = s
	}
}

// WithTextFuncs replaces the built-in text function registry.
func WithTextFuncs(r *registry.Registry) Option {
	return func(o *options) {
		o.texts = r
	}
}

// WithLifecycleHooks adds hooks next to the metrics hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(o *options) {
		o.hooks = append(o.hooks, hooks)
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// LoadScript reads the configured script, or the embedded default when no
// path is set, and validates it against texts.
func LoadScript(path string, texts script.FuncResolver) (*domain.Script, error) {
	var (
		s   *domain.Script
		err error
	)
	if path == "" {
		s, err = script.Default()
	} else {
		s, err = script.Load(path)
	}
	if err != nil {
		return nil, err
	}
	if err := script.Validate(s, texts); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", s.Name, err)
	}
	return s, nil
}

// OpenStore opens the store named by cfg. Redis stores also return a
// distributed locker sharing the client.
func OpenStore(ctx context.Context, cfg config.Config) (ports.Store, ports.DistributedLocker, error) {
	switch cfg.Storage {
	case config.DriverSQLite:
		s, err := sqlite.Open(ctx, cfg.DBPath)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case config.DriverRedis:
		s := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, redis.WithPrefix(cfg.RedisPrefix))
		if err := s.Client().Ping(ctx).Err(); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
		}
		return s, redis.NewLocker(s.Client(), s.Prefix()), nil
	case config.DriverMemory:
		return memory.NewStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage)
	}
}

// New wires the store, engine, conversation and operator services.
func New(ctx context.Context, cfg config.Config, opts ...Option) (*App, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.renderer == nil {
		return nil, errors.New("intake: a renderer is required")
	}
	if o.texts == nil {
		o.texts = registry.Builtins()
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	policy, err := runtime.ParseBackPolicy(cfg.BackPolicy)
	if err != nil {
		return nil, err
	}
	s := o.script
	if s == nil {
		s, err = LoadScript(cfg.ScriptPath, o.texts)
		if err != nil {
			return nil, err
		}
	} else if err := script.Validate(s, o.texts); err != nil {
		return nil, fmt.Errorf("invalid script %s: %w", s.Name, err)
	}
	if !s.Has(cfg.EscalationNode) {
		return nil, fmt.Errorf("escalation node: %w", &domain.UnknownNodeError{NodeID: cfg.EscalationNode})
	}
	if !domain.IsTerminal(cfg.EscalationNode) {
		return nil, fmt.Errorf("escalation node %d: %w", cfg.EscalationNode, domain.ErrNotTerminal)
	}

	store, locker := o.store, ports.DistributedLocker(nil)
	if store == nil {
		store, locker, err = OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	app := &App{
		Config:  cfg,
		Script:  s,
		Store:   store,
		Metrics: observability.NewMetrics(),
		logger:  o.logger,
	}
	chain := []domain.LifecycleHooks{app.Metrics.Hooks()}
	if cfg.AuditLog {
		chain = append(chain, observability.LogHooks(o.logger))
	}
	hooks := observability.Chain(append(chain, o.hooks...)...)

	sessionOpts := []session.Option{session.WithLockTTL(cfg.LockTTL), session.WithLogger(o.logger)}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	app.Sessions = session.NewManager(store, sessionOpts...)

	app.Engine = runtime.NewEngine(s, o.texts, store,
		runtime.WithBackPolicy(policy),
		runtime.WithEscalationNode(cfg.EscalationNode),
		runtime.WithLifecycleHooks(hooks),
		runtime.WithLogger(o.logger),
	)
	app.Operator = operator.NewService(store, o.renderer, cfg.OperatorChannel,
		operator.WithSource(cfg.Source),
		operator.WithScript(s),
		operator.WithSessions(app.Sessions),
		operator.WithExportDir(cfg.ExportDir),
		operator.WithLifecycleHooks(hooks),
		operator.WithLogger(o.logger),
	)
	app.Conversation = conversation.NewService(app.Engine, store, o.renderer,
		conversation.WithNotifier(app.Operator),
		conversation.WithSessions(app.Sessions),
		conversation.WithLifecycleHooks(hooks),
		conversation.WithLogger(o.logger),
	)

	o.logger.Info("Intake ready",
		"version", Version,
		"script", s.Name,
		"storage", cfg.Storage,
		"back_policy", policy,
	)
	return app, nil
}

// Close releases the store.
func (a *App) Close() error {
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}
