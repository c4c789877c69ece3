package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/conversation"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/export"
	"github.com/aretw0/intake/pkg/operator"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodySize bounds inbound JSON bodies.
const maxBodySize = 64 << 10

// TurnHandler runs user turns.
type TurnHandler interface {
	HandleTurn(ctx context.Context, in conversation.InboundEvent) (*conversation.TurnResult, error)
}

// Operator is the operator surface exposed over HTTP.
type Operator interface {
	Report(ctx context.Context) (*operator.Report, error)
	UserInfo(ctx context.Context, username string) ([]string, error)
	Stage(ctx context.Context, text string) error
	Confirm(ctx context.Context) (*operator.BroadcastResult, error)
	Cancel(ctx context.Context) error
	HandleCommand(ctx context.Context, ev operator.Event) error
}

// Server serves the inbound event endpoint and the operator API.
type Server struct {
	turns    TurnHandler
	operator Operator
	exports  ports.ReportStore
	metrics  http.Handler
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithOperator mounts the /v1/operator routes.
func WithOperator(op Operator) Option {
	return func(s *Server) {
		s.operator = op
	}
}

// WithExport enables GET /v1/operator/export, streaming a workbook of store.
func WithExport(store ports.ReportStore) Option {
	return func(s *Server) {
		s.exports = store
	}
}

// WithMetrics mounts h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler builds the HTTP handler.
func NewHandler(turns TurnHandler, opts ...Option) http.Handler {
	s := &Server{turns: turns, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events", s.postEvent)
		if s.operator != nil {
			r.Route("/operator", func(r chi.Router) {
				r.Get("/report", s.getReport)
				r.Get("/users/{username}", s.getUser)
				r.Post("/commands", s.postCommand)
				r.Post("/broadcast", s.postBroadcast)
				r.Post("/broadcast/confirm", s.confirmBroadcast)
				r.Post("/broadcast/cancel", s.cancelBroadcast)
				if s.exports != nil {
					r.Get("/export", s.getExport)
				}
			})
		}
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) postEvent(w http.ResponseWriter, r *http.Request) {
	var in conversation.InboundEvent
	if !s.decode(w, r, &in) {
		return
	}
	if err := validateEvent(in); err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.turns.HandleTurn(r.Context(), in)
	if err != nil {
		s.logger.Error("Turn failed", "user_id", in.Profile.UserID(), "err", err)
		s.fail(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func validateEvent(in conversation.InboundEvent) error {
	if strings.TrimSpace(in.Profile.Source) == "" {
		return errors.New("profile.source is required")
	}
	switch in.Event.Kind {
	case domain.EventEntry, domain.EventFreeText:
	case domain.EventChoice:
		if in.Event.Token == "" {
			return errors.New("choice events need a token")
		}
	default:
		return fmt.Errorf("unknown event kind %q", in.Event.Kind)
	}
	return nil
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.operator.Report(r.Context())
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	chunks, err := s.operator.UserInfo(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}

type textRequest struct {
	Text string `json:"text"`
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var ev operator.Event
	if !s.decode(w, r, &ev) {
		return
	}
	if err := s.operator.HandleCommand(r.Context(), ev); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) postBroadcast(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if !s.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		s.fail(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}
	if err := s.operator.Stage(r.Context(), req.Text); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) confirmBroadcast(w http.ResponseWriter, r *http.Request) {
	res, err := s.operator.Confirm(r.Context())
	if err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) cancelBroadcast(w http.ResponseWriter, r *http.Request) {
	if err := s.operator.Cancel(r.Context()); err != nil {
		s.fail(w, statusOf(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getExport(w http.ResponseWriter, r *http.Request) {
	name := "intake-" + time.Now().UTC().Format("20060102-150405") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if err := export.WriteWorkbook(r.Context(), s.exports, w); err != nil {
		s.logger.Error("Export failed", "err", err)
		s.fail(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNothingStaged):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
