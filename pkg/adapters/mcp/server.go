package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/intake"
	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/operator"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ScriptURI is the resource exposing the loaded script.
const ScriptURI = "intake://script"

// Operator is the operator surface exposed as MCP tools.
type Operator interface {
	Report(ctx context.Context) (*operator.Report, error)
	UserInfo(ctx context.Context, username string) ([]string, error)
	Stage(ctx context.Context, text string) error
	Confirm(ctx context.Context) (*operator.BroadcastResult, error)
	Cancel(ctx context.Context) error
}

// UserInfoArgs are the arguments of the user_info tool.
type UserInfoArgs struct {
	Username string `json:"username"`
}

// UserInfoResponse is the result of the user_info tool.
type UserInfoResponse struct {
	Chunks []string `json:"chunks" jsonschema_description:"The user summary, split into message-sized chunks"`
}

// BroadcastArgs are the arguments of the broadcast_stage tool.
type BroadcastArgs struct {
	Text string `json:"text"`
}

// StageResponse is the result of the broadcast_stage tool.
type StageResponse struct {
	Staged string `json:"staged" jsonschema_description:"The staged text"`
}

// Server exposes the operator service as an MCP server.
type Server struct {
	operator  Operator
	script    *domain.Script
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(op Operator, script *domain.Script, opts ...Option) *Server {
	s := &Server{
		operator:  op,
		script:    script,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("intake-mcp", strings.TrimSpace(intake.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over SSE on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+strings.TrimPrefix(addr, "http://")))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	reportTool := mcp.NewTool("report",
		mcp.WithDescription("Aggregate user counts: total, per source, incomplete, active and blocked."),
		mcp.WithOutputSchema[operator.Report](),
	)
	s.mcpServer.AddTool(reportTool, mcp.NewStructuredToolHandler(s.handleReport))

	userTool := mcp.NewTool("user_info",
		mcp.WithDescription("Profile and answers of one user, looked up by username."),
		mcp.WithString("username", mcp.Required(), mcp.Description("Username, with or without the leading @")),
		mcp.WithOutputSchema[UserInfoResponse](),
	)
	s.mcpServer.AddTool(userTool, mcp.NewStructuredToolHandler(s.handleUserInfo))

	s.mcpServer.AddTool(mcp.NewTool("broadcast_stage",
		mcp.WithDescription("Stage a message for every active user. Nothing is sent until broadcast_confirm."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text")),
		mcp.WithOutputSchema[StageResponse](),
	), mcp.NewStructuredToolHandler(s.handleStage))

	s.mcpServer.AddTool(mcp.NewTool("broadcast_confirm",
		mcp.WithDescription("Send the staged broadcast."),
		mcp.WithOutputSchema[operator.BroadcastResult](),
	), mcp.NewStructuredToolHandler(s.handleConfirm))

	s.mcpServer.AddTool(mcp.NewTool("broadcast_cancel",
		mcp.WithDescription("Drop the staged broadcast."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := s.operator.Cancel(ctx); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("cancel failed: %v", err)), nil
		}
		return mcp.NewToolResultText("cancelled"), nil
	})
}

func (s *Server) handleReport(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (operator.Report, error) {
	r, err := s.operator.Report(ctx)
	if err != nil {
		return operator.Report{}, fmt.Errorf("report failed: %w", err)
	}
	return *r, nil
}

func (s *Server) handleUserInfo(ctx context.Context, request mcp.CallToolRequest, args UserInfoArgs) (UserInfoResponse, error) {
	chunks, err := s.operator.UserInfo(ctx, args.Username)
	if err != nil {
		return UserInfoResponse{}, fmt.Errorf("user_info failed: %w", err)
	}
	return UserInfoResponse{Chunks: chunks}, nil
}

func (s *Server) handleStage(ctx context.Context, request mcp.CallToolRequest, args BroadcastArgs) (StageResponse, error) {
	if err := s.operator.Stage(ctx, args.Text); err != nil {
		return StageResponse{}, fmt.Errorf("stage failed: %w", err)
	}
	return StageResponse{Staged: strings.TrimSpace(args.Text)}, nil
}

func (s *Server) handleConfirm(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (operator.BroadcastResult, error) {
	r, err := s.operator.Confirm(ctx)
	if err != nil {
		return operator.BroadcastResult{}, fmt.Errorf("confirm failed: %w", err)
	}
	return *r, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(ScriptURI, "Questionnaire Script",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		data, err := json.Marshal(s.script)
		if err != nil {
			return nil, fmt.Errorf("encode script: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      ScriptURI,
				MIMEType: "application/json",
				Text:     string(data),
			},
		}, nil
	})
}
