package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/operator"
	"github.com/aretw0/intake/pkg/script"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *memory.Store, *memory.Renderer) {
	t.Helper()
	s, err := script.Default()
	require.NoError(t, err)
	store := memory.NewStore()
	renderer := memory.NewRenderer()
	op := operator.NewService(store, renderer, "operators", operator.WithScript(s))
	return NewServer(op, s), store, renderer
}

func seed(t *testing.T, store *memory.Store, id, username string) {
	t.Helper()
	source := "telegram"
	_, err := store.UpsertUser(context.Background(), id, domain.UserPatch{Source: &source, Username: &username})
	require.NoError(t, err)
}

func rpc(t *testing.T, s *Server, method string, params any) string {
	t.Helper()
	body, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": 1, "method": method, "params": params})
	require.NoError(t, err)
	out, err := json.Marshal(s.MCPServer().HandleMessage(context.Background(), body))
	require.NoError(t, err)
	return string(out)
}

func TestServer_ListsTools(t *testing.T) {
	s, _, _ := newTestServer(t)
	out := rpc(t, s, "tools/list", map[string]any{})
	for _, name := range []string{"report", "user_info", "broadcast_stage", "broadcast_confirm", "broadcast_cancel"} {
		assert.Contains(t, out, `"name":"`+name+`"`)
	}
}

func TestServer_ScriptResource(t *testing.T) {
	s, _, _ := newTestServer(t)
	out := rpc(t, s, "resources/read", map[string]any{"uri": ScriptURI})
	assert.Contains(t, out, ScriptURI)
	assert.Contains(t, out, "greeting")
}

func TestHandlers(t *testing.T) {
	s, store, renderer := newTestServer(t)
	ctx := context.Background()
	seed(t, store, "telegram_1", "ann")
	seed(t, store, "telegram_2", "bob")

	rep, err := s.handleReport(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Total)

	info, err := s.handleUserInfo(ctx, mcp.CallToolRequest{}, UserInfoArgs{Username: "@bob"})
	require.NoError(t, err)
	require.Len(t, info.Chunks, 1)
	assert.Contains(t, info.Chunks[0], "@bob")

	_, err = s.handleUserInfo(ctx, mcp.CallToolRequest{}, UserInfoArgs{Username: "carol"})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	staged, err := s.handleStage(ctx, mcp.CallToolRequest{}, BroadcastArgs{Text: " hello "})
	require.NoError(t, err)
	assert.Equal(t, "hello", staged.Staged)

	res, err := s.handleConfirm(ctx, mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, operator.BroadcastResult{Total: 2, Delivered: 2}, res)
	assert.Len(t, renderer.Sent("telegram_1"), 1)

	_, err = s.handleConfirm(ctx, mcp.CallToolRequest{}, nil)
	assert.ErrorIs(t, err, domain.ErrNothingStaged)
}
