package dsl_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/intake/internal/runtime"
	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/dsl"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contactScript() *dsl.Builder {
	b := dsl.New("contact")
	b.Label("yes", "✅ Yes").Label("no", "❌ No")
	b.Fallback("Please use the buttons.")

	b.Add(1).
		Func("greeting").
		Row("yes", "no").
		On("yes", 2).
		On("no", -1)

	b.Add(2).
		Text("Leave your phone number.").
		Slot(1).
		Listen(0)

	b.Add(0).Func("completion")
	b.Add(-1).Text("Come back any time.")
	return b
}

func TestBuilder_SimpleFlow(t *testing.T) {
	s, err := contactScript().Build(registry.Builtins())
	require.NoError(t, err)

	assert.Equal(t, "contact", s.Name)
	assert.Len(t, s.Nodes, 4)
	assert.Equal(t, "✅ Yes", s.Label("yes"))
	assert.Equal(t, "Please use the buttons.", s.Fallback.Text)

	root, ok := s.Node(1)
	require.True(t, ok)
	assert.Equal(t, domain.Func("greeting"), root.Content)
	assert.Equal(t, [][]string{{"yes", "no"}}, root.Choices)
	target, ok := root.Target("no")
	require.True(t, ok)
	assert.Equal(t, -1, target)
	assert.False(t, root.Listens())

	phone, _ := s.Node(2)
	assert.Equal(t, 1, phone.QuestionID)
	require.True(t, phone.Listens())
	assert.Equal(t, 0, *phone.Listen)
	assert.Nil(t, phone.Actions)
}

func TestBuilder_AddReturnsExisting(t *testing.T) {
	b := dsl.New("x")
	b.Add(1).Text("first")
	b.Add(1).Choice("next", 0)
	b.Add(0).Text("done")

	s, err := b.Build(nil)
	require.NoError(t, err)
	n, _ := s.Node(1)
	assert.Equal(t, domain.Literal("first"), n.Content)
	assert.Equal(t, [][]string{{"next"}}, n.Choices)
}

func TestBuilder_ValidationErrors(t *testing.T) {
	b := dsl.New("broken")
	b.Add(1).Text("start").Choice("go", 7)

	_, err := b.Build(nil)
	require.Error(t, err)
	var dangling *domain.DanglingTargetError
	require.True(t, errors.As(err, &dangling))
	assert.Equal(t, 7, dangling.Target)

	b = dsl.New("no-root")
	b.Add(2).Text("orphan")
	_, err = b.Build(nil)
	var unknown *domain.UnknownNodeError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, domain.RootNodeID, unknown.NodeID)

	b = dsl.New("bad-func")
	b.Add(1).Func("missing")
	_, err = b.Build(registry.Builtins())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown text function "missing"`)
}

func TestBuilder_BuildIsIsolated(t *testing.T) {
	b := contactScript()
	s, err := b.Build(nil)
	require.NoError(t, err)

	b.Add(1).On("maybe", 2)
	root, _ := s.Node(1)
	_, ok := root.Target("maybe")
	assert.False(t, ok)
}

func TestBuilder_DrivesEngine(t *testing.T) {
	s, err := contactScript().Build(registry.Builtins())
	require.NoError(t, err)

	engine := runtime.NewEngine(s, registry.Builtins(), memory.NewStore())
	user := &domain.User{ID: "console_1", Source: "console", FirstName: "Ann", Progress: 1, IsActive: true}

	d, err := engine.Advance(context.Background(), user, domain.Choose("yes"))
	require.NoError(t, err)
	assert.Equal(t, 2, d.NextProgress)
	assert.Equal(t, "Leave your phone number.", d.Text)

	user.Progress = d.NextProgress
	d, err = engine.Advance(context.Background(), user, domain.Say("+995 555 000"))
	require.NoError(t, err)
	assert.Equal(t, domain.CompletionNodeID, d.NextProgress)
	require.NotNil(t, d.Answer)
	assert.Equal(t, domain.AnswerDraft{QuestionID: 1, Text: "+995 555 000"}, *d.Answer)
	require.NotNil(t, d.Notify)
	assert.Equal(t, domain.NotifyCompletion, d.Notify.Kind)
}
