package tui

import (
	"bytes"
	"context"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsole_SendAndParse(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithStyle(false))
	ctx := context.Background()

	ref, err := c.Send(ctx, "me", domain.Message{
		Text: "Do you have a passport?",
		Choices: [][]domain.Choice{
			{{Token: "yes", Label: "Yes"}, {Token: "no", Label: "No"}},
			{{Token: "go_to_manager", Label: "Consultant"}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", ref)

	out := buf.String()
	assert.Contains(t, out, "Do you have a passport?")
	assert.Contains(t, out, "[1] Yes  [2] No")
	assert.Contains(t, out, "[3] Consultant")

	assert.Equal(t, domain.Choose("no"), c.Parse("me", "2"))
	assert.Equal(t, domain.Choose("go_to_manager"), c.Parse("me", " 3 "))
	assert.Equal(t, domain.Say("4"), c.Parse("me", "4"))
	assert.Equal(t, domain.Say("Berlin"), c.Parse("me", "Berlin"))
	assert.Equal(t, domain.Entry(), c.Parse("me", "/start"))
	assert.Equal(t, domain.Say("1"), c.Parse("someone else", "1"))
}

func TestConsole_EditStripsChoices(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithStyle(false))
	ctx := context.Background()

	ref, err := c.Send(ctx, "me", domain.Message{Text: "Q", Choices: [][]domain.Choice{{{Token: "yes", Label: "Yes"}}}})
	require.NoError(t, err)
	require.NoError(t, c.Edit(ctx, "me", ref, domain.Edit{StripChoices: true, Append: "✏️ Yes"}))

	assert.Contains(t, buf.String(), "✏️ Yes")
	assert.Equal(t, domain.Say("1"), c.Parse("me", "1"))
}

func TestConsole_OperatorChannel(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithStyle(false), WithOperatorChannel("operators"))
	_, err := c.Send(context.Background(), "operators", domain.Message{Text: "New user"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "── operator ──")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
}
