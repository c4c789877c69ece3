package registry_test

import (
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Render(t *testing.T) {
	reg := registry.NewRegistry()
	reg.Register("shout", func(u *domain.User) string { return "HI " + u.FirstName })

	u := &domain.User{FirstName: "Ann"}

	text, err := reg.Render(domain.Literal("plain"), u)
	require.NoError(t, err)
	assert.Equal(t, "plain", text)

	text, err = reg.Render(domain.Func("shout"), u)
	require.NoError(t, err)
	assert.Equal(t, "HI Ann", text)

	_, err = reg.Render(domain.Func("missing"), u)
	assert.ErrorContains(t, err, "text function not found")
}

func TestBuiltins(t *testing.T) {
	reg := registry.Builtins()
	assert.Equal(t, []string{"completion", "follow_up", "greeting"}, reg.Names())

	text, err := reg.Execute("completion", &domain.User{FirstName: "Ann"})
	require.NoError(t, err)
	assert.Contains(t, text, "Ann, thank you")

	text, err = reg.Execute("greeting", nil)
	require.NoError(t, err)
	assert.Contains(t, text, "there")
}
