package persona

import (
	"os"
	"path/filepath"
	"testing"

	"studybuddy/studybuddy/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	p := Default()
	assert.Equal(t, "Pebble", p.Name)
	assert.Contains(t, p.SystemPrompt, "Your name is 'Pebble'")
	assert.Contains(t, p.SystemPrompt, "You are not alone.")
	assert.Contains(t, p.Welcome, "I'm Pebble")
	assert.NotContains(t, p.SystemPrompt, "${")
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "nope.properties"))
	require.NoError(t, err)
	assert.Equal(t, Default(), p)
}

func TestLoad_OverridesAndExpansion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.properties")
	body := "persona.name = Pip\n" +
		"persona.welcome = Hi, ${persona.name} here.\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Pip", p.Name)
	assert.Equal(t, "Hi, Pip here.", p.Welcome)
	assert.Contains(t, p.SystemPrompt, "Your name is 'Pip'", "default prompt picks up the new name")
}

func TestLoad_EmptyWelcomeRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.properties")
	require.NoError(t, os.WriteFile(path, []byte("persona.welcome =\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestSeed(t *testing.T) {
	seed := Default().Seed()
	require.Len(t, seed, 2)
	assert.True(t, seed[0].Hidden)
	assert.Equal(t, types.RoleUser, seed[0].Role)
	assert.Equal(t, types.RoleAssistant, seed[1].Role)
	assert.Len(t, types.Visible(seed), 1)
}
