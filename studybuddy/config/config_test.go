package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"studybuddy/studybuddy/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, "data/users.json", cfg.UsersFile)
	assert.Equal(t, "chats", cfg.ChatsDir)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "memory", cfg.SessionStore)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
addr: ":9090"
chats_dir: /tmp/chats
session_ttl: 2h
llm_provider: groq
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHATS_DIR", "/srv/chats")
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "/srv/chats", cfg.ChatsDir)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, "groq", cfg.LLMProvider)
	assert.Equal(t, "gsk-test", cfg.LLMAPIKey)
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "data/users.json", cfg.UsersFile)
}

func TestLoadConfig_BadYAML(t *testing.T) {
	t.Setenv("CONFIG_FILE", writeYAML(t, "addr: [unterminated"))
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(c *Config) {}, ok: true},
		{name: "redis without addr", mutate: func(c *Config) { c.SessionStore = "redis" }},
		{name: "redis with addr", mutate: func(c *Config) { c.SessionStore = "redis"; c.RedisAddr = "localhost:6379" }, ok: true},
		{name: "unknown store", mutate: func(c *Config) { c.SessionStore = "etcd" }},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "mysql" }},
		{name: "empty users file", mutate: func(c *Config) { c.UsersFile = "" }},
		{name: "zero ttl", mutate: func(c *Config) { c.SessionTTL = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrConfiguration))
		})
	}
}

func TestMinIOEnabled(t *testing.T) {
	cfg := Defaults()
	assert.False(t, cfg.MinIOEnabled())
	cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey = "localhost:9000", "ak", "sk"
	assert.True(t, cfg.MinIOEnabled())
}
