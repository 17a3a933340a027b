package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnvironment_Defaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	t.Chdir(t.TempDir())

	env, err := LoadEnvironment()
	require.NoError(t, err)

	assert.Empty(t, env.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-flash", env.Gemini.TextModel)
	assert.Equal(t, ":3001", env.Relay.Addr)
	assert.Equal(t, []string{"*"}, env.Relay.AllowedOrigins)
	assert.Equal(t, 10*time.Second, env.Relay.ConnectTimeout)
	assert.Equal(t, "message.content", env.Stream.ChatField)
	assert.Equal(t, "response", env.Stream.GenerateField)
}

func TestLoadEnvironment_CredentialFallback(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")

	env, err := LoadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", env.Gemini.APIKey)

	t.Setenv("GEMINI_API_KEY", "primary-key")
	env, err = LoadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, "primary-key", env.Gemini.APIKey)
}

func TestLoadEnvironment_PrefixedOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EXPERT_RELAY_ADDR", ":9999")
	t.Setenv("EXPERT_RELAY_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("EXPERT_RELAY_IDLE_TIMEOUT", "30s")
	t.Setenv("EXPERT_STREAM_CHAT_FIELD", "delta.text")

	env, err := LoadEnvironment()
	require.NoError(t, err)
	assert.Equal(t, ":9999", env.Relay.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, env.Relay.AllowedOrigins)
	assert.Equal(t, 30*time.Second, env.Relay.IdleTimeout)
	assert.Equal(t, "delta.text", env.Stream.ChatField)
}

func TestLoadEnvironment_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("EXPERT_DB_PATH=/tmp/from-dotenv.db\n"), 0o600))
	t.Setenv("EXPERT_DB_PATH", "")
	os.Unsetenv("EXPERT_DB_PATH")

	env, err := LoadEnvironment(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/from-dotenv.db", env.DBPath)
}

func TestLoadEnvironment_RejectsNegativeRate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("EXPERT_RELAY_RATE_LIMIT", "-1")

	_, err := LoadEnvironment()
	assert.Error(t, err)
}
