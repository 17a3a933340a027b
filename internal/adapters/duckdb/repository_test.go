package duckdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_Settings(t *testing.T) {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "settings.db"))
	require.NoError(t, err)
	defer repo.Close()

	ctx := context.Background()

	// 1. Missing key
	_, err = repo.GetSetting(ctx, "ai_provider")
	assert.ErrorIs(t, err, domain.ErrSettingNotFound)

	// 2. Save + read back
	require.NoError(t, repo.SaveSetting(ctx, "ai_provider", "local"))
	got, err := repo.GetSetting(ctx, "ai_provider")
	require.NoError(t, err)
	assert.Equal(t, "local", got)

	// 3. Upsert
	require.NoError(t, repo.SaveSetting(ctx, "ai_provider", "cloud"))
	got, err = repo.GetSetting(ctx, "ai_provider")
	require.NoError(t, err)
	assert.Equal(t, "cloud", got)

	// 4. Empty values are stored, not treated as missing
	require.NoError(t, repo.SaveSetting(ctx, "local_model", ""))
	got, err = repo.GetSetting(ctx, "local_model")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestRepository_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveSetting(ctx, "local_relay_url", "https://relay.example.com"))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetSetting(ctx, "local_relay_url")
	require.NoError(t, err)
	assert.Equal(t, "https://relay.example.com", got)
}

func TestRepository_SaveSettingsBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.db")
	ctx := context.Background()

	repo, err := NewRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveSetting(ctx, "local_model", "old"))
	require.NoError(t, repo.SaveSettings(ctx, map[string]string{
		"local_server_url": "http://127.0.0.1:11434",
		"local_model":      "llama3",
		"local_relay_url":  "https://relay.example.com",
	}))
	require.NoError(t, repo.Close())

	repo, err = NewRepository(path)
	require.NoError(t, err)
	defer repo.Close()

	for key, want := range map[string]string{
		"local_server_url": "http://127.0.0.1:11434",
		"local_model":      "llama3",
		"local_relay_url":  "https://relay.example.com",
	} {
		got, err := repo.GetSetting(ctx, key)
		require.NoError(t, err, key)
		assert.Equal(t, want, got, key)
	}
}

func TestRepository_SaveSettingsRollsBack(t *testing.T) {
	repo, err := NewRepository(filepath.Join(t.TempDir(), "rollback.db"))
	require.NoError(t, err)
	defer repo.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = repo.SaveSettings(ctx, map[string]string{"local_model": "llama3"})
	require.Error(t, err)

	_, err = repo.GetSetting(context.Background(), "local_model")
	assert.ErrorIs(t, err, domain.ErrSettingNotFound)
}
