package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu     sync.Mutex
	values map[string]string
	failOn string
}

func newMemRepo() *memRepo {
	return &memRepo{values: make(map[string]string)}
}

func (r *memRepo) GetSetting(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	if !ok {
		return "", domain.ErrSettingNotFound
	}
	return v, nil
}

func (r *memRepo) SaveSetting(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == r.failOn {
		return errors.New("disk full")
	}
	r.values[key] = value
	return nil
}

// SaveSettings applies nothing when any key fails.
func (r *memRepo) SaveSettings(_ context.Context, values map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := values[r.failOn]; ok {
		return errors.New("disk full")
	}
	for key, value := range values {
		r.values[key] = value
	}
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestSettingsStore_Defaults(t *testing.T) {
	store, err := NewSettingsStore(context.Background(), testLogger(), newMemRepo())
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderCloud, store.Provider())
	assert.Equal(t, domain.LocalProviderConfig{}, store.LocalConfig())
	assert.False(t, store.LocalConfig().IsComplete())
}

func TestSettingsStore_InvalidPersistedProviderFallsBack(t *testing.T) {
	repo := newMemRepo()
	repo.values[KeyProvider] = "ollama"

	store, err := NewSettingsStore(context.Background(), testLogger(), repo)
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderCloud, store.Provider())
}

func TestSettingsStore_LoadsPersistedValues(t *testing.T) {
	repo := newMemRepo()
	repo.values[KeyProvider] = "local"
	repo.values[KeyLocalServerURL] = "http://10.0.0.5:11434"
	repo.values[KeyLocalModel] = "llama3"
	repo.values[KeyLocalRelayURL] = "https://relay.example.com"

	store, err := NewSettingsStore(context.Background(), testLogger(), repo)
	require.NoError(t, err)

	assert.Equal(t, domain.ProviderLocal, store.Provider())
	assert.True(t, store.LocalConfig().IsComplete())
	assert.Equal(t, "llama3", store.LocalConfig().ModelName)
}

func TestSettingsStore_SetProviderPersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	store, err := NewSettingsStore(ctx, testLogger(), repo)
	require.NoError(t, err)

	var got []domain.ConfigChange
	store.OnChange(func(c domain.ConfigChange) {
		// callbacks may read the store without deadlocking
		assert.Equal(t, c.Provider, store.Provider())
		got = append(got, c)
	})

	require.NoError(t, store.SetProvider(ctx, domain.ProviderLocal))
	assert.Equal(t, domain.ProviderLocal, store.Provider())
	assert.Equal(t, "local", repo.values[KeyProvider])
	require.Len(t, got, 1)
	assert.Equal(t, domain.ProviderLocal, got[0].Provider)

	err = store.SetProvider(ctx, domain.ProviderSelection("bogus"))
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
	assert.Len(t, got, 1)
	assert.Equal(t, domain.ProviderLocal, store.Provider())
}

func TestSettingsStore_SetLocalConfigTrimsAndNotifies(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	store, err := NewSettingsStore(ctx, testLogger(), repo)
	require.NoError(t, err)

	notified := 0
	store.OnChange(func(domain.ConfigChange) { notified++ })

	err = store.SetLocalConfig(ctx, domain.LocalProviderConfig{
		ServerBaseURL: " http://127.0.0.1:11434/ ",
		ModelName:     "llama3",
		RelayBaseURL:  "https://relay.example.com/",
	})
	require.NoError(t, err)

	cfg := store.LocalConfig()
	assert.Equal(t, "http://127.0.0.1:11434", cfg.ServerBaseURL)
	assert.Equal(t, "https://relay.example.com", cfg.RelayBaseURL)
	assert.Equal(t, "http://127.0.0.1:11434", repo.values[KeyLocalServerURL])
	assert.Equal(t, 1, notified)
}

func TestSettingsStore_SaveFailureKeepsPreviousState(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	repo.failOn = KeyProvider
	store, err := NewSettingsStore(ctx, testLogger(), repo)
	require.NoError(t, err)

	err = store.SetProvider(ctx, domain.ProviderLocal)
	require.Error(t, err)
	assert.Equal(t, domain.ProviderCloud, store.Provider())
}

func TestSettingsStore_NoValidationOfURLs(t *testing.T) {
	ctx := context.Background()
	store, err := NewSettingsStore(ctx, testLogger(), newMemRepo())
	require.NoError(t, err)

	require.NoError(t, store.SetLocalConfig(ctx, domain.LocalProviderConfig{ServerBaseURL: "not a url"}))
	assert.Equal(t, "not a url", store.LocalConfig().ServerBaseURL)
}

func TestSettingsStore_LocalConfigSaveIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	store, err := NewSettingsStore(ctx, testLogger(), repo)
	require.NoError(t, err)

	old := domain.LocalProviderConfig{ServerBaseURL: "http://old:1", ModelName: "old", RelayBaseURL: "http://relay-old"}
	require.NoError(t, store.SetLocalConfig(ctx, old))

	repo.failOn = KeyLocalModel
	err = store.SetLocalConfig(ctx, domain.LocalProviderConfig{ServerBaseURL: "http://new:2", ModelName: "new", RelayBaseURL: "http://relay-new"})
	require.Error(t, err)
	assert.Equal(t, old, store.LocalConfig())

	repo.failOn = ""
	reopened, err := NewSettingsStore(ctx, testLogger(), repo)
	require.NoError(t, err)
	assert.Equal(t, old, reopened.LocalConfig())
}
