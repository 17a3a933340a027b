package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// Persisted setting keys.
const (
	KeyProvider       = "ai_provider"
	KeyLocalServerURL = "local_server_url"
	KeyLocalModel     = "local_model"
	KeyLocalRelayURL  = "local_relay_url"
)

// OnChangeFunc is called after settings are persisted.
type OnChangeFunc func(change domain.ConfigChange)

// SettingsStore holds the user-facing provider settings. It loads once from
// the repository and writes through on every update, so reads always reflect
// the latest saved values. No URL validation happens here.
type SettingsStore struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	repo     ports.SettingsRepository
	provider domain.ProviderSelection
	local    domain.LocalProviderConfig
	onChange []OnChangeFunc
}

var (
	_ ports.ProviderSelector  = (*SettingsStore)(nil)
	_ ports.LocalConfigReader = (*SettingsStore)(nil)
)

// NewSettingsStore loads persisted settings, falling back to defaults for
// anything missing or invalid.
func NewSettingsStore(ctx context.Context, logger *slog.Logger, repo ports.SettingsRepository) (*SettingsStore, error) {
	store := &SettingsStore{
		logger:   logger,
		repo:     repo,
		provider: domain.DefaultProvider,
	}

	raw, err := store.load(ctx, KeyProvider)
	if err != nil {
		return nil, err
	}
	if raw != "" {
		p, ok := domain.ParseProviderSelection(raw)
		if !ok {
			logger.Warn("invalid persisted provider, using default", "value", raw, "default", domain.DefaultProvider)
		}
		store.provider = p
	}

	if store.local.ServerBaseURL, err = store.load(ctx, KeyLocalServerURL); err != nil {
		return nil, err
	}
	if store.local.ModelName, err = store.load(ctx, KeyLocalModel); err != nil {
		return nil, err
	}
	if store.local.RelayBaseURL, err = store.load(ctx, KeyLocalRelayURL); err != nil {
		return nil, err
	}

	logger.Info("settings loaded",
		"provider", store.provider,
		"local_configured", store.local.IsComplete(),
	)
	return store, nil
}

// OnChange registers a callback for when settings are updated.
func (s *SettingsStore) OnChange(fn OnChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Provider returns the active provider selection.
func (s *SettingsStore) Provider() domain.ProviderSelection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

// LocalConfig returns the local provider settings.
func (s *SettingsStore) LocalConfig() domain.LocalProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.local
}

// SetProvider persists a new selection and notifies subscribers.
func (s *SettingsStore) SetProvider(ctx context.Context, p domain.ProviderSelection) error {
	if !p.Valid() {
		return domain.NewError(domain.KindInvalidRequest, "", fmt.Sprintf("unknown provider %q (valid: cloud, local)", p), nil)
	}

	s.mu.Lock()
	if err := s.repo.SaveSetting(ctx, KeyProvider, string(p)); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save provider: %w", err)
	}
	s.provider = p
	change, callbacks := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("provider updated", "provider", p)
	notify(callbacks, change)
	return nil
}

// SetLocalConfig persists the local provider settings and notifies subscribers.
// Base URLs are stored without trailing slashes.
func (s *SettingsStore) SetLocalConfig(ctx context.Context, cfg domain.LocalProviderConfig) error {
	cfg.ServerBaseURL = domain.TrimBaseURL(cfg.ServerBaseURL)
	cfg.RelayBaseURL = domain.TrimBaseURL(cfg.RelayBaseURL)

	s.mu.Lock()
	err := s.repo.SaveSettings(ctx, map[string]string{
		KeyLocalServerURL: cfg.ServerBaseURL,
		KeyLocalModel:     cfg.ModelName,
		KeyLocalRelayURL:  cfg.RelayBaseURL,
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("save local provider settings: %w", err)
	}
	s.local = cfg
	change, callbacks := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("local provider settings updated",
		"server_url", cfg.ServerBaseURL,
		"model", cfg.ModelName,
		"relay_url", cfg.RelayBaseURL,
	)
	notify(callbacks, change)
	return nil
}

func (s *SettingsStore) snapshotLocked() (domain.ConfigChange, []OnChangeFunc) {
	callbacks := make([]OnChangeFunc, len(s.onChange))
	copy(callbacks, s.onChange)
	return domain.ConfigChange{Provider: s.provider, Local: s.local}, callbacks
}

// Callbacks run outside the lock so they may read the store.
func notify(callbacks []OnChangeFunc, change domain.ConfigChange) {
	for _, fn := range callbacks {
		fn(change)
	}
}

func (s *SettingsStore) load(ctx context.Context, key string) (string, error) {
	v, err := s.repo.GetSetting(ctx, key)
	if errors.Is(err, domain.ErrSettingNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load setting %s: %w", key, err)
	}
	return v, nil
}
