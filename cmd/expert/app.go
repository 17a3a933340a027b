package main

import (
	"context"
	"fmt"

	"github.com/manthysbr/aiexpert/internal/adapters/duckdb"
	"github.com/manthysbr/aiexpert/internal/adapters/providers"
	"github.com/manthysbr/aiexpert/internal/config"
	"github.com/manthysbr/aiexpert/internal/core/services"
)

// app is the wired core: settings, both clients and the facade.
type app struct {
	repo      *duckdb.Repository
	settings  *config.SettingsStore
	providers *providers.Providers
	eventBus  *services.EventBus
	facade    *services.ProviderFacade
}

func newApp(ctx context.Context, g *globals) (*app, error) {
	repo, err := duckdb.NewRepository(g.env.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to init repository: %w", err)
	}

	settings, err := config.NewSettingsStore(ctx, g.logger, repo)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	eventBus := services.NewEventBus(g.logger)
	settings.OnChange(eventBus.ConfigChanged)

	p, err := providers.Build(ctx, g.logger, g.env, settings)
	if err != nil {
		_ = repo.Close()
		return nil, err
	}

	registry := services.NewProviderRegistry(p.Cloud, p.Local)
	router := services.NewCapabilityRouter(g.logger)

	return &app{
		repo:      repo,
		settings:  settings,
		providers: p,
		eventBus:  eventBus,
		facade:    services.NewProviderFacade(g.logger, settings, registry, router),
	}, nil
}

func (a *app) Close() error {
	return a.repo.Close()
}
