package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/manthysbr/aiexpert/internal/adapters/llm"
	"github.com/manthysbr/aiexpert/internal/config"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// Providers bundles both backends built from one environment.
type Providers struct {
	Cloud *llm.GeminiClient
	Local *llm.BridgeClient
}

// Build creates the cloud and local clients. The local client reads its
// addresses from settings on every call, so later changes need no rebuild.
func Build(ctx context.Context, logger *slog.Logger, env *config.Environment, settings ports.LocalConfigReader) (*Providers, error) {
	cloud, err := llm.NewGeminiClient(ctx, logger.With("provider", "cloud"), llm.GeminiConfig{
		APIKey:     env.Gemini.APIKey,
		TextModel:  env.Gemini.TextModel,
		ImageModel: env.Gemini.ImageModel,
		EditModel:  env.Gemini.EditModel,
	})
	if err != nil {
		return nil, fmt.Errorf("build cloud provider: %w", err)
	}

	local := llm.NewBridgeClient(logger.With("provider", "local"), settings, llm.BridgeOptions{
		ChatField:     env.Stream.ChatField,
		GenerateField: env.Stream.GenerateField,
		Timeout:       env.LocalTimeout,
	})

	return &Providers{Cloud: cloud, Local: local}, nil
}
