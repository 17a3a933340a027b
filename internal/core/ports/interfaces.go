package ports

import (
	"context"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

// SettingsRepository abstracts the persistent key/value store (DuckDB)
type SettingsRepository interface {
	// GetSetting returns domain.ErrSettingNotFound when key was never saved.
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error
	// SaveSettings writes all pairs atomically.
	SaveSettings(ctx context.Context, values map[string]string) error
}

// ProviderSelector reports the currently active provider.
// Implementations must return the live value on every call.
type ProviderSelector interface {
	Provider() domain.ProviderSelection
}

// LocalConfigReader exposes the local provider settings.
type LocalConfigReader interface {
	LocalConfig() domain.LocalProviderConfig
}

// SettingsReader is the read side of the Config Store.
type SettingsReader interface {
	ProviderSelector
	LocalConfigReader
}

// ChunkFunc receives streamed text increments in generation order.
type ChunkFunc func(chunk string)

// TextProvider is the capability both backends share.
type TextProvider interface {
	// IsConfigured reports whether calls can be attempted at all.
	IsConfigured() bool

	// EnhancePrompt turns structured settings into one descriptor prompt.
	EnhancePrompt(ctx context.Context, settings domain.PromptSettings) (string, error)

	// ChatStream sends one user message and streams the reply through onChunk.
	// It returns once the stream has ended.
	ChatStream(ctx context.Context, message string, onChunk ChunkFunc) error

	// Chat sends one user message and returns the whole reply at once.
	Chat(ctx context.Context, message string) (string, error)
}

// ImageProvider is the cloud-only image capability.
type ImageProvider interface {
	GenerateImages(ctx context.Context, prompt string, count int, aspect domain.AspectRatio) ([]string, error)
	EditImage(ctx context.Context, instruction string, image domain.Image, aspect domain.AspectRatio) ([]string, error)
	GeneratePromptFromImage(ctx context.Context, image domain.Image) (string, error)
	RefineEditPrompt(ctx context.Context, userText string) (string, error)
}

// CloudProvider is the full cloud client surface.
type CloudProvider interface {
	TextProvider
	ImageProvider
}

// CheckResult is the structured outcome of a reachability check.
type CheckResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LocalChecker validates a not-yet-saved local configuration.
type LocalChecker interface {
	CheckConnection(ctx context.Context, serverURL, relayURL string) CheckResult
}
