package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// ProviderFacade is the single entry point for model calls. The provider
// selection is read from the settings on every call.
type ProviderFacade struct {
	logger   *slog.Logger
	settings ports.SettingsReader
	registry *ProviderRegistry
	router   *CapabilityRouter
}

func NewProviderFacade(logger *slog.Logger, settings ports.SettingsReader, registry *ProviderRegistry, router *CapabilityRouter) *ProviderFacade {
	return &ProviderFacade{
		logger:   logger,
		settings: settings,
		registry: registry,
		router:   router,
	}
}

// Active returns the current provider selection.
func (f *ProviderFacade) Active() domain.ProviderSelection {
	return f.settings.Provider()
}

// IsConfigured delegates to the active provider.
func (f *ProviderFacade) IsConfigured() bool {
	return f.registry.Text(f.settings.Provider()).IsConfigured()
}

// CloudConfigured reports whether image capabilities are available.
func (f *ProviderFacade) CloudConfigured() bool {
	return f.registry.Cloud().IsConfigured()
}

// Capabilities lists every capability with the provider that serves it now.
func (f *ProviderFacade) Capabilities() []RouteInfo {
	return f.router.ListRoutes(f.settings.Provider())
}

func (f *ProviderFacade) EnhancePrompt(ctx context.Context, settings domain.PromptSettings) (string, error) {
	if strings.TrimSpace(settings.Idea) == "" {
		return "", domain.NewError(domain.KindInvalidRequest, "", "describe your idea before enhancing the prompt", nil)
	}
	provider, err := f.text(CapPromptEnhance)
	if err != nil {
		return "", err
	}
	return provider.EnhancePrompt(ctx, settings)
}

func (f *ProviderFacade) ChatStream(ctx context.Context, message string, onChunk ports.ChunkFunc) error {
	if strings.TrimSpace(message) == "" {
		return domain.NewError(domain.KindInvalidRequest, "", "message is empty", nil)
	}
	provider, err := f.text(CapChat)
	if err != nil {
		return err
	}
	return provider.ChatStream(ctx, message, onChunk)
}

// Chat returns the active provider's whole reply in one piece.
func (f *ProviderFacade) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", domain.NewError(domain.KindInvalidRequest, "", "message is empty", nil)
	}
	provider, err := f.text(CapChat)
	if err != nil {
		return "", err
	}
	return provider.Chat(ctx, message)
}

func (f *ProviderFacade) GenerateImages(ctx context.Context, prompt string, count int, aspect domain.AspectRatio) ([]string, error) {
	images, err := f.images(CapImageGenerate)
	if err != nil {
		return nil, err
	}
	return images.GenerateImages(ctx, prompt, count, aspect)
}

func (f *ProviderFacade) EditImage(ctx context.Context, instruction string, image domain.Image, aspect domain.AspectRatio) ([]string, error) {
	images, err := f.images(CapImageEdit)
	if err != nil {
		return nil, err
	}
	return images.EditImage(ctx, instruction, image, aspect)
}

func (f *ProviderFacade) GeneratePromptFromImage(ctx context.Context, image domain.Image) (string, error) {
	images, err := f.images(CapPromptFromImage)
	if err != nil {
		return "", err
	}
	return images.GeneratePromptFromImage(ctx, image)
}

func (f *ProviderFacade) RefineEditPrompt(ctx context.Context, userText string) (string, error) {
	images, err := f.images(CapPromptRefineEdit)
	if err != nil {
		return "", err
	}
	return images.RefineEditPrompt(ctx, userText)
}

// text resolves the backend for a text capability and fails with
// NotConfigured before any network call.
func (f *ProviderFacade) text(capability Capability) (ports.TextProvider, error) {
	target := f.router.Resolve(capability, f.settings.Provider())
	provider := f.registry.Text(target)
	f.logger.Debug("routing capability", "capability", capability, "provider", target)

	if !provider.IsConfigured() {
		return nil, f.notConfigured(target)
	}
	return provider, nil
}

// images always resolves to the cloud; the registry offers nothing else.
func (f *ProviderFacade) images(capability Capability) (ports.ImageProvider, error) {
	f.logger.Debug("routing capability", "capability", capability, "provider", domain.ProviderCloud)
	if !f.registry.Cloud().IsConfigured() {
		return nil, f.notConfigured(domain.ProviderCloud)
	}
	return f.registry.Images(), nil
}

func (f *ProviderFacade) notConfigured(p domain.ProviderSelection) error {
	if p == domain.ProviderLocal {
		missing := f.settings.LocalConfig().Missing()
		return domain.NewError(domain.KindNotConfigured, string(p),
			"the local model is not configured; missing "+strings.Join(missing, ", "), nil)
	}
	return domain.NewError(domain.KindNotConfigured, string(p),
		"the cloud provider is not configured; set GEMINI_API_KEY in the server environment", nil)
}
