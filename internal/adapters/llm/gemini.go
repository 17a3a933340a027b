package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// GeminiModels is the subset of *genai.Models the cloud client calls.
type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
}

// GeminiConfig selects the models used for each operation.
type GeminiConfig struct {
	APIKey     string
	TextModel  string
	ImageModel string
	EditModel  string
}

// GeminiClient is the cloud provider: text, multimodal and image models
// behind one credential.
type GeminiClient struct {
	logger *slog.Logger
	models GeminiModels
	cfg    GeminiConfig
}

var _ ports.CloudProvider = (*GeminiClient)(nil)

// NewGeminiClient dials the hosted API. An empty key yields a client whose
// calls fail with a credential error, so the rest of the app still starts.
func NewGeminiClient(ctx context.Context, logger *slog.Logger, cfg GeminiConfig) (*GeminiClient, error) {
	cfg = withModelDefaults(cfg)
	if cfg.APIKey == "" {
		logger.Warn("cloud credential not set, cloud features are disabled")
		return &GeminiClient{logger: logger, cfg: cfg}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{logger: logger, models: client.Models, cfg: cfg}, nil
}

// NewGeminiClientWithModels wires an explicit models implementation.
func NewGeminiClientWithModels(logger *slog.Logger, models GeminiModels, cfg GeminiConfig) *GeminiClient {
	return &GeminiClient{logger: logger, models: models, cfg: withModelDefaults(cfg)}
}

func withModelDefaults(cfg GeminiConfig) GeminiConfig {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	if cfg.TextModel == "" {
		cfg.TextModel = "gemini-2.5-flash"
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = "imagen-4.0-generate-001"
	}
	if cfg.EditModel == "" {
		cfg.EditModel = "gemini-2.5-flash-image"
	}
	return cfg
}

func (g *GeminiClient) IsConfigured() bool {
	return g.models != nil
}

func (g *GeminiClient) ready() error {
	if g.models == nil {
		return domain.NewError(domain.KindCredentialInvalid, "cloud",
			"the cloud API credential is missing; set GEMINI_API_KEY (or API_KEY) and restart", nil)
	}
	return nil
}

func (g *GeminiClient) EnhancePrompt(ctx context.Context, settings domain.PromptSettings) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	resp, err := g.models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(domain.EnhancePrompt(settings)), nil)
	if err != nil {
		return "", g.wrap("enhance prompt", err)
	}
	return nonEmpty(resp.Text(), "enhance prompt")
}

func (g *GeminiClient) GeneratePromptFromImage(ctx context.Context, image domain.Image) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(image.Data, image.MIMEType),
		genai.NewPartFromText(domain.DescribeImagePrompt),
	}, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.cfg.TextModel, contents, nil)
	if err != nil {
		return "", g.wrap("describe image", err)
	}
	return nonEmpty(resp.Text(), "describe image")
}

func (g *GeminiClient) RefineEditPrompt(ctx context.Context, userText string) (string, error) {
	if strings.TrimSpace(userText) == "" {
		return "", domain.NewError(domain.KindInvalidRequest, "", "edit request text is empty", nil)
	}
	if err := g.ready(); err != nil {
		return "", err
	}
	resp, err := g.models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(domain.RefineEditPrompt(userText)), nil)
	if err != nil {
		return "", g.wrap("refine edit prompt", err)
	}
	return nonEmpty(resp.Text(), "refine edit prompt")
}

// ChatStream forwards text increments in the order the API produces them.
func (g *GeminiClient) ChatStream(ctx context.Context, message string, onChunk ports.ChunkFunc) error {
	if err := g.ready(); err != nil {
		return err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(domain.ChatPersona, genai.RoleUser),
	}
	for resp, err := range g.models.GenerateContentStream(ctx, g.cfg.TextModel, genai.Text(message), config) {
		if err != nil {
			return g.wrap("chat", err)
		}
		if text := resp.Text(); text != "" {
			onChunk(text)
		}
	}
	return nil
}

// Chat is the non-streamed variant of ChatStream.
func (g *GeminiClient) Chat(ctx context.Context, message string) (string, error) {
	if err := g.ready(); err != nil {
		return "", err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(domain.ChatPersona, genai.RoleUser),
	}
	resp, err := g.models.GenerateContent(ctx, g.cfg.TextModel, genai.Text(message), config)
	if err != nil {
		return "", g.wrap("chat", err)
	}
	if text := strings.TrimSpace(resp.Text()); text != "" {
		return text, nil
	}
	return domain.ChatFallback, nil
}

// GenerateImages returns count images as data URIs.
func (g *GeminiClient) GenerateImages(ctx context.Context, prompt string, count int, aspect domain.AspectRatio) ([]string, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.NewError(domain.KindInvalidRequest, "", "prompt is empty", nil)
	}
	if count < 1 || count > domain.MaxImageCount {
		return nil, domain.NewError(domain.KindInvalidRequest, "",
			fmt.Sprintf("image count must be between 1 and %d, got %d", domain.MaxImageCount, count), nil)
	}
	aspect, err := domain.ParseAspectRatio(string(aspect))
	if err != nil {
		return nil, err
	}
	if err := g.ready(); err != nil {
		return nil, err
	}

	resp, err := g.models.GenerateImages(ctx, g.cfg.ImageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: int32(count),
		AspectRatio:    string(aspect),
		OutputMIMEType: "image/jpeg",
	})
	if err != nil {
		return nil, g.wrap("generate images", err)
	}

	var uris []string
	for _, img := range resp.GeneratedImages {
		if img == nil || img.Image == nil || len(img.Image.ImageBytes) == 0 {
			continue
		}
		mime := img.Image.MIMEType
		if mime == "" {
			mime = "image/jpeg"
		}
		uris = append(uris, domain.Image{MIMEType: mime, Data: img.Image.ImageBytes}.DataURI())
	}
	if len(uris) == 0 {
		return nil, domain.NewError(domain.KindEmptyResult, "cloud", "the model returned no images; try rephrasing the prompt", nil)
	}
	g.logger.Info("images generated", "model", g.cfg.ImageModel, "requested", count, "returned", len(uris))
	return uris, nil
}

// EditImage applies instruction to image. A text-only answer is a refusal
// and its text is surfaced verbatim.
func (g *GeminiClient) EditImage(ctx context.Context, instruction string, image domain.Image, aspect domain.AspectRatio) ([]string, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, domain.NewError(domain.KindInvalidRequest, "", "edit instruction is empty", nil)
	}
	if len(image.Data) == 0 {
		return nil, domain.NewError(domain.KindInvalidRequest, "", "image to edit is empty", nil)
	}
	aspect, err := domain.ParseAspectRatio(string(aspect))
	if err != nil {
		return nil, err
	}
	if err := g.ready(); err != nil {
		return nil, err
	}

	text := instruction
	if aspect != domain.AspectSquare {
		text = fmt.Sprintf("%s\nKeep the output at a %s aspect ratio.", instruction, aspect)
	}
	contents := []*genai.Content{genai.NewContentFromParts([]*genai.Part{
		genai.NewPartFromBytes(image.Data, image.MIMEType),
		genai.NewPartFromText(text),
	}, genai.RoleUser)}

	resp, err := g.models.GenerateContent(ctx, g.cfg.EditModel, contents, &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
	})
	if err != nil {
		return nil, g.wrap("edit image", err)
	}

	var uris []string
	var said []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			switch {
			case part.InlineData != nil && len(part.InlineData.Data) > 0:
				mime := part.InlineData.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				uris = append(uris, domain.Image{MIMEType: mime, Data: part.InlineData.Data}.DataURI())
			case strings.TrimSpace(part.Text) != "":
				said = append(said, strings.TrimSpace(part.Text))
			}
		}
	}

	if len(uris) > 0 {
		return uris, nil
	}
	if len(said) > 0 {
		return nil, domain.NewError(domain.KindEmptyResult, "cloud",
			"the model did not return an image. It said: "+strings.Join(said, " "), nil)
	}
	return nil, domain.NewError(domain.KindEmptyResult, "cloud", "the model returned no image", nil)
}

func nonEmpty(text, op string) (string, error) {
	if text = strings.TrimSpace(text); text == "" {
		return "", domain.NewError(domain.KindEmptyResult, "cloud", op+": the model returned no text", nil)
	}
	return text, nil
}

// wrap classifies an API failure.
func (g *GeminiClient) wrap(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	g.logger.Error("cloud call failed", "op", op, "error", err)

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests:
			return domain.NewError(domain.KindRateLimited, "cloud", op+": the cloud API quota is exhausted, try again later", err)
		case isCredentialError(apiErr):
			return domain.NewError(domain.KindCredentialInvalid, "cloud", "the cloud API key is not valid; check GEMINI_API_KEY", err)
		case apiErr.Code == http.StatusBadRequest:
			return domain.NewError(domain.KindInvalidRequest, "cloud", op+": "+apiErr.Message, err)
		default:
			return domain.NewError(domain.KindUpstreamError, "cloud", fmt.Sprintf("%s: the cloud API failed (status %d)", op, apiErr.Code), err)
		}
	}
	if strings.Contains(err.Error(), "API key not valid") {
		return domain.NewError(domain.KindCredentialInvalid, "cloud", "the cloud API key is not valid; check GEMINI_API_KEY", err)
	}
	return domain.NewError(domain.KindUpstreamUnreachable, "cloud", op+": could not reach the cloud API", err)
}

func isCredentialError(apiErr genai.APIError) bool {
	if apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden {
		return true
	}
	return strings.Contains(apiErr.Message, "API key not valid") || apiErr.Status == "UNAUTHENTICATED"
}
