package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

const (
	DefaultChatField     = "message.content"
	DefaultGenerateField = "response"
)

// BridgeOptions tunes a BridgeClient. Zero values pick defaults.
type BridgeOptions struct {
	ChatField     string        // JSON path of streamed chat text
	GenerateField string        // JSON path of generate text
	Timeout       time.Duration // bound for non-streamed calls
	HTTPClient    *http.Client
}

// BridgeClient talks to a private model server exclusively through the relay.
// The relay and server addresses are read from the settings on every call.
type BridgeClient struct {
	logger       *slog.Logger
	settings     ports.LocalConfigReader
	client       *http.Client
	timeout      time.Duration
	chatPath     FieldPath
	generatePath FieldPath
}

var _ ports.TextProvider = (*BridgeClient)(nil)
var _ ports.LocalChecker = (*BridgeClient)(nil)

func NewBridgeClient(logger *slog.Logger, settings ports.LocalConfigReader, opts BridgeOptions) *BridgeClient {
	if opts.ChatField == "" {
		opts.ChatField = DefaultChatField
	}
	if opts.GenerateField == "" {
		opts.GenerateField = DefaultGenerateField
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	client := opts.HTTPClient
	if client == nil {
		// No client-wide timeout: streams may legitimately run for minutes.
		client = &http.Client{}
	}
	return &BridgeClient{
		logger:       logger,
		settings:     settings,
		client:       client,
		timeout:      opts.Timeout,
		chatPath:     ParseFieldPath(opts.ChatField),
		generatePath: ParseFieldPath(opts.GenerateField),
	}
}

// IsConfigured is true iff server URL, model and relay URL are all set.
func (b *BridgeClient) IsConfigured() bool {
	return b.settings.LocalConfig().IsComplete()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type bridgeChatRequest struct {
	TargetBaseURL string        `json:"targetBaseUrl"`
	Model         string        `json:"model"`
	Messages      []chatMessage `json:"messages"`
	Stream        bool          `json:"stream"`
}

type bridgeGenerateRequest struct {
	TargetBaseURL string `json:"targetBaseUrl"`
	Model         string `json:"model"`
	Prompt        string `json:"prompt"`
	Stream        bool   `json:"stream"`
}

type bridgeCheckRequest struct {
	TargetBaseURL string `json:"targetBaseUrl"`
}

// relayError mirrors the relay's error body.
type relayError struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// CheckConnection asks the relay whether serverURL answers. The URLs need not
// be saved yet. It never returns an error; failures land in the result.
func (b *BridgeClient) CheckConnection(ctx context.Context, serverURL, relayURL string) ports.CheckResult {
	serverURL = domain.TrimBaseURL(serverURL)
	relayURL = domain.TrimBaseURL(relayURL)
	if serverURL == "" || relayURL == "" {
		return ports.CheckResult{Success: false, Message: "both the model server URL and the relay URL are required"}
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	resp, err := b.post(ctx, relayURL, "check", bridgeCheckRequest{TargetBaseURL: serverURL})
	if err != nil {
		b.logger.Warn("local connection check failed", "relay_url", relayURL, "server_url", serverURL, "error", err)
		return ports.CheckResult{Success: false, Message: userMessage(err)}
	}
	defer resp.Body.Close()

	var result ports.CheckResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return ports.CheckResult{Success: false, Message: fmt.Sprintf("the relay at %s answered with an unreadable check result: %v", relayURL, err)}
	}
	return result
}

// ChatStream sends one user message with the chat persona and streams the
// reply. It returns when the relay closes the stream.
func (b *BridgeClient) ChatStream(ctx context.Context, message string, onChunk ports.ChunkFunc) error {
	cfg, err := b.config()
	if err != nil {
		return err
	}

	resp, err := b.post(ctx, cfg.RelayBaseURL, "chat", bridgeChatRequest{
		TargetBaseURL: cfg.ServerBaseURL,
		Model:         cfg.ModelName,
		Messages:      personaMessages(message),
		Stream:        true,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dec := &streamDecoder{logger: b.logger, path: b.chatPath, onChunk: onChunk}
	if err := dec.decode(ctx, resp.Body); err != nil {
		if domain.KindOf(err) != domain.KindInternal {
			return err
		}
		return domain.NewError(domain.KindRelayUnreachable, "relay",
			fmt.Sprintf("the chat stream from the relay at %s was interrupted", cfg.RelayBaseURL), err)
	}
	return nil
}

// Chat is the non-streamed variant of ChatStream.
func (b *BridgeClient) Chat(ctx context.Context, message string) (string, error) {
	cfg, err := b.config()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var out map[string]any
	err = b.postJSON(ctx, cfg.RelayBaseURL, "chat", bridgeChatRequest{
		TargetBaseURL: cfg.ServerBaseURL,
		Model:         cfg.ModelName,
		Messages:      personaMessages(message),
		Stream:        false,
	}, &out)
	if err != nil {
		return "", err
	}

	text, _ := b.chatPath.Extract(out)
	if text = strings.TrimSpace(text); text == "" {
		return domain.ChatFallback, nil
	}
	return text, nil
}

// EnhancePrompt runs a single non-streamed generate call.
func (b *BridgeClient) EnhancePrompt(ctx context.Context, settings domain.PromptSettings) (string, error) {
	cfg, err := b.config()
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var out map[string]any
	err = b.postJSON(ctx, cfg.RelayBaseURL, "generate", bridgeGenerateRequest{
		TargetBaseURL: cfg.ServerBaseURL,
		Model:         cfg.ModelName,
		Prompt:        domain.EnhancePrompt(settings),
		Stream:        false,
	}, &out)
	if err != nil {
		return "", err
	}

	text, _ := b.generatePath.Extract(out)
	if text = strings.TrimSpace(text); text == "" {
		return domain.EnhanceFallback, nil
	}
	return text, nil
}

func personaMessages(message string) []chatMessage {
	return []chatMessage{
		{Role: "system", Content: domain.ChatPersona},
		{Role: "user", Content: message},
	}
}

func (b *BridgeClient) config() (domain.LocalProviderConfig, error) {
	cfg := b.settings.LocalConfig()
	if !cfg.IsComplete() {
		return cfg, domain.NewError(domain.KindNotConfigured, "local",
			"the local model is not configured; missing "+strings.Join(cfg.Missing(), ", "), nil)
	}
	cfg.ServerBaseURL = domain.TrimBaseURL(cfg.ServerBaseURL)
	cfg.RelayBaseURL = domain.TrimBaseURL(cfg.RelayBaseURL)
	return cfg, nil
}

func (b *BridgeClient) postJSON(ctx context.Context, relayURL, action string, body any, out any) error {
	resp, err := b.post(ctx, relayURL, action, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewError(domain.KindUpstreamError, "relay",
			fmt.Sprintf("the relay at %s returned a response that is not valid JSON", relayURL), err)
	}
	return nil
}

// post sends body to {relayURL}/bridge/{action}. On success the caller owns
// resp.Body. Errors distinguish "relay unreachable" from "relay reported".
func (b *BridgeClient) post(ctx context.Context, relayURL, action string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request: %w", action, err)
	}

	endpoint := relayURL + "/bridge/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidRequest, "relay", fmt.Sprintf("invalid relay URL %q", relayURL), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ctxErr
		}
		b.logger.Error("relay request failed", "action", action, "relay_url", relayURL, "error", err)
		return nil, domain.NewError(domain.KindRelayUnreachable, "relay",
			fmt.Sprintf("could not reach the relay at %s; check that the relay process and your tunnel are running", relayURL), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, b.relayFailure(relayURL, resp)
	}
	return resp, nil
}

func (b *BridgeClient) relayFailure(relayURL string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body relayError
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = resp.Status
		}
	}
	b.logger.Warn("relay reported failure", "relay_url", relayURL, "status", resp.StatusCode, "kind", body.Kind, "error", body.Error)

	switch domain.ErrorKind(body.Kind) {
	case domain.KindUpstreamUnreachable:
		return domain.NewError(domain.KindUpstreamUnreachable, "relay",
			"the relay is up but could not reach your local model server: "+body.Error, nil)
	case domain.KindInvalidRequest:
		return domain.NewError(domain.KindInvalidRequest, "relay", "the relay rejected the request: "+body.Error, nil)
	case domain.KindRateLimited:
		return domain.NewError(domain.KindRateLimited, "relay", "the relay is rate limiting requests: "+body.Error, nil)
	default:
		return domain.NewError(domain.KindUpstreamError, "relay",
			fmt.Sprintf("the relay reported an error from your local model server (status %d): %s", resp.StatusCode, body.Error), nil)
	}
}

// userMessage extracts the user-facing text from err.
func userMessage(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Err != nil {
			return fmt.Sprintf("%s (%v)", de.Message, de.Err)
		}
		return de.Message
	}
	return err.Error()
}
