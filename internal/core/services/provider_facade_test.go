package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

type fakeSettings struct {
	mu       sync.Mutex
	provider domain.ProviderSelection
	local    domain.LocalProviderConfig
}

func (s *fakeSettings) Provider() domain.ProviderSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

func (s *fakeSettings) LocalConfig() domain.LocalProviderConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.local
}

func (s *fakeSettings) set(p domain.ProviderSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = p
}

// fakeText records calls and replays chunks.
type fakeText struct {
	name       string
	configured bool
	chunks     []string
	streamErr  error
	calls      []string
}

func (f *fakeText) IsConfigured() bool { return f.configured }

func (f *fakeText) EnhancePrompt(_ context.Context, s domain.PromptSettings) (string, error) {
	f.calls = append(f.calls, "enhance")
	return f.name + ":" + s.Idea, nil
}

func (f *fakeText) ChatStream(_ context.Context, _ string, onChunk ports.ChunkFunc) error {
	f.calls = append(f.calls, "chat")
	for _, c := range f.chunks {
		onChunk(c)
	}
	return f.streamErr
}

func (f *fakeText) Chat(_ context.Context, message string) (string, error) {
	f.calls = append(f.calls, "chat-once")
	return f.name + ":" + message, f.streamErr
}

type fakeCloud struct {
	fakeText
}

func (f *fakeCloud) GenerateImages(_ context.Context, _ string, count int, _ domain.AspectRatio) ([]string, error) {
	f.calls = append(f.calls, "generate")
	out := make([]string, count)
	for i := range out {
		out[i] = "data:image/jpeg;base64,AA=="
	}
	return out, nil
}

func (f *fakeCloud) EditImage(context.Context, string, domain.Image, domain.AspectRatio) ([]string, error) {
	f.calls = append(f.calls, "edit")
	return []string{"data:image/png;base64,AA=="}, nil
}

func (f *fakeCloud) GeneratePromptFromImage(context.Context, domain.Image) (string, error) {
	f.calls = append(f.calls, "describe")
	return "described", nil
}

func (f *fakeCloud) RefineEditPrompt(context.Context, string) (string, error) {
	f.calls = append(f.calls, "refine")
	return "refined", nil
}

func newTestFacade(selection domain.ProviderSelection) (*ProviderFacade, *fakeSettings, *fakeCloud, *fakeText) {
	settings := &fakeSettings{provider: selection, local: domain.LocalProviderConfig{
		ServerBaseURL: "http://127.0.0.1:11434", ModelName: "llama3", RelayBaseURL: "http://relay",
	}}
	cloud := &fakeCloud{fakeText{name: "cloud", configured: true}}
	local := &fakeText{name: "local", configured: true}
	registry := NewProviderRegistry(cloud, local)
	return NewProviderFacade(testLogger(), settings, registry, NewCapabilityRouter(testLogger())), settings, cloud, local
}

func TestFacadeImageOpsAlwaysCloud(t *testing.T) {
	ctx := context.Background()
	for _, selection := range []domain.ProviderSelection{domain.ProviderCloud, domain.ProviderLocal, "garbage"} {
		facade, _, cloud, local := newTestFacade(selection)

		uris, err := facade.GenerateImages(ctx, "a fox", 2, domain.AspectSquare)
		require.NoError(t, err)
		assert.Len(t, uris, 2)

		_, err = facade.EditImage(ctx, "make it blue", domain.Image{MIMEType: "image/png", Data: []byte{1}}, domain.AspectSquare)
		require.NoError(t, err)

		_, err = facade.GeneratePromptFromImage(ctx, domain.Image{MIMEType: "image/png", Data: []byte{1}})
		require.NoError(t, err)

		_, err = facade.RefineEditPrompt(ctx, "azul")
		require.NoError(t, err)

		assert.Equal(t, []string{"generate", "edit", "describe", "refine"}, cloud.calls, "selection %s", selection)
		assert.Empty(t, local.calls, "selection %s", selection)
	}
}

func TestFacadeTextFollowsSelectionPerCall(t *testing.T) {
	ctx := context.Background()
	facade, settings, _, _ := newTestFacade(domain.ProviderCloud)

	got, err := facade.EnhancePrompt(ctx, domain.PromptSettings{Idea: "fox"})
	require.NoError(t, err)
	assert.Equal(t, "cloud:fox", got)

	settings.set(domain.ProviderLocal)

	got, err = facade.EnhancePrompt(ctx, domain.PromptSettings{Idea: "fox"})
	require.NoError(t, err)
	assert.Equal(t, "local:fox", got)
	assert.Equal(t, domain.ProviderLocal, facade.Active())
}

func TestFacadeChatStreamDelegates(t *testing.T) {
	facade, _, cloud, local := newTestFacade(domain.ProviderLocal)
	local.chunks = []string{"Hel", "lo"}

	var got []string
	err := facade.ChatStream(context.Background(), "hi", func(c string) { got = append(got, c) })
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, got)
	assert.Empty(t, cloud.calls)
}

func TestFacadeChatFollowsSelection(t *testing.T) {
	ctx := context.Background()
	facade, settings, cloud, local := newTestFacade(domain.ProviderLocal)

	reply, err := facade.Chat(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "local:hi", reply)
	assert.Equal(t, []string{"chat-once"}, local.calls)

	settings.provider = domain.ProviderCloud
	reply, err = facade.Chat(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "cloud:hi", reply)
	assert.Equal(t, []string{"chat-once"}, cloud.calls)

	_, err = facade.Chat(ctx, "  ")
	assert.Equal(t, domain.KindInvalidRequest, domain.KindOf(err))
}

func TestFacadeNotConfigured(t *testing.T) {
	ctx := context.Background()

	facade, settings, _, local := newTestFacade(domain.ProviderLocal)
	local.configured = false
	settings.local.RelayBaseURL = ""

	assert.False(t, facade.IsConfigured())
	err := facade.ChatStream(ctx, "hi", func(string) {})
	assert.Equal(t, domain.KindNotConfigured, domain.KindOf(err))
	assert.Contains(t, err.Error(), "relayBaseUrl")
	assert.Empty(t, local.calls)

	facade, _, cloud, _ := newTestFacade(domain.ProviderLocal)
	cloud.configured = false
	_, err = facade.GenerateImages(ctx, "fox", 1, domain.AspectSquare)
	assert.Equal(t, domain.KindNotConfigured, domain.KindOf(err))
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	assert.Empty(t, cloud.calls)

	// local stays usable for text while the cloud is down
	_, err = facade.EnhancePrompt(ctx, domain.PromptSettings{Idea: "fox"})
	assert.NoError(t, err)
}

func TestFacadeValidation(t *testing.T) {
	facade, _, cloud, _ := newTestFacade(domain.ProviderCloud)

	_, err := facade.EnhancePrompt(context.Background(), domain.PromptSettings{Idea: "  "})
	assert.Equal(t, domain.KindInvalidRequest, domain.KindOf(err))

	err = facade.ChatStream(context.Background(), "", func(string) {})
	assert.Equal(t, domain.KindInvalidRequest, domain.KindOf(err))

	assert.Empty(t, cloud.calls)
}

func TestFacadeCapabilities(t *testing.T) {
	facade, settings, _, _ := newTestFacade(domain.ProviderCloud)
	settings.set(domain.ProviderLocal)

	for _, route := range facade.Capabilities() {
		switch route.Capability {
		case CapChat, CapPromptEnhance:
			assert.Equal(t, domain.ProviderLocal, route.Provider)
		default:
			assert.Equal(t, domain.ProviderCloud, route.Provider)
		}
	}
}
