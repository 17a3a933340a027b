package llm

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/pkg/relay"
)

// startRelay runs a real relay in front of model.
func startRelay(t *testing.T, cfg relay.Config) *httptest.Server {
	t.Helper()
	srv, err := relay.NewServer(testLogger(), cfg, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func bridgeFor(relayURL, modelURL string) *BridgeClient {
	return NewBridgeClient(testLogger(), &staticLocalConfig{cfg: domain.LocalProviderConfig{
		ServerBaseURL: modelURL,
		ModelName:     "llama3",
		RelayBaseURL:  relayURL,
	}}, BridgeOptions{Timeout: 5 * time.Second})
}

func TestChatStreamThroughRelay(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"message":{"content":"Hel"}}` + "\n"))
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte(`{"message":{"content":"lo"},"done":true}` + "\n"))
	}))
	defer model.Close()
	rl := startRelay(t, relay.Config{})

	var chunks []string
	err := bridgeFor(rl.URL, model.URL).ChatStream(context.Background(), "hi", func(c string) {
		chunks = append(chunks, c)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, chunks)
}

func TestChatStreamStalledModelServerFails(t *testing.T) {
	model := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		_, _ = w.Write([]byte(`{"message":{"content":"Hel"}}` + "\n"))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	defer model.Close()
	rl := startRelay(t, relay.Config{IdleTimeout: 200 * time.Millisecond})

	var chunks []string
	err := bridgeFor(rl.URL, model.URL).ChatStream(context.Background(), "hi", func(c string) {
		chunks = append(chunks, c)
	})
	require.Error(t, err)
	assert.Equal(t, []string{"Hel"}, chunks)
	assert.Equal(t, domain.KindUpstreamUnreachable, domain.KindOf(err))
	assert.Contains(t, err.Error(), model.URL)
}
