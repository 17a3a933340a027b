package kernel

import (
	"log/slog"
	"net/http"

	"github.com/manthysbr/aiexpert/internal/config"
	"github.com/manthysbr/aiexpert/internal/core/ports"
	"github.com/manthysbr/aiexpert/internal/core/services"
)

// maxBodyBytes bounds request bodies; image uploads arrive as data URIs.
const maxBodyBytes = 25 << 20

// Server is the browser-facing API in front of the provider facade. The
// cloud credential never leaves this process.
type Server struct {
	logger   *slog.Logger
	facade   *services.ProviderFacade
	settings *config.SettingsStore
	checker  ports.LocalChecker
	eventBus *services.EventBus
	sessions *services.ConversationStore
}

func NewServer(
	logger *slog.Logger,
	facade *services.ProviderFacade,
	settings *config.SettingsStore,
	checker ports.LocalChecker,
	eventBus *services.EventBus,
	sessions *services.ConversationStore,
) *Server {
	return &Server{
		logger:   logger,
		facade:   facade,
		settings: settings,
		checker:  checker,
		eventBus: eventBus,
		sessions: sessions,
	}
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Settings
	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings/provider", s.handleSetProvider)
	mux.HandleFunc("PUT /v1/settings/local", s.handleSetLocal)
	mux.HandleFunc("POST /v1/settings/local/check", s.handleCheckLocal)
	mux.HandleFunc("GET /v1/settings/events", s.handleSettingsSSE)

	// Chat
	mux.HandleFunc("POST /v1/chat", s.handleChat)
	mux.HandleFunc("GET /v1/chat/{id}", s.handleGetTranscript)
	mux.HandleFunc("GET /v1/chat/{id}/events", s.handleChatSSE)
	mux.HandleFunc("DELETE /v1/chat/{id}", s.handleDeleteChat)

	// Prompts and images
	mux.HandleFunc("POST /v1/prompts/enhance", s.handleEnhance)
	mux.HandleFunc("POST /v1/prompts/from-image", s.handlePromptFromImage)
	mux.HandleFunc("POST /v1/prompts/refine", s.handleRefine)
	mux.HandleFunc("POST /v1/images/generate", s.handleGenerateImages)
	mux.HandleFunc("POST /v1/images/edit", s.handleEditImage)

	mux.HandleFunc("GET /v1/capabilities", s.handleListCapabilities)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":       "ok",
			"chatSessions": s.sessions.Len(),
		})
	})

	return mux
}

// handleListCapabilities returns all capability routes for the current selection.
// GET /v1/capabilities
func (s *Server) handleListCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := s.facade.Capabilities()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"provider":     s.facade.Active(),
		"capabilities": caps,
		"count":        len(caps),
	})
}
