package kernel

import (
	"net/http"
	"strings"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

type settingsResponse struct {
	Provider        domain.ProviderSelection   `json:"provider"`
	Local           domain.LocalProviderConfig `json:"local"`
	LocalConfigured bool                       `json:"localConfigured"`
	CloudConfigured bool                       `json:"cloudConfigured"`
	Configured      bool                       `json:"configured"`
}

func (s *Server) currentSettings() settingsResponse {
	local := s.settings.LocalConfig()
	return settingsResponse{
		Provider:        s.settings.Provider(),
		Local:           local,
		LocalConfigured: local.IsComplete(),
		CloudConfigured: s.facade.CloudConfigured(),
		Configured:      s.facade.IsConfigured(),
	}
}

// handleGetSettings returns the provider selection and local settings.
// GET /v1/settings
func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.currentSettings())
}

// PUT /v1/settings/provider {"provider":"local"}
func (s *Server) handleSetProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Provider string `json:"provider"`
	}
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := domain.ProviderSelection(strings.ToLower(strings.TrimSpace(req.Provider)))
	if err := s.settings.SetProvider(r.Context(), p); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.currentSettings())
}

// PUT /v1/settings/local
func (s *Server) handleSetLocal(w http.ResponseWriter, r *http.Request) {
	var req domain.LocalProviderConfig
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	req.ModelName = strings.TrimSpace(req.ModelName)
	if err := s.settings.SetLocalConfig(r.Context(), req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.currentSettings())
}

// handleCheckLocal validates unsaved URLs through the relay. It always
// answers 200 with a structured result.
// POST /v1/settings/local/check {"serverBaseUrl":"...","relayBaseUrl":"..."}
func (s *Server) handleCheckLocal(w http.ResponseWriter, r *http.Request) {
	var req domain.LocalProviderConfig
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.checker.CheckConnection(r.Context(), req.ServerBaseURL, req.RelayBaseURL))
}
