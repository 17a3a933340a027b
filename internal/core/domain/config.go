package domain

import "strings"

// ProviderSelection identifies which backend answers chat and prompt requests.
type ProviderSelection string

const (
	ProviderCloud ProviderSelection = "cloud" // hosted Gemini/Imagen API
	ProviderLocal ProviderSelection = "local" // private model server behind the relay
)

// DefaultProvider is used whenever nothing (or garbage) is persisted.
const DefaultProvider = ProviderCloud

// ParseProviderSelection maps a persisted value to a selection.
// Unknown values fall back to DefaultProvider and report ok=false.
func ParseProviderSelection(raw string) (ProviderSelection, bool) {
	switch ProviderSelection(strings.ToLower(strings.TrimSpace(raw))) {
	case ProviderCloud:
		return ProviderCloud, true
	case ProviderLocal:
		return ProviderLocal, true
	default:
		return DefaultProvider, false
	}
}

// Valid reports whether p is one of the known selections.
func (p ProviderSelection) Valid() bool {
	return p == ProviderCloud || p == ProviderLocal
}

// LocalProviderConfig configures the private model server path
type LocalProviderConfig struct {
	ServerBaseURL string `json:"serverBaseUrl"` // "http://127.0.0.1:11434", no trailing slash
	ModelName     string `json:"modelName"`     // "llama3"
	RelayBaseURL  string `json:"relayBaseUrl"`  // externally reachable relay, e.g. a tunnel URL
}

// IsComplete is true iff all three fields are set.
func (c LocalProviderConfig) IsComplete() bool {
	return strings.TrimSpace(c.ServerBaseURL) != "" &&
		strings.TrimSpace(c.ModelName) != "" &&
		strings.TrimSpace(c.RelayBaseURL) != ""
}

// Missing lists the names of unset fields, in declaration order.
func (c LocalProviderConfig) Missing() []string {
	var missing []string
	if strings.TrimSpace(c.ServerBaseURL) == "" {
		missing = append(missing, "serverBaseUrl")
	}
	if strings.TrimSpace(c.ModelName) == "" {
		missing = append(missing, "modelName")
	}
	if strings.TrimSpace(c.RelayBaseURL) == "" {
		missing = append(missing, "relayBaseUrl")
	}
	return missing
}

// ConfigChange is published whenever the user settings change.
type ConfigChange struct {
	Provider ProviderSelection   `json:"provider"`
	Local    LocalProviderConfig `json:"local"`
}

// TrimBaseURL strips whitespace and trailing slashes.
func TrimBaseURL(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}
