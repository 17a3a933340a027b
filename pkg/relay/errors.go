package relay

import (
	"encoding/json"
	"net/http"
)

// Error kinds on the wire. They match the client-side taxonomy.
const (
	kindInvalidRequest      = "invalid_request"
	kindUpstreamUnreachable = "upstream_unreachable"
	kindUpstreamError       = "upstream_error"
	kindRateLimited         = "rate_limited"
)

// ErrorResponse is the body of every non-2xx relay answer.
type ErrorResponse struct {
	Error    string          `json:"error"`
	Kind     string          `json:"kind"`
	Upstream json.RawMessage `json:"upstream,omitempty"`
}

// CheckResponse is the body of a check call.
type CheckResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string, upstream json.RawMessage) {
	writeJSON(w, status, ErrorResponse{Error: msg, Kind: kind, Upstream: upstream})
}
