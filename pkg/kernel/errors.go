package kernel

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

type errorBody struct {
	Error    string `json:"error"`
	Kind     string `json:"kind"`
	Provider string `json:"provider,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind to an HTTP status.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindInvalidRequest:
		return http.StatusBadRequest
	case domain.KindNotConfigured, domain.KindCredentialInvalid:
		return http.StatusServiceUnavailable
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case domain.KindRelayUnreachable, domain.KindUpstreamUnreachable, domain.KindUpstreamError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func bodyFor(err error) errorBody {
	body := errorBody{Error: err.Error(), Kind: string(domain.KindOf(err))}
	var de *domain.Error
	if errors.As(err, &de) {
		body.Error = de.Message
		body.Provider = de.Provider
	}
	return body
}

// writeError sends err as JSON. Internal errors are logged and hidden.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := domain.KindOf(err)
	body := bodyFor(err)
	if kind == domain.KindInternal {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		body.Error = "internal error"
	} else {
		s.logger.Warn("request failed", "path", r.URL.Path, "kind", kind, "error", err)
	}
	writeJSON(w, statusFor(kind), body)
}

func badRequest(msg string, cause error) error {
	return domain.NewError(domain.KindInvalidRequest, "", msg, cause)
}

// decode reads a JSON body into v.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return badRequest("request body is too large", err)
		}
		return badRequest("invalid request body: "+err.Error(), err)
	}
	return nil
}
