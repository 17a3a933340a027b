package relay

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

//go:embed openapi.yaml
var specYAML []byte

// loadSpec parses and validates the embedded API description and builds a
// router over it for request validation.
func loadSpec() (*openapi3.T, routers.Router, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(specYAML)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load relay openapi spec: %w", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, nil, fmt.Errorf("relay openapi spec is invalid: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build relay openapi router: %w", err)
	}
	return doc, router, nil
}

// validateEnvelope checks a bridge request against the documented
// operation. raw is the already-read body; r itself is left untouched.
// Browsers often post JSON as text/plain to skip the preflight, so the
// body is always validated as application/json.
func (s *Server) validateEnvelope(r *http.Request, raw []byte) error {
	req := r.Clone(r.Context())
	req.Body = io.NopCloser(bytes.NewReader(raw))
	req.GetBody = nil
	req.ContentLength = int64(len(raw))
	req.Header.Set("Content-Type", "application/json")

	route, params, err := s.router.FindRoute(req)
	if err != nil {
		return fmt.Errorf("%s %s is not a documented relay operation: %v", r.Method, r.URL.Path, err)
	}
	err = openapi3filter.ValidateRequest(req.Context(), &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: params,
		Route:      route,
	})
	if err != nil {
		return fmt.Errorf("request does not match the relay API: %v", err)
	}
	return nil
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.spec)
}
