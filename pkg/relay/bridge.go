package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oapi-codegen/runtime"
)

const (
	actionChat     = "chat"
	actionGenerate = "generate"
	actionCheck    = "check"

	maxEnvelopeBytes = 32 << 20
	maxErrorBytes    = 64 << 10
	ndjsonType       = "application/x-ndjson"

	// statusClientClosed is recorded when the caller left before any answer.
	statusClientClosed = 499
)

// handleBridge serves POST /bridge/{action}.
func (s *Server) handleBridge(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger := s.logger.With("request_id", requestID(r.Context()))

	var action string
	err := runtime.BindStyledParameterWithOptions("simple", "action", r.PathValue("action"), &action,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		s.reject(w, "unknown", fmt.Sprintf("invalid action: %v", err))
		return
	}
	switch action {
	case actionChat, actionGenerate, actionCheck:
	default:
		s.reject(w, "unknown", fmt.Sprintf("unknown action %q (valid: chat, generate, check)", action))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		s.reject(w, action, fmt.Sprintf("failed to read request body: %v", err))
		return
	}
	envelope, target, err := decodeEnvelope(bytes.NewReader(raw))
	if err != nil {
		s.reject(w, action, err.Error())
		return
	}
	if err := s.validateEnvelope(r, raw); err != nil {
		s.reject(w, action, err.Error())
		return
	}
	logger = logger.With("action", action, "target", target)

	if action == actionCheck {
		result := s.check(r.Context(), target)
		s.metrics.observe(action, http.StatusOK, start)
		logger.Info("check completed", "success", result.Success)
		writeJSON(w, http.StatusOK, result)
		return
	}

	if model, _ := envelope["model"].(string); strings.TrimSpace(model) == "" {
		s.reject(w, action, "model is required")
		return
	}
	streaming, _ := envelope["stream"].(bool)

	status := s.forward(w, r, action, target, envelope, streaming)
	s.metrics.observe(action, status, start)
	logger.Info("bridge call completed", "status", status, "stream", streaming, "duration_ms", time.Since(start).Milliseconds())
}

func (s *Server) reject(w http.ResponseWriter, action, msg string) {
	s.metrics.observe(action, http.StatusBadRequest, time.Time{})
	writeError(w, http.StatusBadRequest, kindInvalidRequest, msg, nil)
}

// decodeEnvelope reads the request body and removes targetBaseUrl from it.
// Everything else is forwarded untouched.
func decodeEnvelope(body io.Reader) (map[string]any, string, error) {
	var envelope map[string]any
	dec := json.NewDecoder(body)
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, "", fmt.Errorf("request body must be a JSON object: %v", err)
	}
	if envelope == nil {
		return nil, "", errors.New("request body must be a JSON object")
	}

	raw, _ := envelope["targetBaseUrl"].(string)
	target := strings.TrimRight(strings.TrimSpace(raw), "/")
	if target == "" {
		return nil, "", errors.New("targetBaseUrl is required")
	}
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, "", fmt.Errorf("targetBaseUrl %q must be an absolute http(s) URL", raw)
	}
	delete(envelope, "targetBaseUrl")
	return envelope, target, nil
}

// check issues a plain GET against the model server. It always produces a
// result; failures are described in it.
func (s *Server) check(ctx context.Context, target string) CheckResponse {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return CheckResponse{Success: false, Message: fmt.Sprintf("invalid model server URL %s: %v", target, err)}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return CheckResponse{Success: false, Message: fmt.Sprintf("the relay could not connect to the model server at %s; make sure it is running: %v", target, err)}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBytes))

	if resp.StatusCode >= 400 {
		return CheckResponse{Success: false, Message: fmt.Sprintf("the model server at %s responded with status %d", target, resp.StatusCode)}
	}
	return CheckResponse{Success: true, Message: "the model server is running"}
}

// forward POSTs the envelope to {target}/api/{action} and relays the answer.
// It returns the status sent to the client.
func (s *Server) forward(w http.ResponseWriter, r *http.Request, action, target string, envelope map[string]any, streaming bool) int {
	payload, err := json.Marshal(envelope)
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Sprintf("request body cannot be re-encoded: %v", err), nil)
		return http.StatusBadRequest
	}

	// The upstream call is tied to the client request, so a client
	// disconnect aborts it. The idle watchdog cancels it on silence.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	endpoint := target + "/api/" + action
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		writeError(w, http.StatusBadRequest, kindInvalidRequest, fmt.Sprintf("invalid model server URL %s: %v", target, err), nil)
		return http.StatusBadRequest
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, requestID(r.Context()))

	s.metrics.inflight.Inc()
	defer s.metrics.inflight.Dec()

	resp, err := s.client.Do(req)
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Info("client went away before the model server answered", "target", target)
			return statusClientClosed
		}
		s.logger.Error("model server unreachable", "target", target, "error", err)
		writeError(w, http.StatusInternalServerError, kindUpstreamUnreachable,
			fmt.Sprintf("the relay could not reach your model server at %s; make sure it is running and reachable from the relay: %v", target, err), nil)
		return http.StatusInternalServerError
	}
	defer resp.Body.Close()

	body := newIdleReader(resp.Body, s.cfg.IdleTimeout, cancel)
	defer body.Stop()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return s.upstreamFailure(w, target, resp.StatusCode, body)
	}

	contentType := resp.Header.Get("Content-Type")
	if streaming || strings.HasPrefix(contentType, ndjsonType) {
		if contentType == "" {
			contentType = ndjsonType
		}
		return s.pipe(w, r, target, resp.StatusCode, contentType, body)
	}

	var out json.RawMessage
	if err := json.NewDecoder(io.LimitReader(body, maxEnvelopeBytes)).Decode(&out); err != nil {
		if body.TimedOut() {
			return s.idleFailure(w, target)
		}
		writeError(w, http.StatusBadGateway, kindUpstreamError,
			fmt.Sprintf("the model server at %s returned a response that is not valid JSON: %v", target, err), nil)
		return http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
	return http.StatusOK
}

// pipe copies the model server's body to the client as it arrives.
func (s *Server) pipe(w http.ResponseWriter, r *http.Request, target string, status int, contentType string, body *idleReader) int {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(status)
	if flusher != nil {
		flusher.Flush()
	}

	buf := make([]byte, 32<<10)
	var sent int64
	var last byte = '\n'
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				s.logger.Info("client disconnected mid-stream, aborting upstream", "target", target, "bytes", sent)
				return status
			}
			sent += int64(n)
			last = buf[n-1]
			s.metrics.streamedBytes.Add(float64(n))
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == nil {
			continue
		}
		switch {
		case errors.Is(readErr, io.EOF):
		case r.Context().Err() != nil:
			s.logger.Info("client disconnected mid-stream, aborting upstream", "target", target, "bytes", sent)
		case body.TimedOut():
			s.logger.Warn("model server went silent mid-stream", "target", target, "idle_timeout", s.cfg.IdleTimeout, "bytes", sent)
			s.streamFailure(w, flusher, last, fmt.Sprintf("the model server at %s stopped responding for %s mid-stream", target, s.cfg.IdleTimeout))
		default:
			s.logger.Error("stream from model server failed", "target", target, "error", readErr, "bytes", sent)
			s.streamFailure(w, flusher, last, fmt.Sprintf("the stream from the model server at %s broke off: %v", target, readErr))
		}
		return status
	}
}

// streamFailure ends a stream whose headers are already sent with one NDJSON
// error line, so the client does not mistake a truncated reply for a
// complete one. last is the final byte already written.
func (s *Server) streamFailure(w http.ResponseWriter, flusher http.Flusher, last byte, msg string) {
	line, err := json.Marshal(ErrorResponse{Error: msg, Kind: kindUpstreamUnreachable})
	if err != nil {
		return
	}
	if last != '\n' {
		line = append([]byte{'\n'}, line...)
	}
	line = append(line, '\n')
	if _, err := w.Write(line); err != nil {
		return
	}
	s.metrics.streamFailures.Inc()
	if flusher != nil {
		flusher.Flush()
	}
}

func (s *Server) upstreamFailure(w http.ResponseWriter, target string, status int, body *idleReader) int {
	raw, _ := io.ReadAll(io.LimitReader(body, maxErrorBytes))
	if body.TimedOut() {
		return s.idleFailure(w, target)
	}

	msg := strings.TrimSpace(string(raw))
	var upstream json.RawMessage
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Valid(raw) {
		upstream = raw
		if err := json.Unmarshal(raw, &parsed); err == nil && parsed.Error != "" {
			msg = parsed.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	s.logger.Warn("model server returned an error", "target", target, "status", status, "error", msg)
	writeError(w, status, kindUpstreamError, fmt.Sprintf("the model server at %s answered with status %d: %s", target, status, msg), upstream)
	return status
}

func (s *Server) idleFailure(w http.ResponseWriter, target string) int {
	writeError(w, http.StatusInternalServerError, kindUpstreamUnreachable,
		fmt.Sprintf("the model server at %s stopped responding for %s", target, s.cfg.IdleTimeout), nil)
	return http.StatusInternalServerError
}
