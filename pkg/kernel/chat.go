package kernel

import (
	"net/http"
	"strings"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// handleChat streams one reply as server-sent events: "session" first, then
// one "chunk" per increment, then "done" with the sealed message or "error"
// with the failure and the partial message.
// POST /v1/chat
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	// Rejected before the session records a turn.
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, badRequest("message is empty", nil))
		return
	}

	session := s.sessions.GetOrCreate(req.SessionID)

	sse, ok := startSSE(w)
	if !ok {
		return
	}
	sse.sendJSON("session", map[string]string{"sessionId": session.ID()})

	msg, err := session.Send(r.Context(), req.Message, func(chunk string) {
		sse.sendJSON("chunk", map[string]string{"text": chunk})
	})
	if err != nil {
		if r.Context().Err() != nil {
			s.logger.Info("chat client disconnected", "session_id", session.ID())
			return
		}
		body := bodyFor(err)
		if domain.KindOf(err) == domain.KindInternal {
			s.logger.Error("chat failed", "session_id", session.ID(), "error", err)
			body.Error = "internal error"
		}
		sse.sendJSON("error", map[string]interface{}{
			"error":    body.Error,
			"kind":     body.Kind,
			"provider": body.Provider,
			"message":  msg,
		})
		return
	}
	sse.sendJSON("done", map[string]interface{}{"message": msg})
}

// handleGetTranscript returns a session's messages.
// GET /v1/chat/{id}
func (s *Server) handleGetTranscript(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "unknown chat session", http.StatusNotFound)
		return
	}
	msgs := session.Messages()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sessionId": session.ID(),
		"messages":  msgs,
		"count":     len(msgs),
	})
}

// handleDeleteChat drops a session and its transcript.
// DELETE /v1/chat/{id}
func (s *Server) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.Get(id); !ok {
		http.Error(w, "unknown chat session", http.StatusNotFound)
		return
	}
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}
