package kernel

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/manthysbr/aiexpert/internal/core/services"
)

// sseWriter frames server-sent events.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// startSSE writes the event-stream headers. It fails when the writer cannot flush.
func startSSE(w http.ResponseWriter) (*sseWriter, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return nil, false
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, true
}

func (s *sseWriter) send(event string, data string) {
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.flusher.Flush()
}

func (s *sseWriter) sendJSON(event string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		data = []byte(`{}`)
	}
	s.send(event, string(data))
}

// handleSettingsSSE streams config.changed events so every open view follows
// provider switches without reloading.
// GET /v1/settings/events
func (s *Server) handleSettingsSSE(w http.ResponseWriter, r *http.Request) {
	s.streamTopic(w, r, services.TopicSettings)
}

// handleChatSSE mirrors a session's chunk/done/error events, e.g. for a
// second tab watching the same conversation.
// GET /v1/chat/{id}/events
func (s *Server) handleChatSSE(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, ok := s.sessions.Get(id); !ok {
		http.Error(w, "unknown chat session", http.StatusNotFound)
		return
	}
	s.streamTopic(w, r, services.ChatTopic(id))
}

func (s *Server) streamTopic(w http.ResponseWriter, r *http.Request, topic string) {
	ch, unsub := s.eventBus.Subscribe(topic)
	defer unsub()

	sse, ok := startSSE(w)
	if !ok {
		return
	}

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			sse.send(string(evt.Type), evt.Data)
		}
	}
}
