package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// ChatStreamer is what a session needs from the facade.
type ChatStreamer interface {
	ChatStream(ctx context.Context, message string, onChunk ports.ChunkFunc) error
}

// ChatSession owns one conversation's transcript. Each Send appends the user
// message and an empty model placeholder, grows the placeholder as chunks
// arrive and then seals it.
type ChatSession struct {
	id     string
	logger *slog.Logger
	chat   ChatStreamer
	bus    *EventBus

	mu         sync.Mutex
	transcript domain.Transcript
	streaming  bool
}

func NewChatSession(logger *slog.Logger, chat ChatStreamer, bus *EventBus) *ChatSession {
	id := uuid.NewString()
	return &ChatSession{
		id:     id,
		logger: logger.With("session_id", id),
		chat:   chat,
		bus:    bus,
	}
}

func (s *ChatSession) ID() string { return s.id }

// Messages returns a snapshot of the transcript.
func (s *ChatSession) Messages() []domain.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Messages()
}

// chunkPayload is published on the session topic.
type chunkPayload struct {
	MessageID domain.MessageID `json:"messageId"`
	Chunk     string           `json:"chunk,omitempty"`
	Text      string           `json:"text"`
	Error     string           `json:"error,omitempty"`
	Kind      string           `json:"kind,omitempty"`
}

// Send streams the reply to text. onChunk (may be nil) sees every increment
// in order. On failure the placeholder is sealed as failed with whatever text
// arrived, and the error is returned alongside it.
func (s *ChatSession) Send(ctx context.Context, text string, onChunk ports.ChunkFunc) (domain.ChatMessage, error) {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return domain.ChatMessage{}, domain.NewError(domain.KindInvalidRequest, "", "a reply is still streaming in this conversation", nil)
	}
	s.streaming = true
	s.transcript.AddUser(text)
	placeholder := s.transcript.BeginModel()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.streaming = false
		s.mu.Unlock()
	}()

	err := s.chat.ChatStream(ctx, text, func(chunk string) {
		s.mu.Lock()
		msg, appendErr := s.transcript.AppendChunk(chunk)
		s.mu.Unlock()
		if appendErr != nil {
			s.logger.Warn("dropping chunk for sealed message", "error", appendErr)
			return
		}
		s.publish(EventChatChunk, chunkPayload{MessageID: msg.ID, Chunk: chunk, Text: msg.Text})
		if onChunk != nil {
			onChunk(chunk)
		}
	})

	s.mu.Lock()
	var msg domain.ChatMessage
	var sealErr error
	if err != nil {
		msg, sealErr = s.transcript.Fail()
	} else {
		msg, sealErr = s.transcript.Complete()
	}
	s.mu.Unlock()
	if sealErr != nil {
		s.logger.Error("failed to seal model message", "message_id", placeholder.ID, "error", sealErr)
	}

	if err != nil {
		s.logger.Warn("chat stream failed", "message_id", msg.ID, "received", len(msg.Text), "error", err)
		s.publish(EventChatError, chunkPayload{MessageID: msg.ID, Text: msg.Text, Error: err.Error(), Kind: string(domain.KindOf(err))})
		return msg, err
	}
	s.publish(EventChatDone, chunkPayload{MessageID: msg.ID, Text: msg.Text})
	return msg, nil
}

func (s *ChatSession) publish(typ EventType, payload chunkPayload) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(NewEvent(ChatTopic(s.id), typ, payload))
}
