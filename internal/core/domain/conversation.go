package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// MessageID uniquely identifies a message within a transcript
type MessageID string

// MessageRole defines who authored a message
type MessageRole string

const (
	RoleUser  MessageRole = "user"
	RoleModel MessageRole = "model"
)

// MessageState tracks the lifecycle of a model reply.
type MessageState string

const (
	MessageStreaming MessageState = "streaming" // placeholder still being filled
	MessageComplete  MessageState = "complete"
	MessageFailed    MessageState = "failed" // stream aborted, Text holds whatever arrived
)

// ChatMessage is a single turn in a conversation
type ChatMessage struct {
	ID        MessageID    `json:"id"`
	Role      MessageRole  `json:"role"`
	Text      string       `json:"text"`
	State     MessageState `json:"state"`
	CreatedAt time.Time    `json:"createdAt"`
}

var (
	ErrMessageSealed = errors.New("message is no longer streaming")
	ErrNoPlaceholder = errors.New("transcript has no streaming placeholder")
)

// NewMessageID generates a random message ID (msg-<uuid>)
func NewMessageID() MessageID {
	return MessageID("msg-" + uuid.NewString())
}

// Transcript is the ordered message list of one conversation. Only the last
// message may be mutable, and only by appending text to it.
type Transcript struct {
	messages []ChatMessage
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []ChatMessage {
	out := make([]ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int { return len(t.messages) }

// AddUser appends a completed user message.
func (t *Transcript) AddUser(text string) ChatMessage {
	msg := ChatMessage{
		ID:        NewMessageID(),
		Role:      RoleUser,
		Text:      text,
		State:     MessageComplete,
		CreatedAt: time.Now().UTC(),
	}
	t.messages = append(t.messages, msg)
	return msg
}

// BeginModel appends an empty model placeholder in the streaming state.
func (t *Transcript) BeginModel() ChatMessage {
	msg := ChatMessage{
		ID:        NewMessageID(),
		Role:      RoleModel,
		State:     MessageStreaming,
		CreatedAt: time.Now().UTC(),
	}
	t.messages = append(t.messages, msg)
	return msg
}

// AppendChunk extends the trailing placeholder.
func (t *Transcript) AppendChunk(chunk string) (ChatMessage, error) {
	last, err := t.placeholder()
	if err != nil {
		return ChatMessage{}, err
	}
	last.Text += chunk
	return *last, nil
}

// Complete seals the trailing placeholder.
func (t *Transcript) Complete() (ChatMessage, error) {
	return t.seal(MessageComplete)
}

// Fail seals the trailing placeholder as failed, keeping partial text.
func (t *Transcript) Fail() (ChatMessage, error) {
	return t.seal(MessageFailed)
}

func (t *Transcript) seal(state MessageState) (ChatMessage, error) {
	last, err := t.placeholder()
	if err != nil {
		return ChatMessage{}, err
	}
	last.State = state
	return *last, nil
}

func (t *Transcript) placeholder() (*ChatMessage, error) {
	if len(t.messages) == 0 {
		return nil, ErrNoPlaceholder
	}
	last := &t.messages[len(t.messages)-1]
	if last.Role != RoleModel {
		return nil, ErrNoPlaceholder
	}
	if last.State != MessageStreaming {
		return nil, ErrMessageSealed
	}
	return last, nil
}
