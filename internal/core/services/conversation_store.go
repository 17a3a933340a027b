package services

import (
	"log/slog"
	"sync"
)

// ConversationStore keeps live chat sessions in memory. Transcripts are not
// persisted; the least recently used sessions are evicted past maxCache.
type ConversationStore struct {
	mu     sync.Mutex
	logger *slog.Logger
	chat   ChatStreamer
	bus    *EventBus

	sessions map[string]*ChatSession
	order    []string // LRU order, most recent last
	maxCache int
}

// NewConversationStore creates a new store with the given capacity.
func NewConversationStore(logger *slog.Logger, chat ChatStreamer, bus *EventBus, maxCache int) *ConversationStore {
	if maxCache <= 0 {
		maxCache = 64
	}
	return &ConversationStore{
		logger:   logger,
		chat:     chat,
		bus:      bus,
		sessions: make(map[string]*ChatSession, maxCache),
		order:    make([]string, 0, maxCache),
		maxCache: maxCache,
	}
}

// Create starts a new session.
func (s *ConversationStore) Create() *ChatSession {
	session := NewChatSession(s.logger, s.chat, s.bus)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID()] = session
	s.touchLocked(session.ID())
	s.evictLocked()
	return session
}

// Get returns a live session.
func (s *ConversationStore) Get(id string) (*ChatSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if ok {
		s.touchLocked(id)
	}
	return session, ok
}

// GetOrCreate returns the session for id, or a new one when id is empty or
// unknown.
func (s *ConversationStore) GetOrCreate(id string) *ChatSession {
	if id != "" {
		if session, ok := s.Get(id); ok {
			return session
		}
	}
	return s.Create()
}

// Delete drops a session.
func (s *ConversationStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	s.removeLRULocked(id)
}

// Len returns the number of live sessions.
func (s *ConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *ConversationStore) touchLocked(id string) {
	s.removeLRULocked(id)
	s.order = append(s.order, id)
}

func (s *ConversationStore) removeLRULocked(id string) {
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *ConversationStore) evictLocked() {
	for len(s.order) > s.maxCache {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.sessions, oldest)
		s.logger.Debug("evicted chat session", "session_id", oldest)
	}
}
