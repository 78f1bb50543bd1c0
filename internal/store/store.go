// Package store provides per-conversation message history with an optional
// persistent log behind the in-memory view.
package store

import (
	"log/slog"
	"sync"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Log is the optional durable message log. All calls are best-effort from
// the store's perspective: failures are logged, never propagated.
type Log interface {
	AppendMessage(chatID, userID, role, content string) error
	RecentMessages(chatID string, limit int) ([]Message, error)
}

// conversation holds the in-memory state for one chat.
type conversation struct {
	messages         []Message
	lastBotMessage   string
	lastBotMessageID string
	hasBotMessage    bool
}

// Options configures a Store.
type Options struct {
	// Cap bounds the in-memory history per conversation. Default 50.
	Cap int
	// HydrateLimit is how many persisted messages seed a fresh conversation.
	// Default 20.
	HydrateLimit int
	// Log enables persistence when non-nil.
	Log Log
}

// Store owns the in-memory conversation map. The in-memory view is always
// authoritative for the running process.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	cap           int
	hydrateLimit  int
	log           Log
}

// New creates a Store.
func New(opts Options) *Store {
	if opts.Cap <= 0 {
		opts.Cap = 50
	}
	if opts.HydrateLimit <= 0 {
		opts.HydrateLimit = 20
	}
	return &Store{
		conversations: make(map[string]*conversation),
		cap:           opts.Cap,
		hydrateLimit:  opts.HydrateLimit,
		log:           opts.Log,
	}
}

// getOrCreate returns the conversation for chatID, creating and hydrating it
// on first touch. Callers must hold s.mu.
func (s *Store) getOrCreate(chatID string) *conversation {
	if conv, ok := s.conversations[chatID]; ok {
		return conv
	}
	conv := &conversation{}
	if s.log != nil {
		msgs, err := s.log.RecentMessages(chatID, s.hydrateLimit)
		if err != nil {
			slog.Warn("Store hydration failed", "chat_id", chatID, "error", err)
		} else {
			conv.messages = msgs
		}
	}
	s.conversations[chatID] = conv
	return conv
}

// Append adds a message to the conversation history. Assistant messages also
// update the last-bot-message tracking. The history is trimmed to the
// configured cap, oldest first.
func (s *Store) Append(chatID, userID, role, content, externalMessageID string) {
	s.mu.Lock()
	conv := s.getOrCreate(chatID)
	conv.messages = append(conv.messages, Message{Role: role, Content: content})
	if role == RoleAssistant {
		conv.lastBotMessage = content
		conv.lastBotMessageID = externalMessageID
		conv.hasBotMessage = true
	}
	if len(conv.messages) > s.cap {
		trimmed := make([]Message, s.cap)
		copy(trimmed, conv.messages[len(conv.messages)-s.cap:])
		conv.messages = trimmed
	}
	s.mu.Unlock()

	if s.log != nil {
		if err := s.log.AppendMessage(chatID, userID, role, content); err != nil {
			slog.Warn("Store persistence failed", "chat_id", chatID, "role", role, "error", err)
		}
	}
}

// History returns the last limit messages in chronological order. The
// returned slice is a copy; mutating it does not affect the store.
func (s *Store) History(chatID string, limit int) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.getOrCreate(chatID)
	msgs := conv.messages
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// LastBotMessage returns the most recently delivered assistant message, if
// any has been recorded for the conversation.
func (s *Store) LastBotMessage(chatID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.getOrCreate(chatID)
	return conv.lastBotMessage, conv.hasBotMessage
}

// LastBotMessageID returns the external message id correlating to
// LastBotMessage.
func (s *Store) LastBotMessageID(chatID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.getOrCreate(chatID)
	return conv.lastBotMessageID, conv.hasBotMessage
}

// RecordDelivered updates the last-bot-message tracking without appending to
// the history. Used by delivery paths where the content was already appended.
func (s *Store) RecordDelivered(chatID, externalMessageID, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv := s.getOrCreate(chatID)
	conv.lastBotMessage = content
	conv.lastBotMessageID = externalMessageID
	conv.hasBotMessage = true
}

// Clear evicts one conversation. Clearing an absent conversation is not an
// error.
func (s *Store) Clear(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, chatID)
}

// ClearAll evicts every conversation. Used at shutdown and in tests.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations = make(map[string]*conversation)
}
