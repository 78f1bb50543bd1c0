// Package mode tracks which conversations want instant (undelayed) replies.
package mode

import "sync"

// Registry is the per-conversation instant-mode toggle set. Conversations
// default to delayed mode; membership is in-memory only and resets on
// restart.
type Registry struct {
	mu      sync.RWMutex
	instant map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{instant: make(map[string]struct{})}
}

// SetInstant toggles instant mode for a conversation.
func (r *Registry) SetInstant(chatID string, on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if on {
		r.instant[chatID] = struct{}{}
	} else {
		delete(r.instant, chatID)
	}
}

// IsInstant reports whether a conversation is in instant mode.
func (r *Registry) IsInstant(chatID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.instant[chatID]
	return ok
}

// Toggle flips instant mode and returns the new state.
func (r *Registry) Toggle(chatID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instant[chatID]; ok {
		delete(r.instant, chatID)
		return false
	}
	r.instant[chatID] = struct{}{}
	return true
}
