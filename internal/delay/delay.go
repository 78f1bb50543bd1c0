// Package delay schedules human-like delayed responses. It guarantees at most
// one pending response per conversation: scheduling again for the same chat
// cancels the previous pending delivery (last-write-wins).
package delay

import (
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"
)

// Key identifies one scheduled response for cancellation lookup.
type Key struct {
	ChatID    string
	MessageID string
}

// String renders the key as chatID-messageID.
func (k Key) String() string {
	return k.ChatID + "-" + k.MessageID
}

// DeliverFunc performs the actual send of a delayed response. replyTo is the
// triggering message id.
type DeliverFunc func(chatID, response, replyTo string) error

// pendingResponse is one armed delivery.
type pendingResponse struct {
	key           Key
	response      string
	scheduledTime time.Time
	timer         *time.Timer
}

// Config bounds the randomized delay, in whole seconds.
type Config struct {
	MinSeconds int
	MaxSeconds int
	// Pick overrides the delay policy. When nil, a uniform random duration in
	// [MinSeconds, MaxSeconds] (inclusive) is used. Tests inject determinism
	// here.
	Pick func() time.Duration
}

// Scheduler manages pending delayed responses, keyed per conversation.
type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*pendingResponse
	pick    func() time.Duration
}

// New creates a Scheduler. Invalid bounds must be rejected at config load;
// New falls back to the 60s-3600s defaults if given zero values.
func New(cfg Config) *Scheduler {
	if cfg.MinSeconds <= 0 && cfg.MaxSeconds <= 0 {
		cfg.MinSeconds = 60
		cfg.MaxSeconds = 3600
	}
	pick := cfg.Pick
	if pick == nil {
		min, max := cfg.MinSeconds, cfg.MaxSeconds
		pick = func() time.Duration {
			return time.Duration(min+rand.Intn(max-min+1)) * time.Second
		}
	}
	return &Scheduler{
		pending: make(map[string]*pendingResponse),
		pick:    pick,
	}
}

// PickDelay returns a delay drawn from the configured policy.
func (s *Scheduler) PickDelay() time.Duration {
	return s.pick()
}

// Schedule arms a one-shot delayed delivery of response for chatID, replying
// to messageID. Any pending response for the same conversation is cancelled
// first. Returns the chosen delay and the cancellation key.
func (s *Scheduler) Schedule(chatID, messageID, response string, deliver DeliverFunc) (time.Duration, Key) {
	d := s.pick()
	key := Key{ChatID: chatID, MessageID: messageID}

	s.mu.Lock()
	if old, ok := s.pending[chatID]; ok {
		old.timer.Stop()
		delete(s.pending, chatID)
		slog.Debug("Pending response superseded", "chat_id", chatID, "old_message_id", old.key.MessageID)
	}
	p := &pendingResponse{
		key:           key,
		response:      response,
		scheduledTime: time.Now().Add(d),
	}
	p.timer = time.AfterFunc(d, func() {
		s.fire(p, deliver)
	})
	s.pending[chatID] = p
	s.mu.Unlock()

	slog.Info("Response scheduled", "chat_id", chatID, "message_id", messageID, "delay", d)
	return d, key
}

// fire runs when a timer elapses. The pending entry is removed under the
// scheduler lock before delivering, so a cancellation that won the lock first
// suppresses delivery entirely.
func (s *Scheduler) fire(p *pendingResponse, deliver DeliverFunc) {
	s.mu.Lock()
	cur, ok := s.pending[p.key.ChatID]
	if !ok || cur != p {
		// Cancelled or superseded between timer fire and lock acquisition.
		s.mu.Unlock()
		return
	}
	delete(s.pending, p.key.ChatID)
	s.mu.Unlock()

	if err := deliver(p.key.ChatID, p.response, p.key.MessageID); err != nil {
		// A failed delayed delivery is dropped, not retried.
		slog.Error("Delayed delivery failed, response dropped", "chat_id", p.key.ChatID, "error", err)
	}
}

// Cancel removes the pending response for a conversation, if any. After
// Cancel returns true, the delivery callback will not run.
func (s *Scheduler) Cancel(chatID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[chatID]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, chatID)
	return true
}

// CancelKey cancels the specific scheduled response identified by key.
func (s *Scheduler) CancelKey(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key.ChatID]
	if !ok || p.key != key {
		return false
	}
	p.timer.Stop()
	delete(s.pending, key.ChatID)
	return true
}

// Status reports whether a delivery is pending for a conversation and how
// long until it fires.
type Status struct {
	Pending   bool
	Remaining time.Duration
}

// Query is a non-destructive status check. Remaining is clamped to zero for
// the window where the deadline has passed but the timer has not fired yet.
func (s *Scheduler) Query(chatID string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[chatID]
	if !ok {
		return Status{}
	}
	remaining := time.Until(p.scheduledTime)
	if remaining < 0 {
		remaining = 0
	}
	return Status{Pending: true, Remaining: remaining}
}

// CancelAll stops every outstanding timer. No delivery callback runs after
// CancelAll returns. Used at shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for chatID, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, chatID)
	}
}

// PendingCount returns the number of outstanding delayed responses.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// FormatDelay renders a delay for human-readable display.
func FormatDelay(d time.Duration) string {
	seconds := int(d.Seconds())
	if seconds < 60 {
		return fmt.Sprintf("%d %s", seconds, plural("second", seconds))
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%d %s", minutes, plural("minute", minutes))
	}
	hours := minutes / 60
	rem := minutes % 60
	return fmt.Sprintf("%d %s %d %s", hours, plural("hour", hours), rem, plural("minute", rem))
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
