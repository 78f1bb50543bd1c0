// Package bus provides the async queue between channels and the message handler.
package bus

import (
	"context"
	"time"
)

// Inbound message kinds.
const (
	KindText  = "text"
	KindVoice = "voice"
)

// InboundMessage represents one unit of user input from a channel.
type InboundMessage struct {
	Channel     string `json:"channel"`
	ChatID      string `json:"chat_id"`
	SenderID    string `json:"sender_id"`
	MessageID   string `json:"message_id"`
	TraceID     string `json:"trace_id"`
	Kind        string `json:"kind"`
	Text        string `json:"text"`
	VoiceFileID string `json:"voice_file_id,omitempty"`
	// ReplyToText carries the text of the message being replied to, when the
	// user replied to one of the bot's own messages.
	ReplyToText string    `json:"reply_to_text,omitempty"`
	ReplyToBot  bool      `json:"reply_to_bot,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// MessageBus decouples channel listeners from the handler loop.
type MessageBus struct {
	inbound chan *InboundMessage
}

// NewMessageBus creates a new message bus.
func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound: make(chan *InboundMessage, 100),
	}
}

// PublishInbound sends a message from a channel to the handler.
func (b *MessageBus) PublishInbound(msg *InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	b.inbound <- msg
}

// ConsumeInbound blocks until a message is available or context is cancelled.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (*InboundMessage, error) {
	select {
	case msg := <-b.inbound:
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// InboundSize returns the number of pending inbound messages.
func (b *MessageBus) InboundSize() int {
	return len(b.inbound)
}
