// Package channels implements the chat platform listeners and transports.
package channels

import (
	"context"

	"github.com/yuban/yuban/internal/bus"
)

// Channel defines the interface for chat platforms (Telegram, Slack).
type Channel interface {
	// Name returns the channel name (e.g. "telegram").
	Name() string
	// Start starts the channel listener.
	Start(ctx context.Context) error
	// Stop stops the channel listener.
	Stop() error
}

// Transport is the synchronous outbound surface of a channel. Delivery
// returns the platform's message id so the sent message can be tracked.
type Transport interface {
	// SendMessage sends text to a chat, optionally as a reply, and returns
	// the platform-assigned message id.
	SendMessage(ctx context.Context, chatID, text, replyToID string) (string, error)
	// SendVoice sends an audio payload as a voice message.
	SendVoice(ctx context.Context, chatID string, audio []byte, mimeType string) error
	// SendTyping shows a typing indicator where the platform supports one.
	SendTyping(ctx context.Context, chatID string) error
	// FetchVoice downloads a voice attachment to a local file and returns
	// its path. The caller removes the file when done.
	FetchVoice(ctx context.Context, fileID string) (string, error)
}

// BaseChannel provides common functionality for channels.
type BaseChannel struct {
	Bus *bus.MessageBus
}
