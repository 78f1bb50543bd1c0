package channels

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/config"
)

// SlackChannel connects over Socket Mode so no public endpoint is needed.
type SlackChannel struct {
	BaseChannel
	config config.SlackConfig
	api    *slack.Client
	socket *socketmode.Client
	botID  string
	cancel context.CancelFunc
}

// NewSlackChannel creates a Slack channel.
func NewSlackChannel(cfg config.SlackConfig, messageBus *bus.MessageBus) *SlackChannel {
	return &SlackChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
	}
}

func (c *SlackChannel) Name() string { return "slack" }

// Start authenticates and launches the Socket Mode event loop.
func (c *SlackChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if c.config.BotToken == "" || c.config.AppToken == "" {
		return fmt.Errorf("slack: bot token and app token required")
	}

	c.api = slack.New(c.config.BotToken, slack.OptionAppLevelToken(c.config.AppToken))
	auth, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return fmt.Errorf("slack: auth test: %w", err)
	}
	c.botID = auth.UserID
	slog.Info("Slack channel started", "bot", auth.User)

	c.socket = socketmode.New(c.api)
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go func() {
		if err := c.socket.RunContext(runCtx); err != nil && runCtx.Err() == nil {
			slog.Error("Slack socket loop exited", "error", err)
		}
	}()
	go c.consumeEvents(runCtx)
	return nil
}

func (c *SlackChannel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// consumeEvents drains the socket event stream and publishes messages.
func (c *SlackChannel) consumeEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-c.socket.Events:
			if !ok {
				return
			}
			if evt.Type != socketmode.EventTypeEventsAPI {
				continue
			}
			apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
			if !ok {
				continue
			}
			if evt.Request != nil {
				c.socket.Ack(*evt.Request)
			}
			if ev, ok := apiEvent.InnerEvent.Data.(*slackevents.MessageEvent); ok {
				c.handleMessage(ev)
			}
		}
	}
}

// handleMessage publishes one user message to the bus.
func (c *SlackChannel) handleMessage(ev *slackevents.MessageEvent) {
	// Ignore the bot's own messages and edits/joins.
	if ev.BotID != "" || ev.User == c.botID || ev.SubType != "" {
		return
	}
	if !c.allowed(ev.User) {
		slog.Debug("Slack message from unauthorized sender dropped", "sender", ev.User)
		return
	}
	c.Bus.PublishInbound(&bus.InboundMessage{
		Channel:   c.Name(),
		ChatID:    ev.Channel,
		SenderID:  ev.User,
		MessageID: ev.TimeStamp,
		TraceID:   uuid.NewString(),
		Kind:      bus.KindText,
		Text:      ev.Text,
	})
}

func (c *SlackChannel) allowed(senderID string) bool {
	if len(c.config.AllowFrom) == 0 {
		return true
	}
	for _, a := range c.config.AllowFrom {
		if a == senderID {
			return true
		}
	}
	return false
}

// SendMessage posts text and returns the message timestamp, Slack's id.
func (c *SlackChannel) SendMessage(ctx context.Context, chatID, text, replyToID string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if replyToID != "" {
		opts = append(opts, slack.MsgOptionTS(replyToID))
	}
	_, ts, err := c.api.PostMessageContext(ctx, chatID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack post message: %w", err)
	}
	return ts, nil
}

// SendVoice uploads the audio as a file attachment.
func (c *SlackChannel) SendVoice(ctx context.Context, chatID string, audio []byte, mimeType string) error {
	_, err := c.api.UploadFileV2Context(ctx, slack.UploadFileV2Parameters{
		Reader:   bytes.NewReader(audio),
		FileSize: len(audio),
		Filename: "voice" + extForMime(mimeType),
		Channel:  chatID,
	})
	if err != nil {
		return fmt.Errorf("slack upload voice: %w", err)
	}
	return nil
}

// SendTyping is a no-op; Socket Mode has no typing indicator API.
func (c *SlackChannel) SendTyping(ctx context.Context, chatID string) error {
	return nil
}

// FetchVoice is unsupported; Slack audio intake is not wired up.
func (c *SlackChannel) FetchVoice(ctx context.Context, fileID string) (string, error) {
	return "", fmt.Errorf("slack: voice intake not supported")
}
