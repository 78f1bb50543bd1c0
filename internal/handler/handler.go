// Package handler orchestrates inbound messages: history, completion, and
// instant or delayed delivery.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/channels"
	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/delay"
	"github.com/yuban/yuban/internal/mode"
	"github.com/yuban/yuban/internal/prompt"
	"github.com/yuban/yuban/internal/provider"
	"github.com/yuban/yuban/internal/scheduler"
	"github.com/yuban/yuban/internal/store"
)

// historyWindow is how many messages feed each completion request.
const historyWindow = 20

const (
	tryAgainReply   = "I'm having trouble processing your message. Please try again."
	voiceFailReply  = "I couldn't process your voice message. Please try again or send a text message."
	noBotMessageYet = "I haven't sent any messages yet. Start a conversation first!"
)

// Options wires the handler's collaborators.
type Options struct {
	Config     config.Config
	Store      *store.Store
	Delay      *delay.Scheduler
	Modes      *mode.Registry
	Provider   provider.LLMProvider
	Prompts    prompt.Builder
	Transports map[string]channels.Transport
	// Materials returns the current reference-materials block.
	Materials func() string
	// DailyWord serves the /word command's manual trigger. Optional.
	DailyWord *scheduler.DailyWord
}

// Handler routes inbound messages to commands, reply shortcuts, voice
// intake, or the conversation flow.
type Handler struct {
	cfg        config.Config
	store      *store.Store
	delay      *delay.Scheduler
	modes      *mode.Registry
	provider   provider.LLMProvider
	prompts    prompt.Builder
	transports map[string]channels.Transport
	materials  func() string
	dailyWord  *scheduler.DailyWord

	mu            sync.Mutex
	levelOverride string
}

// New creates a Handler.
func New(opts Options) *Handler {
	mats := opts.Materials
	if mats == nil {
		mats = func() string { return "" }
	}
	return &Handler{
		cfg:        opts.Config,
		store:      opts.Store,
		delay:      opts.Delay,
		modes:      opts.Modes,
		provider:   opts.Provider,
		prompts:    opts.Prompts,
		transports: opts.Transports,
		materials:  mats,
		dailyWord:  opts.DailyWord,
	}
}

// CurrentLevel returns the runtime level override if set, else the
// configured level.
func (h *Handler) CurrentLevel() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.levelOverride != "" {
		return h.levelOverride
	}
	return h.cfg.Language.Level
}

// SetLevel installs a runtime level override.
func (h *Handler) SetLevel(level string) {
	h.mu.Lock()
	h.levelOverride = level
	h.mu.Unlock()
}

// Run consumes the inbound bus until the context is cancelled.
func (h *Handler) Run(ctx context.Context, messageBus *bus.MessageBus) error {
	slog.Info("Message handler started")
	for {
		msg, err := messageBus.ConsumeInbound(ctx)
		if err != nil {
			slog.Info("Message handler stopped")
			return err
		}
		h.Handle(ctx, msg)
	}
}

// Handle processes one inbound message.
func (h *Handler) Handle(ctx context.Context, msg *bus.InboundMessage) {
	t, ok := h.transports[msg.Channel]
	if !ok {
		slog.Warn("No transport for channel", "channel", msg.Channel)
		return
	}

	switch {
	case msg.Kind == bus.KindVoice:
		h.handleVoice(ctx, t, msg)
	case strings.HasPrefix(msg.Text, "/"):
		h.handleCommand(ctx, t, msg)
	case msg.ReplyToBot && h.handleReplyShortcut(ctx, t, msg):
		// handled as a pinyin/translate/pronounce shortcut
	default:
		h.handleText(ctx, t, msg)
	}
}

// handleText runs the main conversation flow for a text message.
func (h *Handler) handleText(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	h.store.Append(msg.ChatID, msg.SenderID, store.RoleUser, msg.Text, "")
	h.respond(ctx, t, msg, msg.Text)
}

// handleVoice transcribes a voice message, echoes the transcription, and
// then runs the conversation flow on the transcribed text.
func (h *Handler) handleVoice(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	_ = t.SendTyping(ctx, msg.ChatID)

	path, err := t.FetchVoice(ctx, msg.VoiceFileID)
	if err != nil {
		slog.Error("Voice download failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
		h.sendReply(ctx, t, msg, voiceFailReply)
		return
	}
	defer os.Remove(path)

	tr, err := h.provider.Transcribe(ctx, &provider.AudioRequest{
		FilePath: path,
		MimeType: "audio/ogg",
		Language: provider.LanguageCode(h.cfg.Language.Target),
	})
	if err != nil {
		slog.Error("Transcription failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
		h.sendReply(ctx, t, msg, voiceFailReply)
		return
	}

	h.sendReply(ctx, t, msg, fmt.Sprintf("🎤 I heard: %q", tr.Text))
	h.store.Append(msg.ChatID, msg.SenderID, store.RoleUser, "[Voice message]: "+tr.Text, "")
	h.respond(ctx, t, msg, tr.Text)
}

// respond generates a completion for input and delivers it instantly or via
// the delay scheduler. The user message must already be in the history.
func (h *Handler) respond(ctx context.Context, t channels.Transport, msg *bus.InboundMessage, input string) {
	response, err := h.complete(ctx, msg.ChatID, input)
	if err != nil {
		slog.Error("Completion failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
		h.sendReply(ctx, t, msg, tryAgainReply)
		return
	}

	if h.modes.IsInstant(msg.ChatID) {
		sentID, err := t.SendMessage(ctx, msg.ChatID, response, msg.MessageID)
		if err != nil {
			slog.Error("Instant delivery failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
			return
		}
		h.store.Append(msg.ChatID, "bot", store.RoleAssistant, response, "")
		h.store.RecordDelivered(msg.ChatID, sentID, response)
		return
	}

	d, _ := h.delay.Schedule(msg.ChatID, msg.MessageID, response, func(chatID, resp, replyTo string) error {
		// The request context is long gone when the timer fires.
		sentID, err := t.SendMessage(context.Background(), chatID, resp, replyTo)
		if err != nil {
			return err
		}
		h.store.Append(chatID, "bot", store.RoleAssistant, resp, "")
		h.store.RecordDelivered(chatID, sentID, resp)
		return nil
	})
	if h.cfg.Debug {
		slog.Debug("Response scheduled", "chat_id", msg.ChatID, "delay", delay.FormatDelay(d))
	}
}

// complete builds the completion input from the history window, with the new
// message as the tail exactly once, and calls the provider.
func (h *Handler) complete(ctx context.Context, chatID, input string) (string, error) {
	history := h.store.History(chatID, historyWindow)
	messages := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}
	if len(messages) == 0 || messages[len(messages)-1].Content != input {
		messages = append(messages, provider.Message{Role: store.RoleUser, Content: input})
	}

	resp, err := h.provider.Chat(ctx, &provider.ChatRequest{
		Messages:     messages,
		SystemPrompt: h.prompts.System(h.CurrentLevel(), h.materials()),
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	return resp.Content, nil
}

// sendReply sends text as an immediate reply to the triggering message.
// Failures are logged, not propagated.
func (h *Handler) sendReply(ctx context.Context, t channels.Transport, msg *bus.InboundMessage, text string) {
	if _, err := t.SendMessage(ctx, msg.ChatID, text, msg.MessageID); err != nil {
		slog.Error("Reply delivery failed", "chat_id", msg.ChatID, "trace_id", msg.TraceID, "error", err)
	}
}
