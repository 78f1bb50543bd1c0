package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/config"
)

const telegramAPIBase = "https://api.telegram.org"

// TelegramChannel talks to the Telegram Bot API directly over HTTP, using
// long polling for updates.
type TelegramChannel struct {
	BaseChannel
	config config.TelegramConfig
	client *http.Client
	botID  int64
	cancel context.CancelFunc
}

// NewTelegramChannel creates a Telegram channel.
func NewTelegramChannel(cfg config.TelegramConfig, messageBus *bus.MessageBus) *TelegramChannel {
	return &TelegramChannel{
		BaseChannel: BaseChannel{Bus: messageBus},
		config:      cfg,
		client:      &http.Client{Timeout: 65 * time.Second},
	}
}

func (c *TelegramChannel) Name() string { return "telegram" }

// Start verifies the token via getMe and launches the polling loop.
func (c *TelegramChannel) Start(ctx context.Context) error {
	if !c.config.Enabled {
		return nil
	}
	if c.config.Token == "" {
		return fmt.Errorf("telegram: token not configured")
	}

	var me struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	}
	if err := c.call(ctx, "getMe", nil, &me); err != nil {
		return fmt.Errorf("telegram: getMe: %w", err)
	}
	c.botID = me.ID
	slog.Info("Telegram channel started", "bot", me.Username)

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	go c.poll(pollCtx)
	return nil
}

func (c *TelegramChannel) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

// Wire types mirroring the subset of the Bot API payload we use.
type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message"`
}

type telegramMessage struct {
	MessageID      int64            `json:"message_id"`
	From           *telegramUser    `json:"from"`
	Chat           telegramChat     `json:"chat"`
	Text           string           `json:"text"`
	Voice          *telegramVoice   `json:"voice"`
	ReplyToMessage *telegramMessage `json:"reply_to_message"`
}

type telegramUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type telegramChat struct {
	ID int64 `json:"id"`
}

type telegramVoice struct {
	FileID   string `json:"file_id"`
	Duration int    `json:"duration"`
}

// poll runs the long-polling loop until the context is cancelled.
func (c *TelegramChannel) poll(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			slog.Info("Telegram polling stopped")
			return
		default:
		}

		var updates []telegramUpdate
		params := map[string]any{
			"offset":          offset,
			"timeout":         30,
			"allowed_updates": []string{"message"},
		}
		if err := c.call(ctx, "getUpdates", params, &updates); err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("Telegram getUpdates failed", "error", err)
			time.Sleep(5 * time.Second)
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			c.handleUpdate(u)
		}
	}
}

// handleUpdate converts one update into an inbound bus message.
func (c *TelegramChannel) handleUpdate(u telegramUpdate) {
	m := u.Message
	if m == nil || m.From == nil {
		return
	}
	senderID := strconv.FormatInt(m.From.ID, 10)
	if !c.allowed(senderID, m.From.Username) {
		slog.Debug("Telegram message from unauthorized sender dropped", "sender", senderID)
		return
	}

	msg := &bus.InboundMessage{
		Channel:   c.Name(),
		ChatID:    strconv.FormatInt(m.Chat.ID, 10),
		SenderID:  senderID,
		MessageID: strconv.FormatInt(m.MessageID, 10),
		TraceID:   uuid.NewString(),
		Kind:      bus.KindText,
		Text:      m.Text,
	}
	if m.Voice != nil {
		msg.Kind = bus.KindVoice
		msg.VoiceFileID = m.Voice.FileID
	}
	if m.ReplyToMessage != nil {
		msg.ReplyToText = m.ReplyToMessage.Text
		msg.ReplyToBot = m.ReplyToMessage.From != nil && m.ReplyToMessage.From.ID == c.botID
	}
	c.Bus.PublishInbound(msg)
}

// allowed checks the sender against the allow-list. An empty list with
// RestrictToAllowed unset admits everyone.
func (c *TelegramChannel) allowed(senderID, username string) bool {
	if c.config.UserID != "" && (senderID == c.config.UserID || username == c.config.UserID) {
		return true
	}
	for _, a := range c.config.AllowFrom {
		if a == senderID || a == username {
			return true
		}
	}
	if c.config.RestrictToAllowed {
		return false
	}
	return c.config.UserID == "" && len(c.config.AllowFrom) == 0
}

// SendMessage sends text and returns the new message's id.
func (c *TelegramChannel) SendMessage(ctx context.Context, chatID, text, replyToID string) (string, error) {
	params := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if replyToID != "" {
		params["reply_to_message_id"] = replyToID
	}
	var sent struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call(ctx, "sendMessage", params, &sent); err != nil {
		return "", err
	}
	return strconv.FormatInt(sent.MessageID, 10), nil
}

// SendVoice uploads audio as a voice message.
func (c *TelegramChannel) SendVoice(ctx context.Context, chatID string, audio []byte, mimeType string) error {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if err := w.WriteField("chat_id", chatID); err != nil {
		return err
	}
	part, err := w.CreateFormFile("voice", "voice"+extForMime(mimeType))
	if err != nil {
		return err
	}
	if _, err := part.Write(audio); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVoice"), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("telegram sendVoice status %d: %s", resp.StatusCode, data)
	}
	return nil
}

// SendTyping shows the typing indicator for a few seconds.
func (c *TelegramChannel) SendTyping(ctx context.Context, chatID string) error {
	return c.call(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	}, nil)
}

// FetchVoice downloads a voice file to a temporary .ogg file.
func (c *TelegramChannel) FetchVoice(ctx context.Context, fileID string) (string, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call(ctx, "getFile", map[string]any{"file_id": fileID}, &file); err != nil {
		return "", fmt.Errorf("telegram getFile: %w", err)
	}

	downloadURL := fmt.Sprintf("%s/file/bot%s/%s", telegramAPIBase, c.config.Token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("telegram file download status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "yuban-voice-*.ogg")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

// call issues one Bot API method and decodes the result into out.
func (c *TelegramChannel) call(ctx context.Context, method string, params map[string]any, out any) error {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL(method), body)
	if err != nil {
		return err
	}
	if params != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("telegram %s: %s", method, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return nil
}

func (c *TelegramChannel) methodURL(method string) string {
	return telegramAPIBase + "/bot" + url.PathEscape(c.config.Token) + "/" + method
}

func extForMime(mimeType string) string {
	switch mimeType {
	case "audio/mp3", "audio/mpeg":
		return ".mp3"
	default:
		return ".ogg"
	}
}
