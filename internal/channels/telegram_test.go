package channels

import (
	"context"
	"testing"
	"time"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/config"
)

func testUpdate(senderID int64, username, text string) telegramUpdate {
	return telegramUpdate{
		UpdateID: 1,
		Message: &telegramMessage{
			MessageID: 42,
			From:      &telegramUser{ID: senderID, Username: username},
			Chat:      telegramChat{ID: 100},
			Text:      text,
		},
	}
}

func consume(t *testing.T, b *bus.MessageBus) *bus.InboundMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	msg, err := b.ConsumeInbound(ctx)
	if err != nil {
		t.Fatalf("no message published: %v", err)
	}
	return msg
}

func TestHandleUpdatePublishes(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{}, b)

	c.handleUpdate(testUpdate(7, "alice", "你好"))

	msg := consume(t, b)
	if msg.Channel != "telegram" || msg.ChatID != "100" || msg.SenderID != "7" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.MessageID != "42" || msg.Text != "你好" || msg.Kind != bus.KindText {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.TraceID == "" {
		t.Fatal("trace id missing")
	}
}

func TestHandleUpdateVoice(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{}, b)

	u := testUpdate(7, "alice", "")
	u.Message.Voice = &telegramVoice{FileID: "voice-1", Duration: 3}
	c.handleUpdate(u)

	msg := consume(t, b)
	if msg.Kind != bus.KindVoice || msg.VoiceFileID != "voice-1" {
		t.Fatalf("voice fields not propagated: %+v", msg)
	}
}

func TestHandleUpdateReplyToBot(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{}, b)
	c.botID = 999

	u := testUpdate(7, "alice", "pinyin")
	u.Message.ReplyToMessage = &telegramMessage{
		From: &telegramUser{ID: 999},
		Text: "你好",
	}
	c.handleUpdate(u)

	msg := consume(t, b)
	if !msg.ReplyToBot || msg.ReplyToText != "你好" {
		t.Fatalf("reply fields not propagated: %+v", msg)
	}
}

func TestHandleUpdateReplyToOther(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{}, b)
	c.botID = 999

	u := testUpdate(7, "alice", "pinyin")
	u.Message.ReplyToMessage = &telegramMessage{
		From: &telegramUser{ID: 123},
		Text: "some other user's message",
	}
	c.handleUpdate(u)

	if msg := consume(t, b); msg.ReplyToBot {
		t.Fatal("reply to a non-bot message must not set ReplyToBot")
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name   string
		cfg    config.TelegramConfig
		sender string
		user   string
		want   bool
	}{
		{"open bot admits everyone", config.TelegramConfig{}, "7", "alice", true},
		{"owner by id", config.TelegramConfig{UserID: "7"}, "7", "alice", true},
		{"owner by username", config.TelegramConfig{UserID: "alice"}, "7", "alice", true},
		{"non-owner rejected when owner set", config.TelegramConfig{UserID: "8"}, "7", "alice", false},
		{"allow-list by id", config.TelegramConfig{AllowFrom: []string{"7"}}, "7", "alice", true},
		{"allow-list miss", config.TelegramConfig{AllowFrom: []string{"9"}}, "7", "alice", false},
		{"restricted empty list rejects", config.TelegramConfig{RestrictToAllowed: true}, "7", "alice", false},
	}
	for _, tc := range tests {
		c := NewTelegramChannel(tc.cfg, bus.NewMessageBus())
		if got := c.allowed(tc.sender, tc.user); got != tc.want {
			t.Errorf("%s: allowed = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestHandleUpdateDropsUnauthorized(t *testing.T) {
	b := bus.NewMessageBus()
	c := NewTelegramChannel(config.TelegramConfig{UserID: "1"}, b)

	c.handleUpdate(testUpdate(7, "mallory", "hi"))
	if b.InboundSize() != 0 {
		t.Fatal("unauthorized sender must be dropped")
	}
}
