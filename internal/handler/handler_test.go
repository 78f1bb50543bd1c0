package handler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/channels"
	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/delay"
	"github.com/yuban/yuban/internal/mode"
	"github.com/yuban/yuban/internal/prompt"
	"github.com/yuban/yuban/internal/provider"
	"github.com/yuban/yuban/internal/store"
)

// sentMessage is one recorded transport send.
type sentMessage struct {
	ChatID  string
	Text    string
	ReplyTo string
}

// fakeTransport records sends; safe for use from timer goroutines.
type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentMessage
	voices    [][]byte
	nextID    int
	voicePath string
	sendErr   error
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID, text, replyToID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.nextID++
	f.sent = append(f.sent, sentMessage{ChatID: chatID, Text: text, ReplyTo: replyToID})
	return strconv.Itoa(f.nextID), nil
}

func (f *fakeTransport) SendVoice(ctx context.Context, chatID string, audio []byte, mimeType string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voices = append(f.voices, audio)
	return nil
}

func (f *fakeTransport) SendTyping(ctx context.Context, chatID string) error { return nil }

func (f *fakeTransport) FetchVoice(ctx context.Context, fileID string) (string, error) {
	if f.voicePath == "" {
		return "", fmt.Errorf("no voice available")
	}
	return f.voicePath, nil
}

func (f *fakeTransport) messages() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentMessage, len(f.sent))
	copy(out, f.sent)
	return out
}

// fakeProvider answers with configurable canned responses.
type fakeProvider struct {
	mu         sync.Mutex
	chatFn     func(*provider.ChatRequest) (string, error)
	transcript string
	lastReq    *provider.ChatRequest
}

func (f *fakeProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	f.mu.Lock()
	f.lastReq = req
	fn := f.chatFn
	f.mu.Unlock()
	if fn != nil {
		content, err := fn(req)
		if err != nil {
			return nil, err
		}
		return &provider.ChatResponse{Content: content}, nil
	}
	return &provider.ChatResponse{Content: "Hello!"}, nil
}

func (f *fakeProvider) Transcribe(ctx context.Context, req *provider.AudioRequest) (*provider.AudioResponse, error) {
	if f.transcript == "" {
		return nil, fmt.Errorf("no transcription configured")
	}
	return &provider.AudioResponse{Text: f.transcript}, nil
}

func (f *fakeProvider) Speak(ctx context.Context, req *provider.TTSRequest) (*provider.TTSResponse, error) {
	return &provider.TTSResponse{AudioData: []byte("audio"), MimeType: "audio/ogg"}, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) request() *provider.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

type fixture struct {
	h     *Handler
	store *store.Store
	delay *delay.Scheduler
	modes *mode.Registry
	prov  *fakeProvider
	tr    *fakeTransport
}

func newFixture(t *testing.T, pick time.Duration) *fixture {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.AI.Gemini.APIKey = "test"
	st := store.New(store.Options{})
	sched := delay.New(delay.Config{Pick: func() time.Duration { return pick }})
	t.Cleanup(sched.CancelAll)
	modes := mode.NewRegistry()
	prov := &fakeProvider{}
	tr := &fakeTransport{}
	h := New(Options{
		Config:     cfg,
		Store:      st,
		Delay:      sched,
		Modes:      modes,
		Provider:   prov,
		Prompts:    prompt.Builder{Target: cfg.Language.Target, Native: cfg.Language.Native},
		Transports: map[string]channels.Transport{"telegram": tr},
	})
	return &fixture{h: h, store: st, delay: sched, modes: modes, prov: prov, tr: tr}
}

func inbound(text, messageID string) *bus.InboundMessage {
	return &bus.InboundMessage{
		Channel:   "telegram",
		ChatID:    "c1",
		SenderID:  "u1",
		MessageID: messageID,
		Kind:      bus.KindText,
		Text:      text,
	}
}

func TestDelayedConversationFlow(t *testing.T) {
	fx := newFixture(t, 30*time.Millisecond)

	fx.h.Handle(context.Background(), inbound("Hi", "m1"))

	// Before the timer fires: user message stored, nothing sent yet.
	h := fx.store.History("c1", 20)
	if len(h) != 1 || h[0].Role != store.RoleUser || h[0].Content != "Hi" {
		t.Fatalf("unexpected pre-delivery history: %+v", h)
	}
	if len(fx.tr.messages()) != 0 {
		t.Fatal("nothing should be sent before the delay elapses")
	}
	if !fx.delay.Query("c1").Pending {
		t.Fatal("a delivery should be pending")
	}

	time.Sleep(100 * time.Millisecond)

	sent := fx.tr.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(sent))
	}
	if sent[0].Text != "Hello!" || sent[0].ReplyTo != "m1" {
		t.Fatalf("unexpected delivery: %+v", sent[0])
	}

	h = fx.store.History("c1", 20)
	if len(h) != 2 || h[1].Role != store.RoleAssistant || h[1].Content != "Hello!" {
		t.Fatalf("assistant message missing after delivery: %+v", h)
	}
	if msg, ok := fx.store.LastBotMessage("c1"); !ok || msg != "Hello!" {
		t.Fatalf("LastBotMessage = %q, %v", msg, ok)
	}
	if fx.delay.Query("c1").Pending {
		t.Fatal("nothing should remain pending after delivery")
	}
}

func TestInstantConversationFlow(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.modes.SetInstant("c1", true)

	fx.h.Handle(context.Background(), inbound("Hi", "m1"))

	// Delivery is synchronous: done before Handle returned.
	sent := fx.tr.messages()
	if len(sent) != 1 || sent[0].Text != "Hello!" {
		t.Fatalf("expected synchronous delivery, got %+v", sent)
	}
	if fx.delay.PendingCount() != 0 {
		t.Fatal("instant mode must not touch the scheduler")
	}
	if len(fx.store.History("c1", 20)) != 2 {
		t.Fatal("history should hold user + assistant")
	}
}

func TestSupersededResponseDiscarded(t *testing.T) {
	fx := newFixture(t, 40*time.Millisecond)
	fx.prov.chatFn = func(req *provider.ChatRequest) (string, error) {
		return "re: " + req.Messages[len(req.Messages)-1].Content, nil
	}

	fx.h.Handle(context.Background(), inbound("first", "m1"))
	fx.h.Handle(context.Background(), inbound("second", "m2"))

	time.Sleep(120 * time.Millisecond)

	sent := fx.tr.messages()
	if len(sent) != 1 {
		t.Fatalf("expected only the superseding reply, got %d sends", len(sent))
	}
	if sent[0].Text != "re: second" {
		t.Fatalf("wrong reply delivered: %q", sent[0].Text)
	}

	// Both user turns stay in history; only the delivered reply is appended.
	h := fx.store.History("c1", 20)
	if len(h) != 3 {
		t.Fatalf("expected 2 user + 1 assistant messages, got %+v", h)
	}
}

func TestCompletionFailure(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.prov.chatFn = func(*provider.ChatRequest) (string, error) {
		return "", fmt.Errorf("model overloaded")
	}

	fx.h.Handle(context.Background(), inbound("Hi", "m1"))

	sent := fx.tr.messages()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "try again") {
		t.Fatalf("expected a try-again reply, got %+v", sent)
	}
	if fx.delay.PendingCount() != 0 {
		t.Fatal("nothing should be scheduled on completion failure")
	}

	// No assistant-side state is committed.
	h := fx.store.History("c1", 20)
	if len(h) != 1 || h[0].Role != store.RoleUser {
		t.Fatalf("unexpected history after failure: %+v", h)
	}
	if _, ok := fx.store.LastBotMessage("c1"); ok {
		t.Fatal("failure must not record a bot message")
	}
}

func TestCompletionInputTailExactlyOnce(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.modes.SetInstant("c1", true)

	fx.h.Handle(context.Background(), inbound("unique question", "m1"))

	req := fx.prov.request()
	if req == nil {
		t.Fatal("provider never called")
	}
	count := 0
	for _, m := range req.Messages {
		if m.Content == "unique question" {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("new message must appear exactly once in the input, got %d", count)
	}
	if tail := req.Messages[len(req.Messages)-1]; tail.Content != "unique question" {
		t.Fatalf("new message must be the tail, got %+v", tail)
	}
	if req.SystemPrompt == "" {
		t.Fatal("system prompt missing")
	}
}

func TestVoiceFlow(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.modes.SetInstant("c1", true)
	fx.prov.transcript = "你好"

	voice := filepath.Join(t.TempDir(), "v.ogg")
	if err := os.WriteFile(voice, []byte("opus"), 0o644); err != nil {
		t.Fatal(err)
	}
	fx.tr.voicePath = voice

	msg := inbound("", "m1")
	msg.Kind = bus.KindVoice
	msg.VoiceFileID = "f1"
	fx.h.Handle(context.Background(), msg)

	sent := fx.tr.messages()
	if len(sent) != 2 {
		t.Fatalf("expected echo + reply, got %d sends", len(sent))
	}
	if !strings.Contains(sent[0].Text, "🎤 I heard:") || !strings.Contains(sent[0].Text, "你好") {
		t.Fatalf("unexpected echo: %q", sent[0].Text)
	}

	h := fx.store.History("c1", 20)
	if len(h) != 2 || h[0].Content != "[Voice message]: 你好" {
		t.Fatalf("unexpected history: %+v", h)
	}
}

func TestVoiceFetchFailure(t *testing.T) {
	fx := newFixture(t, time.Hour)

	msg := inbound("", "m1")
	msg.Kind = bus.KindVoice
	msg.VoiceFileID = "f1"
	fx.h.Handle(context.Background(), msg)

	sent := fx.tr.messages()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "voice message") {
		t.Fatalf("expected a voice failure reply, got %+v", sent)
	}
	if len(fx.store.History("c1", 20)) != 0 {
		t.Fatal("failed voice intake must not touch the history")
	}
}

func TestInstantCommandToggle(t *testing.T) {
	fx := newFixture(t, time.Hour)

	fx.h.Handle(context.Background(), inbound("/instant", "m1"))
	if !fx.modes.IsInstant("c1") {
		t.Fatal("instant mode should be enabled")
	}
	sent := fx.tr.messages()
	if !strings.Contains(sent[0].Text, "Instant mode enabled") {
		t.Fatalf("unexpected reply: %q", sent[0].Text)
	}

	fx.h.Handle(context.Background(), inbound("/instant", "m2"))
	if fx.modes.IsInstant("c1") {
		t.Fatal("second toggle should disable instant mode")
	}
}

func TestLevelCommand(t *testing.T) {
	fx := newFixture(t, time.Hour)

	fx.h.Handle(context.Background(), inbound("/level", "m1"))
	if got := fx.tr.messages()[0].Text; !strings.Contains(got, "beginner") {
		t.Fatalf("status reply should show the current level: %q", got)
	}

	fx.h.Handle(context.Background(), inbound("/level advanced", "m2"))
	if fx.h.CurrentLevel() != "advanced" {
		t.Fatalf("level override not applied: %q", fx.h.CurrentLevel())
	}

	fx.h.Handle(context.Background(), inbound("/level expert", "m3"))
	if fx.h.CurrentLevel() != "advanced" {
		t.Fatal("invalid level must not change the override")
	}
	last := fx.tr.messages()
	if !strings.Contains(last[len(last)-1].Text, "Invalid level") {
		t.Fatal("invalid level should be reported")
	}
}

func TestPinyinCommandWithoutBotMessage(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.h.Handle(context.Background(), inbound("/pinyin", "m1"))
	if got := fx.tr.messages()[0].Text; !strings.Contains(got, "haven't sent any messages") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestPinyinCommand(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.store.RecordDelivered("c1", "m0", "你好")
	fx.prov.chatFn = func(*provider.ChatRequest) (string, error) {
		return "你(nǐ) 好(hǎo)", nil
	}

	fx.h.Handle(context.Background(), inbound("/pinyin", "m1"))
	got := fx.tr.messages()[0].Text
	if !strings.Contains(got, "📝 Pinyin") || !strings.Contains(got, "nǐ hǎo") {
		t.Fatalf("unexpected pinyin reply: %q", got)
	}
}

func TestPinyinCommandNonChinese(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.store.RecordDelivered("c1", "m0", "just english")

	fx.h.Handle(context.Background(), inbound("/pinyin", "m1"))
	if got := fx.tr.messages()[0].Text; !strings.Contains(got, "does not contain Chinese") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestReplyShortcutPinyin(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.prov.chatFn = func(*provider.ChatRequest) (string, error) {
		return "breakdown", nil
	}

	msg := inbound("pinyin please", "m1")
	msg.ReplyToBot = true
	msg.ReplyToText = "你好"
	fx.h.Handle(context.Background(), msg)

	sent := fx.tr.messages()
	if len(sent) != 1 || !strings.Contains(sent[0].Text, "📝 Pinyin") {
		t.Fatalf("expected a pinyin shortcut reply, got %+v", sent)
	}
	// Shortcuts must not enter the conversation history.
	if len(fx.store.History("c1", 20)) != 0 {
		t.Fatal("shortcut replies must not touch the history")
	}
}

func TestReplyToBotWithoutKeywordIsConversation(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.modes.SetInstant("c1", true)

	msg := inbound("我很好", "m1")
	msg.ReplyToBot = true
	msg.ReplyToText = "你好吗？"
	fx.h.Handle(context.Background(), msg)

	h := fx.store.History("c1", 20)
	if len(h) != 2 || h[0].Content != "我很好" {
		t.Fatalf("plain replies should run the conversation flow: %+v", h)
	}
}

func TestPronounceCommand(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.store.RecordDelivered("c1", "m0", "你好")

	fx.h.Handle(context.Background(), inbound("/pronounce", "m1"))

	fx.tr.mu.Lock()
	voices := len(fx.tr.voices)
	fx.tr.mu.Unlock()
	if voices != 1 {
		t.Fatalf("expected 1 voice send, got %d", voices)
	}
}

func TestStatusCommandShowsPending(t *testing.T) {
	fx := newFixture(t, time.Hour)

	fx.h.Handle(context.Background(), inbound("Hi", "m1"))
	fx.h.Handle(context.Background(), inbound("/status", "m2"))

	sent := fx.tr.messages()
	got := sent[len(sent)-1].Text
	if !strings.Contains(got, "Bot Status") || !strings.Contains(got, "Pending response in:") {
		t.Fatalf("status should report the pending response: %q", got)
	}
}

func TestUnknownCommand(t *testing.T) {
	fx := newFixture(t, time.Hour)
	fx.h.Handle(context.Background(), inbound("/bogus", "m1"))
	if got := fx.tr.messages()[0].Text; !strings.Contains(got, "Unknown command") {
		t.Fatalf("unexpected reply: %q", got)
	}
}

func TestUnknownChannelDropped(t *testing.T) {
	fx := newFixture(t, time.Hour)
	msg := inbound("Hi", "m1")
	msg.Channel = "carrier-pigeon"
	fx.h.Handle(context.Background(), msg)

	if len(fx.tr.messages()) != 0 || len(fx.store.History("c1", 20)) != 0 {
		t.Fatal("messages from unknown channels must be dropped")
	}
}
