package handler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/channels"
	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/delay"
	"github.com/yuban/yuban/internal/materials"
	"github.com/yuban/yuban/internal/pinyin"
	"github.com/yuban/yuban/internal/provider"
	"github.com/yuban/yuban/internal/store"
)

// Keywords that trigger reply shortcuts when replying to a bot message.
var (
	pinyinKeywords    = []string{"pinyin", "拼音", "pīnyīn", "romanization"}
	translateKeywords = []string{"translate", "翻译", "translation", "翻譯", "meaning", "意思"}
	pronounceKeywords = []string{"pronounce", "发音", "pronunciation", "發音", "audio", "speak", "读"}
)

// handleCommand routes a /command message. Command responses always go out
// immediately; the delay scheduler is for conversation replies only.
func (h *Handler) handleCommand(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	fields := strings.Fields(msg.Text)
	if len(fields) == 0 {
		return
	}
	// Telegram group commands arrive as /cmd@botname.
	cmd, _, _ := strings.Cut(fields[0], "@")

	switch cmd {
	case "/start":
		h.sendReply(ctx, t, msg, h.startText())
	case "/help":
		h.sendReply(ctx, t, msg, h.helpText())
	case "/pinyin":
		h.cmdPinyin(ctx, t, msg)
	case "/translate":
		h.cmdTranslate(ctx, t, msg)
	case "/pronounce":
		h.cmdPronounce(ctx, t, msg)
	case "/word":
		h.cmdWord(ctx, t, msg)
	case "/level":
		h.cmdLevel(ctx, t, msg, fields[1:])
	case "/instant":
		h.cmdInstant(ctx, t, msg)
	case "/status":
		h.cmdStatus(ctx, t, msg)
	default:
		h.sendReply(ctx, t, msg, "Unknown command. Use /help to see available commands.")
	}
}

// handleReplyShortcut checks a reply-to-bot message for shortcut keywords
// and answers about the replied-to text. Returns false when the message is
// not a shortcut, so it falls through to the conversation flow.
func (h *Handler) handleReplyShortcut(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) bool {
	if msg.ReplyToText == "" {
		return false
	}
	userText := strings.ToLower(strings.TrimSpace(msg.Text))

	if containsAny(userText, pinyinKeywords) {
		_ = t.SendTyping(ctx, msg.ChatID)
		h.sendReply(ctx, t, msg, h.pinyinFor(ctx, msg.ReplyToText))
		return true
	}
	if containsAny(userText, translateKeywords) {
		_ = t.SendTyping(ctx, msg.ChatID)
		h.sendReply(ctx, t, msg, h.translationFor(ctx, msg.ReplyToText))
		return true
	}
	if containsAny(userText, pronounceKeywords) {
		h.sendPronunciation(ctx, t, msg, msg.ReplyToText)
		return true
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// cmdPinyin answers with pinyin for the bot's last message.
func (h *Handler) cmdPinyin(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	last, ok := h.store.LastBotMessage(msg.ChatID)
	if !ok {
		h.sendReply(ctx, t, msg, noBotMessageYet)
		return
	}
	if !pinyin.ContainsChinese(last) {
		h.sendReply(ctx, t, msg, "The last message does not contain Chinese characters.")
		return
	}
	_ = t.SendTyping(ctx, msg.ChatID)
	h.sendReply(ctx, t, msg, h.pinyinFor(ctx, last))
}

// pinyinFor combines the local conversion with a model breakdown, falling
// back to the local conversion alone when the model call fails.
func (h *Handler) pinyinFor(ctx context.Context, text string) string {
	if !pinyin.ContainsChinese(text) {
		return "This text does not contain Chinese characters."
	}
	quick := pinyin.ToPinyin(text)

	resp, err := h.provider.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: store.RoleUser, Content: h.prompts.Pinyin(text)}},
	})
	if err != nil {
		slog.Warn("Pinyin breakdown failed, using local conversion", "error", err)
		return "📝 Pinyin\n\n" + quick
	}
	return fmt.Sprintf("📝 Pinyin\n\nQuick: %s\n\n%s", quick, resp.Content)
}

// cmdTranslate answers with a translation of the bot's last message.
func (h *Handler) cmdTranslate(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	last, ok := h.store.LastBotMessage(msg.ChatID)
	if !ok {
		h.sendReply(ctx, t, msg, noBotMessageYet)
		return
	}
	_ = t.SendTyping(ctx, msg.ChatID)
	h.sendReply(ctx, t, msg, h.translationFor(ctx, last))
}

func (h *Handler) translationFor(ctx context.Context, text string) string {
	resp, err := h.provider.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: store.RoleUser, Content: h.prompts.Translation(text)}},
	})
	if err != nil {
		slog.Error("Translation failed", "error", err)
		return "Sorry, I had trouble generating the translation. Please try again."
	}
	return fmt.Sprintf("🔤 Translation\n\nOriginal:\n%s\n\n%s", text, resp.Content)
}

// cmdPronounce sends a voice pronunciation of the bot's last message.
func (h *Handler) cmdPronounce(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	last, ok := h.store.LastBotMessage(msg.ChatID)
	if !ok {
		h.sendReply(ctx, t, msg, noBotMessageYet)
		return
	}
	h.sendPronunciation(ctx, t, msg, last)
}

func (h *Handler) sendPronunciation(ctx context.Context, t channels.Transport, msg *bus.InboundMessage, text string) {
	resp, err := h.provider.Speak(ctx, &provider.TTSRequest{Text: text})
	if err != nil {
		slog.Error("Pronunciation failed", "error", err)
		h.sendReply(ctx, t, msg, "Sorry, I could not generate the pronunciation. The TTS service may be unavailable.")
		return
	}
	if err := t.SendVoice(ctx, msg.ChatID, resp.AudioData, resp.MimeType); err != nil {
		slog.Error("Voice delivery failed", "chat_id", msg.ChatID, "error", err)
		h.sendReply(ctx, t, msg, "Sorry, I could not send the pronunciation audio.")
	}
}

// cmdWord triggers the daily word on demand.
func (h *Handler) cmdWord(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	if h.dailyWord == nil {
		h.sendReply(ctx, t, msg, "The daily word is not configured.")
		return
	}
	_ = t.SendTyping(ctx, msg.ChatID)
	content, err := h.dailyWord.Generate(ctx)
	if err != nil {
		slog.Error("Daily word generation failed", "error", err)
		h.sendReply(ctx, t, msg, "Sorry, I had trouble generating today's word. Please try again.")
		return
	}
	h.sendReply(ctx, t, msg, content)
}

// cmdLevel shows the current level or installs an override.
func (h *Handler) cmdLevel(ctx context.Context, t channels.Transport, msg *bus.InboundMessage, args []string) {
	if len(args) == 0 {
		h.sendReply(ctx, t, msg, fmt.Sprintf(`📊 Current learning level: %s

To change your level, use:
/level beginner
/level intermediate
/level advanced`, h.CurrentLevel()))
		return
	}

	level := strings.ToLower(args[0])
	switch level {
	case config.LevelBeginner, config.LevelIntermediate, config.LevelAdvanced:
		h.SetLevel(level)
		h.sendReply(ctx, t, msg, fmt.Sprintf("✅ Learning level changed to: %s\n\nI'll adjust my responses accordingly!", level))
	default:
		h.sendReply(ctx, t, msg, "Invalid level. Please use: beginner, intermediate, or advanced")
	}
}

// cmdInstant toggles instant mode for the conversation.
func (h *Handler) cmdInstant(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	if h.modes.Toggle(msg.ChatID) {
		h.sendReply(ctx, t, msg, "⚡ Instant mode enabled\n\nI'll respond immediately to your messages. Use /instant again to switch back to delayed responses.")
		return
	}
	min := h.cfg.Delay.MinSeconds / 60
	max := h.cfg.Delay.MaxSeconds / 60
	h.sendReply(ctx, t, msg, fmt.Sprintf("⏰ Instant mode disabled\n\nResponses will now be delayed (%d-%d minutes) to simulate texting with a real language partner.", min, max))
}

// cmdStatus reports bot configuration and the pending-response state.
func (h *Handler) cmdStatus(ctx context.Context, t channels.Transport, msg *bus.InboundMessage) {
	var sb strings.Builder
	fmt.Fprintf(&sb, `📊 Bot Status

Language Settings
• Target: %s
• Native: %s
• Level: %s

AI Provider
• Provider: %s
• Model: %s

Response Mode
• Instant mode: %s
• Delay range: %d-%d minutes
`,
		h.cfg.Language.Target, h.cfg.Language.Native, h.CurrentLevel(),
		h.cfg.AI.Provider, h.modelName(),
		onOff(h.modes.IsInstant(msg.ChatID)),
		h.cfg.Delay.MinSeconds/60, h.cfg.Delay.MaxSeconds/60)

	if st := h.delay.Query(msg.ChatID); st.Pending {
		fmt.Fprintf(&sb, "• Pending response in: %s\n", delay.FormatDelay(st.Remaining))
	}

	fmt.Fprintf(&sb, `
Daily Word
• Schedule: %s
• Timezone: %s

Database
• Enabled: %s

Reference Materials
• Directory: %s
• Files loaded: %d
`,
		h.cfg.DailyWord.Cron, h.cfg.DailyWord.Timezone,
		yesNo(h.cfg.Database.Enabled),
		h.cfg.Materials.Dir, materials.CountFiles(h.cfg.Materials.Dir))

	h.sendReply(ctx, t, msg, sb.String())
}

func (h *Handler) modelName() string {
	if h.cfg.AI.Provider == config.ProviderOpenAI {
		return h.cfg.AI.OpenAI.Model
	}
	return h.cfg.AI.Gemini.Model
}

func (h *Handler) startText() string {
	return fmt.Sprintf(`👋 Welcome to the Language Learning Bot!

I'm here to help you practice %[1]s. Let's start a conversation!

Use /help to see all available commands.

Ready to practice? Just send me a message in %[1]s or %[2]s!`, h.cfg.Language.Target, h.cfg.Language.Native)
}

func (h *Handler) helpText() string {
	return fmt.Sprintf(`🌏 Language Learning Bot

I'm here to help you learn %[1]s! Here's what I can do:

Conversation
Just send me a message in %[1]s or %[2]s and I'll respond naturally. Responses are delayed (%[3]d-%[4]d min) to make it feel like texting a real language partner.

Commands
/pinyin - Get pinyin for my last message
/translate - Get translation and breakdown of my last message
/pronounce - Get audio pronunciation of my last message
/word - Get today's word of the day
/level - Check or change your learning level
/instant - Toggle instant responses (no delay)
/status - Check bot status
/help - Show this help message

Reply Features
Reply to any of my messages with:
• "pinyin" or "拼音" - Get pinyin
• "translate" or "翻译" - Get translation
• "pronounce" or "发音" - Get audio

Reference Materials
Add your tutor notes (.txt, .md) and lesson presentations (.pptx, .docx) to the reference materials folder. I'll use them to personalize our conversations!

Daily Word
I'll send you a new word or phrase every day at your scheduled time.

Happy learning! 加油！💪`,
		h.cfg.Language.Target, h.cfg.Language.Native,
		h.cfg.Delay.MinSeconds/60, h.cfg.Delay.MaxSeconds/60)
}

func onOff(v bool) string {
	if v {
		return "⚡ ON"
	}
	return "⏰ OFF"
}

func yesNo(v bool) string {
	if v {
		return "✅ Yes"
	}
	return "❌ No"
}
