package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/yuban/yuban/internal/prompt"
	"github.com/yuban/yuban/internal/provider"
)

// WordLog persists sent daily words so repeats can be avoided. Satisfied by
// store.SQLiteLog; nil disables persistence.
type WordLog interface {
	SaveDailyWord(word, pinyin, translation, fullContent string) error
	PreviousDailyWords(limit int) ([]string, error)
}

// SendFunc delivers the generated daily word to the configured chat.
type SendFunc func(ctx context.Context, text string) error

// Options configures the daily word scheduler.
type Options struct {
	Cron     string
	Timezone string
	Provider provider.LLMProvider
	Prompts  prompt.Builder
	// Level returns the learner's current level at fire time.
	Level func() string
	// Materials returns the current reference-materials block at fire time.
	Materials func() string
	Log       WordLog
	Send      SendFunc
}

// DailyWord generates and delivers a word of the day on a cron schedule.
type DailyWord struct {
	expr      *CronExpr
	loc       *time.Location
	provider  provider.LLMProvider
	prompts   prompt.Builder
	level     func() string
	materials func() string
	log       WordLog
	send      SendFunc
	lastFire  time.Time
}

// New creates the daily word scheduler. The cron expression and timezone are
// validated here, before any scheduling occurs.
func New(opts Options) (*DailyWord, error) {
	expr, err := ParseCron(opts.Cron)
	if err != nil {
		return nil, err
	}
	loc := time.Local
	if opts.Timezone != "" {
		loc, err = time.LoadLocation(opts.Timezone)
		if err != nil {
			return nil, fmt.Errorf("load timezone %q: %w", opts.Timezone, err)
		}
	}
	level := opts.Level
	if level == nil {
		level = func() string { return "beginner" }
	}
	mats := opts.Materials
	if mats == nil {
		mats = func() string { return "" }
	}
	return &DailyWord{
		expr:      expr,
		loc:       loc,
		provider:  opts.Provider,
		prompts:   opts.Prompts,
		level:     level,
		materials: mats,
		log:       opts.Log,
		send:      opts.Send,
	}, nil
}

// Run starts the tick loop. Blocks until the context is cancelled.
func (d *DailyWord) Run(ctx context.Context) error {
	slog.Info("Daily word scheduler started", "timezone", d.loc.String(), "next", d.expr.Next(time.Now().In(d.loc)))
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Daily word scheduler stopped")
			return ctx.Err()
		case t := <-ticker.C:
			d.tick(ctx, t.In(d.loc))
		}
	}
}

// tick fires the job at most once per matching minute.
func (d *DailyWord) tick(ctx context.Context, now time.Time) {
	if !d.expr.Matches(now) {
		return
	}
	minute := now.Truncate(time.Minute)
	if minute.Equal(d.lastFire) {
		return
	}
	d.lastFire = minute

	slog.Info("Sending daily word")
	content, err := d.Generate(ctx)
	if err != nil {
		slog.Error("Daily word generation failed", "error", err)
		return
	}
	if err := d.send(ctx, content); err != nil {
		slog.Error("Daily word delivery failed", "error", err)
	}
}

var (
	wordRe    = regexp.MustCompile(`Word of the Day\s*\n+([^\n]+)`)
	pinyinRe  = regexp.MustCompile(`Pinyin:\s*([^\n]+)`)
	meaningRe = regexp.MustCompile(`Meaning:\s*([^\n]+)`)
)

// Generate produces a daily word, persisting it when a log is configured.
// Shared by the cron path and the /word command's manual trigger.
func (d *DailyWord) Generate(ctx context.Context) (string, error) {
	var previous []string
	if d.log != nil {
		words, err := d.log.PreviousDailyWords(30)
		if err != nil {
			slog.Warn("Failed to load previous daily words", "error", err)
		} else {
			previous = words
		}
	}

	p := d.prompts.DailyWord(d.level(), previous, d.materials())
	resp, err := d.provider.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{{Role: "user", Content: p}},
	})
	if err != nil {
		return "", fmt.Errorf("generate daily word: %w", err)
	}
	content := resp.Content

	if d.log != nil {
		word, pin, translation := extractWordFields(content)
		if err := d.log.SaveDailyWord(word, pin, translation, content); err != nil {
			slog.Warn("Failed to persist daily word", "error", err)
		}
	}
	return content, nil
}

// extractWordFields pulls the structured bits out of the generated content
// for database storage. Missing fields degrade to placeholders.
func extractWordFields(content string) (word, pin, translation string) {
	word = "Unknown"
	if m := wordRe.FindStringSubmatch(content); m != nil {
		word = trimSpace(m[1])
	}
	if m := pinyinRe.FindStringSubmatch(content); m != nil {
		pin = trimSpace(m[1])
	}
	if m := meaningRe.FindStringSubmatch(content); m != nil {
		translation = trimSpace(m[1])
	}
	return word, pin, translation
}

func trimSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
