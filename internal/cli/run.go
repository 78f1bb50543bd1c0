package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yuban/yuban/internal/bus"
	"github.com/yuban/yuban/internal/channels"
	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/delay"
	"github.com/yuban/yuban/internal/handler"
	"github.com/yuban/yuban/internal/materials"
	"github.com/yuban/yuban/internal/mode"
	"github.com/yuban/yuban/internal/prompt"
	"github.com/yuban/yuban/internal/provider"
	"github.com/yuban/yuban/internal/scheduler"
	"github.com/yuban/yuban/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	Run:   runBot,
}

func runBot(cmd *cobra.Command, args []string) {
	printHeader("🌏 yuban")
	fmt.Println("Starting yuban...")

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistent log, when enabled.
	var dbLog *store.SQLiteLog
	storeOpts := store.Options{}
	if cfg.Database.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
			fmt.Printf("Database error: %v\n", err)
			os.Exit(1)
		}
		dbLog, err = store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			fmt.Printf("Database error: %v\n", err)
			os.Exit(1)
		}
		defer dbLog.Close()
		storeOpts.Log = dbLog
		fmt.Println("Database: ✓ Enabled (" + cfg.Database.Path + ")")
	}

	st := store.New(storeOpts)
	sched := delay.New(delay.Config{
		MinSeconds: cfg.Delay.MinSeconds,
		MaxSeconds: cfg.Delay.MaxSeconds,
	})
	modes := mode.NewRegistry()

	prov, err := provider.Resolve(cfg)
	if err != nil {
		fmt.Printf("Provider error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("AI provider: %s\n", prov.Name())

	prompts := prompt.Builder{
		Target: cfg.Language.Target,
		Native: cfg.Language.Native,
	}

	// Reference materials, reloaded when the directory changes.
	var matsMu sync.RWMutex
	mats, err := materials.Load(cfg.Materials.Dir)
	if err != nil {
		fmt.Printf("Materials warning: %v\n", err)
	}
	getMaterials := func() string {
		matsMu.RLock()
		defer matsMu.RUnlock()
		return mats
	}
	go materials.Watch(ctx, cfg.Materials.Dir, 30*time.Second, func() {
		reloaded, err := materials.Load(cfg.Materials.Dir)
		if err != nil {
			slog.Warn("Materials reload failed", "error", err)
			return
		}
		matsMu.Lock()
		mats = reloaded
		matsMu.Unlock()
	})

	msgBus := bus.NewMessageBus()

	tg := channels.NewTelegramChannel(cfg.Channels.Telegram, msgBus)
	transports := map[string]channels.Transport{tg.Name(): tg}
	active := []channels.Channel{tg}
	if cfg.Channels.Slack.Enabled {
		sl := channels.NewSlackChannel(cfg.Channels.Slack, msgBus)
		transports[sl.Name()] = sl
		active = append(active, sl)
	}

	// The daily word goes to the owner's Telegram chat.
	var h *handler.Handler
	var wordLog scheduler.WordLog
	if dbLog != nil {
		wordLog = dbLog
	}
	dailyWord, err := scheduler.New(scheduler.Options{
		Cron:      cfg.DailyWord.Cron,
		Timezone:  cfg.DailyWord.Timezone,
		Provider:  prov,
		Prompts:   prompts,
		Level:     func() string { return h.CurrentLevel() },
		Materials: getMaterials,
		Log:       wordLog,
		Send: func(ctx context.Context, text string) error {
			if cfg.Channels.Telegram.UserID == "" {
				return fmt.Errorf("no telegram user configured for the daily word")
			}
			_, err := tg.SendMessage(ctx, cfg.Channels.Telegram.UserID, text, "")
			return err
		},
	})
	if err != nil {
		fmt.Printf("Scheduler error: %v\n", err)
		os.Exit(1)
	}

	h = handler.New(handler.Options{
		Config:     cfg,
		Store:      st,
		Delay:      sched,
		Modes:      modes,
		Provider:   prov,
		Prompts:    prompts,
		Transports: transports,
		Materials:  getMaterials,
		DailyWord:  dailyWord,
	})

	for _, ch := range active {
		if err := ch.Start(ctx); err != nil {
			fmt.Printf("Channel error (%s): %v\n", ch.Name(), err)
			os.Exit(1)
		}
	}
	go dailyWord.Run(ctx)
	go h.Run(ctx, msgBus)

	fmt.Println("yuban is running. Press Ctrl+C to stop.")
	<-ctx.Done()

	fmt.Println("\nShutting down...")
	for _, ch := range active {
		_ = ch.Stop()
	}
	// Pending responses are dropped, never delivered after shutdown begins.
	sched.CancelAll()
	st.ClearAll()
	fmt.Println("Goodbye! 再见!")
}
