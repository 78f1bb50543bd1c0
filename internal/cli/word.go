package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/materials"
	"github.com/yuban/yuban/internal/prompt"
	"github.com/yuban/yuban/internal/provider"
	"github.com/yuban/yuban/internal/scheduler"
	"github.com/yuban/yuban/internal/store"
)

var wordCmd = &cobra.Command{
	Use:   "word",
	Short: "Generate a word of the day and print it",
	Run:   runWord,
}

func runWord(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	prov, err := provider.Resolve(cfg)
	if err != nil {
		fmt.Printf("Provider error: %v\n", err)
		os.Exit(1)
	}

	var wordLog scheduler.WordLog
	if cfg.Database.Enabled {
		dbLog, err := store.OpenSQLite(cfg.Database.Path)
		if err != nil {
			fmt.Printf("Database warning: %v (continuing without history)\n", err)
		} else {
			defer dbLog.Close()
			wordLog = dbLog
		}
	}

	mats, _ := materials.Load(cfg.Materials.Dir)

	dailyWord, err := scheduler.New(scheduler.Options{
		Cron:     cfg.DailyWord.Cron,
		Timezone: cfg.DailyWord.Timezone,
		Provider: prov,
		Prompts: prompt.Builder{
			Target: cfg.Language.Target,
			Native: cfg.Language.Native,
		},
		Level:     func() string { return cfg.Language.Level },
		Materials: func() string { return mats },
		Log:       wordLog,
	})
	if err != nil {
		fmt.Printf("Scheduler error: %v\n", err)
		os.Exit(1)
	}

	content, err := dailyWord.Generate(context.Background())
	if err != nil {
		fmt.Printf("Generation error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(content)
}
