package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuban/yuban/internal/config"
	"github.com/yuban/yuban/internal/materials"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ yuban Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 yuban Status")
		fmt.Printf("Version: %s\n", version)

		path, err := config.ConfigPath()
		if err == nil {
			if _, statErr := os.Stat(path); statErr == nil {
				fmt.Println("Config:  ✓ Found (" + path + ")")
			} else {
				fmt.Println("Config:  ✗ Not found (defaults + environment will be used)")
			}
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ✗ Invalid: %v\n", err)
			return
		}

		fmt.Printf("Language: %s (level: %s)\n", cfg.Language.Target, cfg.Language.Level)
		fmt.Printf("Provider: %s\n", cfg.AI.Provider)
		if cfg.Channels.Telegram.Token != "" {
			fmt.Println("Telegram: ✓ Token configured")
		} else {
			fmt.Println("Telegram: ✗ No token")
		}
		if cfg.Channels.Slack.Enabled {
			fmt.Println("Slack:    ✓ Enabled")
		}
		fmt.Printf("Delay:    %d-%d seconds\n", cfg.Delay.MinSeconds, cfg.Delay.MaxSeconds)
		if cfg.Database.Enabled {
			fmt.Println("Database: ✓ Enabled (" + cfg.Database.Path + ")")
		} else {
			fmt.Println("Database: ✗ Disabled")
		}
		fmt.Printf("Materials: %d files in %s\n", materials.CountFiles(cfg.Materials.Dir), cfg.Materials.Dir)
	},
}
