// Package cli implements the yuban command line interface.
package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/yuban/yuban/internal/cli.version=1.2.3"
	version = "1.0.0"
	logo    = "\n" +
		"                  _                 \n" +
		" _   _ _   _     | |__   __ _ _ __  \n" +
		"| | | | | | |    | '_ \\ / _` | '_ \\ \n" +
		"| |_| | |_| |    | |_) | (_| | | | |\n" +
		" \\__, |\\__,_|    |_.__/ \\__,_|_| |_|\n" +
		" |___/      yǔbàn · 语伴\n"
)

var rootCmd = &cobra.Command{
	Use:   "yuban",
	Short: "yuban - language learning chat partner",
	Long:  color.CyanString(logo) + "\nA language learning bot that texts like a real language partner.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(wordCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

func printHeader(title string) {
	fmt.Println(color.CyanString(logo))
	if title != "" {
		fmt.Println(title)
		fmt.Println("─────────────────────")
	}
}
