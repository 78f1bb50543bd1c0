// Package main is the entry point for the yuban CLI.
package main

import (
	"os"

	"github.com/yuban/yuban/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
