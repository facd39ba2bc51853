package main

import (
	"log/slog"
	"os"

	"github.com/pterm/pterm"
)

func main() {
	// Human output goes to stdout through pterm; structured logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	if err := newRootCmd().Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
