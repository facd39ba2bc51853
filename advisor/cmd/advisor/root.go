package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/obsidianstack/samplerate/pkg/config"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	json       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "advisor",
		Short: "Recommend a transaction sample rate for a throughput ceiling",
		Long: `advisor estimates how many transactions an application produces per day and
compares that against the backend's ceiling (events/second * 86,400, or a fixed
daily cap, reduced by a safety margin). When the estimate exceeds the ceiling it
recommends the fraction of transactions to keep.

Examples:
  advisor calc --transactions-per-session 1000 --sessions-per-day 50000
  advisor calc -t 10 -s 5000 --png result.png
  advisor presets
  advisor form                      # type field=value lines, see the result update
  advisor observe --config config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (built-in defaults when empty)")
	root.PersistentFlags().BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newCalcCmd(opts),
		newPresetsCmd(opts),
		newFormCmd(opts),
		newObserveCmd(opts),
	)
	return root
}

// loadConfig returns the configured settings, or the defaults when no
// --config was given.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	if opts.configPath == "" {
		return config.Defaults(), nil
	}
	return config.Load(opts.configPath)
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
