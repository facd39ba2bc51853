package main

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/render"
)

type calcOptions struct {
	transactions    string
	sessions        string
	eventsPerSecond int64
	dailyCap        int64
	safetyMargin    float64
	pngPath         string
}

func newCalcCmd(root *rootOptions) *cobra.Command {
	opts := &calcOptions{}

	cmd := &cobra.Command{
		Use:   "calc",
		Short: "Compute the sample rate for per-session transactions and daily sessions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCalc(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.transactions, "transactions-per-session", "t", "", "transactions generated in a typical session")
	f.StringVarP(&opts.sessions, "sessions-per-day", "s", "", "sessions per day")
	f.Int64Var(&opts.eventsPerSecond, "events-per-second", 0, "ingest ceiling in events/second (overrides config)")
	f.Int64Var(&opts.dailyCap, "daily-cap", 0, "fixed transactions/day ceiling (overrides events-per-second)")
	f.Float64Var(&opts.safetyMargin, "safety-margin", 0, "fraction of the ceiling to use, in (0, 1] (overrides config)")
	f.StringVar(&opts.pngPath, "png", "", "also write the result as a PNG image to this path")
	return cmd
}

func runCalc(cmd *cobra.Command, root *rootOptions, opts *calcOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	tx, err := estimate.ParseCount(opts.transactions)
	if err != nil {
		return fmt.Errorf("%s (--transactions-per-session %q): %w", estimate.InvalidIntegerMessage, opts.transactions, err)
	}
	ss, err := estimate.ParseCount(opts.sessions)
	if err != nil {
		return fmt.Errorf("%s (--sessions-per-day %q): %w", estimate.InvalidIntegerMessage, opts.sessions, err)
	}

	ceiling := cfg.Advisor.Ceiling
	if opts.eventsPerSecond != 0 {
		ceiling.EventsPerSecond = opts.eventsPerSecond
		ceiling.DailyCap = 0
	}
	if opts.dailyCap != 0 {
		ceiling.DailyCap = opts.dailyCap
	}
	if opts.safetyMargin != 0 {
		ceiling.SafetyMargin = opts.safetyMargin
	}

	r, err := estimate.Compute(estimate.Input{
		TransactionsPerSession: tx,
		SessionsPerDay:         ss,
		Ceiling:                ceiling,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if root.json {
		if err := writeJSON(out, newResultView(r)); err != nil {
			return err
		}
	} else if err := printResult(out, r); err != nil {
		return err
	}

	if opts.pngPath != "" {
		if err := writePNG(opts.pngPath, r); err != nil {
			return err
		}
		if !root.json {
			fmt.Fprint(out, pterm.Success.Sprintfln("Wrote result image to %s", opts.pngPath))
		}
	}
	return nil
}

func writePNG(path string, r estimate.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render.PNG(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
