package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/samplerate/advisor/internal/observe"
	"github.com/obsidianstack/samplerate/advisor/internal/scraper"
	"github.com/obsidianstack/samplerate/pkg/config"
	"github.com/obsidianstack/samplerate/pkg/estimate"
)

func newObserveCmd(root *rootOptions) *cobra.Command {
	var cycles int

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Measure live transaction rates from Prometheus metrics and recommend a sample rate",
		Long: `observe polls every source listed under advisor.sources, derives transactions
per day (and sessions per day when sessions_metric is set) from counter deltas,
and prints a recommendation for each source every scrape interval.

Edits to the config file's ceiling take effect on the next cycle.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if root.configPath == "" {
				return errors.New("observe needs --config with advisor.sources")
			}
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if len(cfg.Advisor.Sources) == 0 {
				return errors.New("no advisor.sources configured")
			}

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			return runObserve(ctx, cmd.OutOrStdout(), root, cfg, cycles)
		},
	}
	cmd.Flags().IntVar(&cycles, "cycles", 0, "stop after this many scrape cycles (0 = run until interrupted)")
	return cmd
}

// pipeline pairs a configured source with its scraper.
type pipeline struct {
	src config.Source
	s   scraper.Scraper
}

func runObserve(ctx context.Context, out io.Writer, root *rootOptions, cfg *config.Config, cycles int) error {
	engine, err := observe.NewEngine(cfg.Advisor.Ceiling)
	if err != nil {
		return err
	}

	var pipelines []pipeline
	for _, src := range cfg.Advisor.Sources {
		s, err := scraper.New(src)
		if err != nil {
			slog.Error("skipping source, could not build scraper", "source", src.ID, "err", err)
			continue
		}
		pipelines = append(pipelines, pipeline{src: src, s: s})
		slog.Info("registered source", "id", src.ID, "endpoint", src.Endpoint,
			"transactions_metric", src.TransactionsMetric)
	}
	if len(pipelines) == 0 {
		return errors.New("no usable sources")
	}

	// Scrapers are built once; reloads only move the ceiling.
	go func() {
		if err := config.Watch(ctx, root.configPath, func(updated *config.Config) {
			if err := engine.SetCeiling(updated.Advisor.Ceiling); err != nil {
				slog.Error("observe: ignoring reloaded ceiling", "err", err)
			}
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	ticker := time.NewTicker(cfg.Advisor.ScrapeInterval)
	defer ticker.Stop()

	for n := 1; ; n++ {
		now := time.Now()
		for _, p := range pipelines {
			sample, err := p.s.Scrape(ctx)
			if err != nil {
				slog.Warn("scrape error", "source", p.src.ID, "err", err)
				continue
			}
			if err := printObserved(out, engine.Process(sample, now), root.json); err != nil {
				return err
			}
		}
		if cycles > 0 && n >= cycles {
			return nil
		}

		select {
		case <-ctx.Done():
			slog.Info("observe: shutting down")
			return nil
		case <-ticker.C:
		}
	}
}

func printObserved(w io.Writer, r *observe.Result, asJSON bool) error {
	if asJSON {
		return writeJSON(w, r)
	}

	switch {
	case r.ErrorMessage != "":
		fmt.Fprint(w, pterm.Error.Sprintfln("%s: %s (uptime %.0f%%)", r.SourceID, r.ErrorMessage, r.UptimePct))
	case !r.Ready:
		fmt.Fprint(w, pterm.Info.Sprintfln("%s: baseline recorded, rates follow on the next scrape", r.SourceID))
	default:
		fmt.Fprint(w, pterm.Info.Sprintfln("%s: %s transactions/day observed, sample rate %s",
			r.SourceID,
			estimate.FormatCount(r.Estimate.EstimatedPerDay),
			estimate.FormatPercent(r.Estimate.SamplePercent()),
		))
		printHints(w, r.Hints)
	}
	return nil
}
