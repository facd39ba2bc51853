package main

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/samplerate/pkg/estimate"
)

type presetView struct {
	EventsPerSecond  int64   `json:"events_per_second"`
	SafetyMargin     float64 `json:"safety_margin"`
	RawCeiling       int64   `json:"raw_ceiling"`
	EffectiveCeiling int64   `json:"effective_ceiling"`
}

func presetViews(margin float64) ([]presetView, error) {
	out := make([]presetView, 0, len(estimate.Presets))
	for _, eps := range estimate.Presets {
		c, err := estimate.PresetCeiling(eps, margin)
		if err != nil {
			return nil, err
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		out = append(out, presetView{
			EventsPerSecond:  eps,
			SafetyMargin:     c.Margin(),
			RawCeiling:       c.Raw(),
			EffectiveCeiling: c.Effective(),
		})
	}
	return out, nil
}

func newPresetsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the events-per-second presets and their daily ceilings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			views, err := presetViews(cfg.Advisor.Ceiling.SafetyMargin)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if root.json {
				return writeJSON(out, views)
			}

			data := pterm.TableData{{"Events/second", "Raw ceiling/day", "Margin", "Max transactions/day"}}
			for _, v := range views {
				data = append(data, []string{
					strconv.FormatInt(v.EventsPerSecond, 10),
					estimate.FormatCount(v.RawCeiling),
					estimate.FormatPercent(v.SafetyMargin * 100),
					estimate.FormatCount(v.EffectiveCeiling),
				})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return fmt.Errorf("render table: %w", err)
			}
			fmt.Fprintln(out, table)
			return nil
		},
	}
}
