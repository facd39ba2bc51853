package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/render"
)

// resultView is the JSON shape printed by calc and form.
type resultView struct {
	Result        estimate.Result `json:"result"`
	SamplePercent string          `json:"sample_percent"`
	Hints         []estimate.Hint `json:"hints"`
	Lines         []string        `json:"lines"`
}

func newResultView(r estimate.Result) resultView {
	return resultView{
		Result:        r,
		SamplePercent: estimate.FormatPercent(r.SamplePercent()),
		Hints:         estimate.Explain(r),
		Lines:         render.Lines(r),
	}
}

// printResult renders r as a table followed by its hints.
func printResult(w io.Writer, r estimate.Result) error {
	data := pterm.TableData{
		{"Value", "Amount"},
		{"Transactions per session", estimate.FormatCount(r.TransactionsPerSession)},
		{"Sessions per day", estimate.FormatCount(r.SessionsPerDay)},
		{"Transactions per day", estimate.FormatCount(r.EstimatedPerDay)},
		{"Max transactions per day", estimate.FormatCount(r.EffectiveCeiling)},
		{"Sample rate", estimate.FormatPercent(r.SamplePercent())},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	fmt.Fprintln(w, table)
	printHints(w, estimate.Explain(r))
	return nil
}

func printHints(w io.Writer, hints []estimate.Hint) {
	for _, h := range hints {
		p := prefixFor(h.Level)
		fmt.Fprint(w, p.Sprintln(h.Title))
		if h.Key == "sampling_required" {
			for _, l := range strings.Split(h.Detail, "\n") {
				fmt.Fprintln(w, "  "+l)
			}
		}
	}
}

func prefixFor(level string) pterm.PrefixPrinter {
	switch level {
	case estimate.LevelCritical:
		return pterm.Error
	case estimate.LevelWarning:
		return pterm.Warning
	case estimate.LevelOK:
		return pterm.Success
	default:
		return pterm.Info
	}
}
