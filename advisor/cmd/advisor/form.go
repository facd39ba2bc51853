package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/obsidianstack/samplerate/pkg/estimate"
	"github.com/obsidianstack/samplerate/pkg/form"
	"github.com/obsidianstack/samplerate/pkg/render"
)

// fieldAliases maps the short names accepted on stdin to form fields.
var fieldAliases = map[string]string{
	"t":            form.FieldTransactionsPerSession,
	"transactions": form.FieldTransactionsPerSession,
	"s":            form.FieldSessionsPerDay,
	"sessions":     form.FieldSessionsPerDay,
	"eps":          form.FieldEventsPerSecond,

	form.FieldTransactionsPerSession: form.FieldTransactionsPerSession,
	form.FieldSessionsPerDay:         form.FieldSessionsPerDay,
	form.FieldEventsPerSecond:        form.FieldEventsPerSecond,
}

func newFormCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "form",
		Short: "Interactive calculator: read field=value lines and recompute after each",
		Long: `form reads one change per line from stdin, e.g.

  t=1000          transactions per session
  s=50000         sessions per day
  eps=500         events/second preset (` + fmt.Sprint(estimate.Presets) + `)

and prints the recalculated values after every line. A value that is not a
non-negative integer is rejected and the previous value is kept.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			f, err := form.New(cfg.Advisor.Ceiling)
			if err != nil {
				return err
			}
			return runForm(cmd.InOrStdin(), cmd.OutOrStdout(), f, root.json)
		},
	}
}

func runForm(in io.Reader, out io.Writer, f *form.Form, asJSON bool) error {
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		field, known := fieldAliases[strings.TrimSpace(key)]
		if !ok || !known {
			fmt.Fprint(out, pterm.Warning.Sprintfln("expected field=value with field one of t, s, eps; got %q", line))
			continue
		}

		// Rejected input is reported through the snapshot message.
		_ = f.Set(field, strings.TrimSpace(value))

		snap := f.Snapshot()
		if asJSON {
			if err := writeJSON(out, snap); err != nil {
				return err
			}
			continue
		}
		if snap.Message != "" {
			fmt.Fprint(out, pterm.Error.Sprintln(snap.Message))
		}
		for _, l := range render.Lines(snap.Result) {
			fmt.Fprintln(out, l)
		}
		fmt.Fprintln(out)
	}
	return sc.Err()
}
