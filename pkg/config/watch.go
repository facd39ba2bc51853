package config

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events a single save produces
// (truncate, write, chmod, or rename+create from atomic-save editors).
const reloadDelay = 50 * time.Millisecond

// Watch calls onChange with the newly loaded Config whenever the file at path
// changes content. It runs until ctx is cancelled.
//
// The parent directory is watched so that editors which replace the file
// keep being tracked. If a reload fails (e.g., invalid YAML or an invalid
// ceiling), the error is logged and onChange is not called, so the previous
// config stays active.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	name := filepath.Base(path)

	// Content already in effect; reloads that produce the same bytes are skipped.
	last, _ := os.ReadFile(path)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name || event.Has(fsnotify.Remove) {
				continue
			}
			timer.Reset(reloadDelay)

		case <-timer.C:
			data, err := os.ReadFile(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
				continue
			}
			if bytes.Equal(data, last) {
				continue
			}
			cfg, err := Parse(data)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config", "path", path, "err", err)
				continue
			}
			last = data

			slog.Info("config: reloaded", "path", path,
				"effective_ceiling", cfg.Advisor.Ceiling.Effective())
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
