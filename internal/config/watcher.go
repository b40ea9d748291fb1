package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file and applies the tool approval mode from the
// file to the live config whenever it changes. Watches the parent directory
// rather than the file itself so editor atomic saves (write temp + rename)
// keep being observed. Runs until ctx is cancelled.
func Watch(ctx context.Context, cfg *Config, path string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("config watch: create watcher failed", "error", err)
		return
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		slog.Warn("config watch: cannot resolve path", "path", path)
		watcher.Close()
		return
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		slog.Warn("config watch: cannot watch directory", "dir", filepath.Dir(abs), "error", err)
		watcher.Close()
		return
	}

	go func() {
		defer watcher.Close()

		var timer *time.Timer
		const debounce = 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != abs {
					continue
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, func() {
						reload(cfg, abs)
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("config watch: watcher error", "error", err)
			}
		}
	}()
}

// reload re-reads the file and applies the live-mutable settings only.
// Provider settings require a restart; approval mode switches immediately.
func reload(cfg *Config, path string) {
	fresh, err := Load(path)
	if err != nil {
		slog.Warn("config watch: reload failed, keeping previous config", "error", err)
		return
	}
	if fresh.Tools.Approvals != cfg.Approvals() {
		slog.Info("config watch: tool approvals changed", "mode", fresh.Tools.Approvals)
		_ = cfg.SetApprovals(fresh.Tools.Approvals)
	}
}
