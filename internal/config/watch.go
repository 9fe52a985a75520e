package config

import (
	"context"
	"log/slog"

	"github.com/fsnotify/fsnotify"

	"github.com/star/pulsedelay/internal/metrics"
)

// Watch monitors path and calls onChange with the newly loaded Config each
// time the file is written. It runs until ctx is cancelled.
//
// If loading fails, or onChange rejects the new config, the error is logged
// and the previous model stays active.
func Watch(ctx context.Context, path string, logger *slog.Logger, onChange func(*Config) error) error {
	logger = logger.With("component", "config")

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(path); err != nil {
		return err
	}

	logger.Info("watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so also catch Create.
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cfg, err := Load(path)
			if err == nil {
				err = onChange(cfg)
			}
			metrics.RecordReload(err)
			if err != nil {
				logger.Error("reload failed, keeping previous model", "path", path, "error", err)
				continue
			}
			logger.Info("reloaded", "path", path)

			// Re-add the file in case an atomic save replaced the inode.
			_ = watcher.Add(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher error", "error", err)
		}
	}
}
