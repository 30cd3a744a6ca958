package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval is the quiet period before a change is reported.
var DebounceInterval = 500 * time.Millisecond

// WatchConfig initializes a filesystem watcher for the specified files.
// It returns a channel that emits an empty struct when a change is detected
// and debounced. The channel is closed once the context is canceled, or
// immediately when no watcher could be created.
func WatchConfig(ctx context.Context, files ...string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1) // Buffer 1 so we don't block sender

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		close(reloadCh)
		return reloadCh
	}

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		if err := watcher.Add(absPath); err != nil {
			slog.Warn("Could not watch file", "file", file, "error", err)
		} else {
			slog.Debug("Watching file", "file", file)
		}
	}

	go func() {
		defer close(reloadCh)
		defer watcher.Close()

		timer := time.NewTimer(DebounceInterval)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()
		var pending string

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				// Writes and recreations (editor atomic saves) both count.
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					pending = event.Name
					timer.Reset(DebounceInterval)
				}
			case <-timer.C:
				slog.Info("File change detected", "file", pending)
				select {
				case reloadCh <- struct{}{}:
				default:
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}
