package walk

import (
	"context"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow coalesces bursts of filesystem events (e.g. an editor's
// save-via-rename) into a single trigger.
const debounceWindow = 300 * time.Millisecond

// Watch watches roots for filesystem changes and invokes onChange (debounced)
// after any event on a root or, for a directory root, on its direct entries;
// subdirectories are not watched. A root that cannot be added and any
// watcher error are logged and watching continues. It blocks until ctx is
// canceled or the watcher's channels close, then returns nil; it returns an
// error only if the watcher cannot be created.
func Watch(ctx context.Context, roots []string, logger *slog.Logger, onChange func()) error {
	if logger == nil {
		logger = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	for _, root := range roots {
		if addErr := watcher.Add(root); addErr != nil {
			logger.Warn("watch root", "root", root, "error", addErr)
		}
	}

	var timer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if timer != nil {
				timer.Stop()
			}

			timer = time.AfterFunc(debounceWindow, onChange)

			logger.Debug("watch event", "path", event.Name, "op", event.Op.String())

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			logger.Warn("watch error", "error", watchErr)
		}
	}
}
