package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"cassette/logger"

	"github.com/fsnotify/fsnotify"
)

// Watch observes the catalog file and logs when it changes on disk. The
// index itself is immutable for the life of the process; a changed file
// takes effect only after a restart, and this watcher makes that visible
// instead of silent.
func Watch(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	// Watch the directory: editors often replace the file wholesale,
	// which drops a watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch catalog directory %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					logger.Warn("catalog file changed on disk; restart to pick up the new catalog",
						logger.String("path", path),
						logger.String("op", event.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("catalog watcher error", logger.ErrorField(err))
			}
		}
	}()

	return nil
}
