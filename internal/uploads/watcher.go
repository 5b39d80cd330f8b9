package uploads

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-observed change to the
// uploads directory. kind is one of "added", "removed".
type EventCallback func(kind, name string)

// Watch runs an fsnotify watcher on the uploads directory until ctx is
// cancelled, calling cb for assets added or removed outside the API
// (dropped in by hand, synced by another tool). Temp files from
// in-progress atomic writes are ignored; the rename that lands them
// shows up as a Create on the final name.
func Watch(ctx context.Context, store *Store, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(store.Root()); err != nil {
		return err
	}

	logger.Info("uploads watcher: started", slog.String("root", store.Root()))

	for {
		select {
		case <-ctx.Done():
			logger.Info("uploads watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, ".") {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				logger.Debug("uploads watcher: added", slog.String("name", name))
				if cb != nil {
					cb("added", name)
				}

			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				logger.Debug("uploads watcher: removed", slog.String("name", name))
				if cb != nil {
					cb("removed", name)
				}
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("uploads watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
