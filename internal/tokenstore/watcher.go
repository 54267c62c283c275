package tokenstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// Watcher surfaces external changes to the tokens directory so cached
// client handles can be evicted when a token file is rewritten or
// removed out from under the process.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *slog.Logger
}

// NewWatcher starts watching the store's directory. The directory must
// exist; callers that never saved a token have nothing to watch.
func NewWatcher(store *Store, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("tokenstore: creating watcher: %w", err)
	}

	if err := fsw.Add(store.Dir()); err != nil {
		fsw.Close()

		return nil, fmt.Errorf("tokenstore: watching %s: %w", store.Dir(), err)
	}

	return &Watcher{fsw: fsw, logger: logger}, nil
}

// Watch blocks until ctx is canceled, invoking onChange with the owning
// user id for every token file write, create, or removal. Watcher errors
// are logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, onChange func(userID string)) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}

			w.handleEvent(ev, onChange)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("token store watcher error", slog.String("error", err.Error()))
		}
	}
}

// handleEvent maps one fsnotify event to an onChange call. Mode changes
// and in-flight temp files are ignored.
func (w *Watcher) handleEvent(ev fsnotify.Event, onChange func(userID string)) {
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	userID, ok := UserIDFromPath(ev.Name)
	if !ok {
		return
	}

	w.logger.Debug("token file changed externally",
		slog.String("user_id", userID),
		slog.String("op", ev.Op.String()),
	)

	onChange(userID)
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}
