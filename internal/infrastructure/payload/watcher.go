package payload

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/FreePeak/track-commands-ws/internal/infrastructure/logging"
)

// Watcher logs changes to the pool directory. It only reports; sessions still
// list the directory themselves when they pick a payload.
type Watcher struct {
	dir    string
	logger *logging.Logger
	ready  chan struct{}
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, logger *logging.Logger) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{
		dir:    dir,
		logger: logger.With(logging.Fields{"payload_dir": dir}),
		ready:  make(chan struct{}),
	}
}

// Ready is closed once the directory is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches the directory until ctx is cancelled. A directory that cannot be
// watched is logged and Run returns the error.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("Payload watcher unavailable", logging.Fields{"error": err})
		return err
	}
	defer func() {
		_ = fw.Close()
	}()

	if err := fw.Add(w.dir); err != nil {
		w.logger.Warn("Cannot watch payload directory", logging.Fields{"error": err})
		return err
	}
	close(w.ready)
	w.logger.Info("Watching payload directory")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Payload watcher error", logging.Fields{"error": err})
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	name := filepath.Base(ev.Name)
	if !IsEntry(name) {
		return
	}

	fields := logging.Fields{"entry": name}
	switch {
	case ev.Has(fsnotify.Create):
		w.logger.Info("Payload added", fields)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.logger.Info("Payload removed", fields)
	case ev.Has(fsnotify.Write):
		w.logger.Debug("Payload updated", fields)
	}
}
