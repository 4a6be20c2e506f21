package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ErrNoConfigFile is returned by Watch when the loader has no file.
var ErrNoConfigFile = errors.New("no config file to watch")

// ReloadCallback receives a reloaded configuration and what changed.
type ReloadCallback func(ctx context.Context, cfg *Config, changes []Change) error

// Watch reloads the configuration file whenever it changes on disk and calls
// fn with the new configuration when any field differs. It blocks until ctx
// is cancelled. Reload and callback failures are logged and watching continues.
//
// The parent directory is watched so that editors which replace the file
// through a rename are still observed.
func (l *Loader) Watch(ctx context.Context, fn ReloadCallback) error {
	if l.path == "" {
		return ErrNoConfigFile
	}
	if fn == nil {
		return fmt.Errorf("watch %s: reload callback is nil", l.path)
	}
	path, err := filepath.Abs(l.path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", l.path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	prev := l.Current()
	if prev == nil {
		if prev, err = l.Load(ctx); err != nil {
			return err
		}
	}
	l.logger.Debug("Watching configuration", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			next, err := l.Load(ctx)
			if err != nil {
				l.logger.Warn("Configuration reload failed, keeping previous configuration", "path", path, "error", err)
				continue
			}
			changes := Diff(prev, next)
			if len(changes) == 0 {
				continue
			}
			prev = next
			l.logger.Info("Configuration changed", "path", path, "changes", len(changes))
			if err := fn(ctx, next.Clone(), changes); err != nil {
				l.logger.Error("Configuration reload callback failed", "path", path, "error", err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Configuration watcher error", "path", path, "error", err)
		}
	}
}
