// Package watch turns saves of a file on disk into editor snapshots, so a
// walkthrough can be recorded from any external editor.
package watch

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch delivers the full content of path to sink every time it changes on
// disk, until ctx is cancelled. Identical consecutive contents are delivered
// once. The parent directory is watched so editors that save by rename are
// still seen.
func Watch(ctx context.Context, path string, sink func(content string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	last, err := os.ReadFile(abs)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			data, err := os.ReadFile(abs)
			if err != nil {
				// Mid-rename; the following Create will carry the content.
				continue
			}
			if string(data) == string(last) {
				continue
			}
			last = data
			sink(string(data))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("file watcher error", "path", abs, "err", err)
		}
	}
}
