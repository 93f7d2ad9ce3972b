// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package finance

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeHandler is called after the debounce window when one or both
// tables changed on disk.
type ChangeHandler func()

// Watcher watches the F-196 CSV files and fires a handler when they
// change. The serve command wires the handler to a Source reload plus
// memo-cache invalidation.
//
// Watching is advisory: the tables also reload correctly on the next
// process restart, so watch failures are logged and ignored.
//
// # Debouncing
//
// F-196 updates typically rewrite both files back to back; changes are
// batched with a debounce window so the handler fires once per update,
// not once per write event.
type Watcher struct {
	paths    map[string]struct{}
	handler  ChangeHandler
	debounce time.Duration
	logger   *slog.Logger

	watcher  *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the given table paths.
func NewWatcher(paths []string, handler ChangeHandler, logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	watched := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		watched[filepath.Clean(p)] = struct{}{}
	}

	return &Watcher{
		paths:    watched,
		handler:  handler,
		debounce: 2 * time.Second,
		logger:   logger,
		watcher:  fsWatcher,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching. It watches the parent directories rather than
// the files themselves so atomic replace-by-rename updates are seen.
func (w *Watcher) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for p := range w.paths {
		dirs[filepath.Dir(p)] = struct{}{}
	}
	for dir := range dirs {
		if err := w.watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	go w.loop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

// loop converts relevant events into debounced handler calls.
func (w *Watcher) loop(ctx context.Context) {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if _, watched := w.paths[filepath.Clean(event.Name)]; !watched {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.logger.Debug("financial table changed", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}
		case <-timerC:
			timer = nil
			timerC = nil
			w.logger.Info("reloading financial tables after change")
			w.handler()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("table watcher error", "error", err)
		}
	}
}
