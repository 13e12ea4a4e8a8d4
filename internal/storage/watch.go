// ABOUTME: Debounced file watching for a narratives directory.
// ABOUTME: Collapses bursts of fsnotify events into one callback per quiet period.
package storage

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce is the quiet period used when none is given.
const DefaultWatchDebounce = 300 * time.Millisecond

// Watch calls onChange with the sorted set of narrative files that changed
// under root, once events have been quiet for debounce. It blocks until ctx is
// cancelled and then returns nil.
func Watch(ctx context.Context, root string, debounce time.Duration, logger *slog.Logger, onChange func(paths []string)) error {
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := addWatches(watcher, root, logger); err != nil {
		return err
	}
	logger.Info("watching narratives", "root", root, "debounce", debounce)

	pattern := "**/*.{" + strings.Join(narrativeExtensions, ",") + "}"
	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := addWatches(watcher, event.Name, logger); err != nil {
						logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			rel, err := filepath.Rel(root, event.Name)
			if err != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if isHidden(rel) {
				continue
			}
			if matched, _ := doublestar.Match(pattern, rel); !matched {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			slices.Sort(paths)
			clear(pending)
			onChange(paths)
		}
	}
}

// addWatches watches dir and every non-hidden directory below it.
func addWatches(watcher *fsnotify.Watcher, dir string, logger *slog.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			logger.Warn("failed to add watch", "path", path, "error", err)
		}
		return nil
	})
}
