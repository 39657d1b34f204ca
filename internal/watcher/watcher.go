package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

type ChangeEvent struct {
	Path      string
	Timestamp time.Time
}

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	patterns  []string
	skip      []string
}

// New watches crate sources: Rust files, headers, module maps and manifests.
// Directories in skip (typically the target directory) are never descended into.
func New(debounce time.Duration, skip ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs := make([]string, 0, len(skip))
	for _, s := range skip {
		if p, err := filepath.Abs(s); err == nil {
			abs = append(abs, p)
		}
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		patterns:  []string{".rs", ".h", ".modulemap", ".toml", ".yaml", ".yml", ".c"},
		skip:      abs,
	}, nil
}

// AddRecursive adds a directory and all subdirectories.
func (w *Watcher) AddRecursive(root string) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}

	return filepath.Walk(absRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}

		if info.IsDir() {
			base := filepath.Base(path)

			// Skip hidden and build output directories
			if path != absRoot && (strings.HasPrefix(base, ".") || base == "target" || w.skipped(path)) {
				return filepath.SkipDir
			}

			if err := w.fsWatcher.Add(path); err != nil {
				// Log but continue - some directories may not be watchable
				return nil
			}
		}
		return nil
	})
}

// Watch returns a channel that emits debounced change events.
func (w *Watcher) Watch(ctx context.Context) <-chan ChangeEvent {
	out := make(chan ChangeEvent)

	go func() {
		defer close(out)

		var mu sync.Mutex
		var pending *time.Timer
		var lastPath string

		for {
			select {
			case <-ctx.Done():
				if pending != nil {
					pending.Stop()
				}
				return

			case event, ok := <-w.fsWatcher.Events:
				if !ok {
					return
				}

				if !w.shouldWatch(event.Name) {
					continue
				}

				// Watch for write, create, rename (atomic saves), chmod (some editors)
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Chmod) == 0 {
					continue
				}

				mu.Lock()
				lastPath = event.Name

				if pending != nil {
					pending.Stop()
				}

				pending = time.AfterFunc(w.debounce, func() {
					mu.Lock()
					p := lastPath
					mu.Unlock()

					select {
					case out <- ChangeEvent{Path: p, Timestamp: time.Now()}:
					case <-ctx.Done():
					}
				})
				mu.Unlock()

			case _, ok := <-w.fsWatcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out
}

func (w *Watcher) skipped(path string) bool {
	for _, s := range w.skip {
		if path == s || strings.HasPrefix(path, s+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldWatch(path string) bool {
	if w.skipped(path) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, pattern := range w.patterns {
		if ext == pattern {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
