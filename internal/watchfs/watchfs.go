package watchfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"scout/internal/logging"
)

// Change describes one observed mutation inside a watched directory.
type Change struct {
	// Path is the absolute path of the changed file.
	Path string
	// Name is the base name within the watched directory.
	Name string
}

// Watcher streams change notifications for a single directory. The returned
// channel closes when ctx ends or the watch fails.
type Watcher interface {
	Watch(ctx context.Context, dir string) (<-chan Change, error)
}

// New selects the watch mechanism. Inotify is the default; polling covers
// filesystems without change notification (network mounts, some containers).
func New(poll bool, interval time.Duration, logger *slog.Logger) Watcher {
	if poll {
		return &pollWatcher{interval: interval, logger: logging.WithComponent(logger, "watchfs")}
	}
	return &notifyWatcher{logger: logging.WithComponent(logger, "watchfs")}
}

type notifyWatcher struct {
	logger *slog.Logger
}

func (w *notifyWatcher) Watch(ctx context.Context, dir string) (<-chan Change, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ch := make(chan Change)
	go func() {
		defer close(ch)
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
					continue
				}
				select {
				case ch <- Change{Path: event.Name, Name: filepath.Base(event.Name)}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Warn("watch error", logging.String("dir", dir), logging.Error(err))
			}
		}
	}()
	return ch, nil
}

type pollWatcher struct {
	interval time.Duration
	logger   *slog.Logger
}

type fileStamp struct {
	size    int64
	modTime time.Time
}

func (w *pollWatcher) Watch(ctx context.Context, dir string) (<-chan Change, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	interval := w.interval
	if interval <= 0 {
		interval = time.Second
	}

	ch := make(chan Change)
	seen := w.snapshot(dir)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				current := w.snapshot(dir)
				for name, stamp := range current {
					if prev, ok := seen[name]; ok && prev == stamp {
						continue
					}
					select {
					case ch <- Change{Path: filepath.Join(dir, name), Name: name}:
					case <-ctx.Done():
						return
					}
				}
				seen = current
			}
		}
	}()
	return ch, nil
}

func (w *pollWatcher) snapshot(dir string) map[string]fileStamp {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("poll read dir failed", logging.String("dir", dir), logging.Error(err))
		return nil
	}
	out := make(map[string]fileStamp, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out[entry.Name()] = fileStamp{size: info.Size(), modTime: info.ModTime()}
	}
	return out
}
