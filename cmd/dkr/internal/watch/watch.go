// Package watch reports files that appear in a directory.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Op is the kind of change observed on a file.
type Op int

const (
	Created Op = iota + 1
	Modified
	Removed
)

func (o Op) String() string {
	switch o {
	case Created:
		return "created"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// Event is a change to a watched file.
type Event struct {
	Path string
	Op   Op
}

// Watcher monitors one directory using fsnotify.
type Watcher struct {
	watcher    *fsnotify.Watcher
	extensions []string // Lowercase, with the leading dot
	logger     *slog.Logger
}

// New creates a watcher for files with the given extensions. No extensions
// means PDF files only.
func New(logger *slog.Logger, extensions ...string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := []string{".pdf"}
	if len(extensions) > 0 {
		exts = make([]string, len(extensions))
		for i, ext := range extensions {
			exts[i] = strings.ToLower(ext)
		}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Watcher{
		watcher:    w,
		extensions: exts,
		logger:     logger,
	}, nil
}

// Watch starts monitoring dir. The channel is closed when ctx ends or the
// watcher is closed.
func (w *Watcher) Watch(ctx context.Context, dir string) (<-chan Event, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan Event, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op Op
				switch {
				case event.Op.Has(fsnotify.Create):
					op = Created
				case event.Op.Has(fsnotify.Write):
					op = Modified
				case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
					op = Removed
				default:
					continue
				}

				select {
				case events <- Event{Path: event.Name, Op: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("file watcher error", "dir", dir, "error", err)
			}
		}
	}()

	return events, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) isWatchedExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range w.extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// minSettleTick bounds how often Settled checks pending files.
const minSettleTick = 10 * time.Millisecond

// Settled emits the path of each created or modified file once it has seen
// no further events for quiet. A file removed before it settles is dropped.
// The returned channel closes after in does or ctx is done.
func Settled(ctx context.Context, in <-chan Event, quiet time.Duration) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)
		pending := map[string]time.Time{}
		ticker := time.NewTicker(max(quiet/4, minSettleTick))
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-in:
				if !ok {
					return
				}
				if ev.Op == Removed {
					delete(pending, ev.Path)
					continue
				}
				pending[ev.Path] = time.Now()
			case now := <-ticker.C:
				for path, last := range pending {
					if now.Sub(last) < quiet {
						continue
					}
					delete(pending, path)
					select {
					case out <- path:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out
}
