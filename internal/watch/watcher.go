package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/hupe1980/devwatch/internal/pattern"
)

// Watcher emits events for files under Root that match a pattern set.
// Its event stream can be consumed once and cannot be restarted.
type Watcher struct {
	root    string
	set     *pattern.Set
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	roots   []string
	once    sync.Once
	events  chan Event
	closeMu sync.Mutex
	closed  bool

	// started and mtimes detect attribute-only events that bumped a
	// file's modification time. Both are owned by the loop goroutine.
	started time.Time
	mtimes  map[string]time.Time
}

// NewWatcher resolves the pattern roots below root and registers every
// existing directory beneath them. Roots that do not exist are skipped
// with a warning; it is an error if none exist.
func NewWatcher(root string, set *pattern.Set, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving watch root %q: %w", root, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:   abs,
		set:    set,
		logger: logger,
		fsw:    fsw,
		events:  make(chan Event),
		started: time.Now(),
		mtimes:  make(map[string]time.Time),
	}

	for _, r := range set.Roots() {
		dir := filepath.Join(abs, filepath.FromSlash(r))

		info, statErr := os.Stat(dir)
		if statErr != nil || !info.IsDir() {
			logger.Warn("watch root not found, skipping", slog.String("dir", dir))

			continue
		}

		if err := addRecursive(fsw, dir); err != nil {
			_ = fsw.Close()

			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}

		w.roots = append(w.roots, r)
	}

	if len(w.roots) == 0 {
		_ = fsw.Close()

		return nil, fmt.Errorf("none of the watch roots %v exist below %s", set.Roots(), abs)
	}

	return w, nil
}

// Root returns the absolute directory events are relative to.
func (w *Watcher) Root() string { return w.root }

// Roots returns the pattern roots that are being watched.
func (w *Watcher) Roots() []string { return append([]string(nil), w.roots...) }

// Watched returns every directory registered with the OS.
func (w *Watcher) Watched() []string { return w.fsw.WatchList() }

// Events starts the stream on the first call; later calls return the
// same channel.
func (w *Watcher) Events(ctx context.Context) <-chan Event {
	w.once.Do(func() {
		go w.loop(ctx)
	})

	return w.events
}

// Close releases the OS watch handles.
func (w *Watcher) Close() error {
	w.closeMu.Lock()
	defer w.closeMu.Unlock()

	if w.closed {
		return nil
	}

	w.closed = true

	return w.fsw.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}

			out, ok := w.translate(ev)
			if !ok {
				continue
			}

			select {
			case w.events <- out:
			case <-ctx.Done():
				return
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}

			w.logger.Error("watcher error", slog.String("error", err.Error()))
		}
	}
}

// translate filters a raw notification and converts it to an Event.
func (w *Watcher) translate(ev fsnotify.Event) (Event, bool) {
	kind, ok := kindOf(ev.Op)
	if (!ok && !ev.Has(fsnotify.Chmod)) || isNoise(ev.Name) {
		return Event{}, false
	}

	// New directories are watched so files created later inside them are seen.
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := addRecursive(w.fsw, ev.Name); err != nil {
				w.logger.Warn("watching new directory", slog.String("dir", ev.Name), slog.String("error", err.Error()))
			}

			return Event{}, false
		}
	}

	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		return Event{}, false
	}

	rel = filepath.ToSlash(rel)
	if !w.set.Match(rel) {
		w.logger.Debug("ignoring change", slog.String("path", rel), slog.String("kind", string(kind)))

		return Event{}, false
	}

	if !ok {
		// touch(1) on an existing file only changes attributes.
		if !w.modified(ev.Name) {
			return Event{}, false
		}

		kind = KindChanged
	} else {
		w.remember(ev.Name)
	}

	return Event{Path: rel, Kind: kind}, true
}

// modified reports whether the regular file at path has a modification
// time different from the last one seen. A file not seen before counts as
// modified when its mtime is not older than the watcher.
func (w *Watcher) modified(path string) bool {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}

	mt := info.ModTime()
	last, seen := w.mtimes[path]
	w.mtimes[path] = mt

	if seen {
		return !mt.Equal(last)
	}

	return !mt.Before(w.started)
}

// remember records the current mtime of path, or forgets a removed file.
func (w *Watcher) remember(path string) {
	info, err := os.Stat(path)
	if err != nil {
		delete(w.mtimes, path)

		return
	}

	if info.Mode().IsRegular() {
		w.mtimes[path] = info.ModTime()
	}
}

// addRecursive walks root and adds all directories to the watcher.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}

			return watcher.Add(path)
		}

		return nil
	})
}

// isNoise reports editor temporaries and hidden files.
func isNoise(path string) bool {
	name := filepath.Base(path)

	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") ||
		strings.HasSuffix(name, ".swp") || strings.HasPrefix(name, "#")
}
