package quantiles

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher evicts cached tables of an output directory when anything under it changes.
type Watcher struct {
	root    string
	cache   Cache
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	wg   sync.WaitGroup
	once sync.Once
	done chan struct{}
}

// NewWatcher watches outputPath (the directory holding the run directories).
func NewWatcher(outputPath string, cache Cache, logger *zap.Logger) (*Watcher, error) {
	w, e := fsnotify.NewWatcher()
	if e != nil {
		return nil, e
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Watcher{
		root:    filepath.Clean(outputPath),
		cache:   cache,
		watcher: w,
		logger:  logger,
		done:    make(chan struct{}),
	}, nil
}

// Start adds the watches and returns; events are handled until ctx ends or Close is called.
func (w *Watcher) Start(ctx context.Context) error {
	if e := w.watcher.Add(w.root); e != nil {
		return e
	}

	entries, e := os.ReadDir(w.root)
	if e != nil {
		return e
	}

	for _, ent := range entries {
		if ent.IsDir() {
			w.add(filepath.Join(w.root, ent.Name()))
		}
	}

	w.wg.Add(1)
	go w.run(ctx)

	return nil
}

func (w *Watcher) add(dir string) {
	if e := w.watcher.Add(dir); e != nil {
		w.logger.Warn("cannot watch output directory", zap.String("dir", dir), zap.Error(e))
	}
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			w.handle(ev)
		case e, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

			w.logger.Warn("output watcher error", zap.Error(e))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	dir := w.runDir(ev.Name)
	if dir == "" {
		return
	}

	if ev.Has(fsnotify.Create) && filepath.Dir(ev.Name) == w.root {
		if info, e := os.Stat(ev.Name); e == nil && info.IsDir() {
			w.add(ev.Name)
		}
	}

	if n := w.cache.RemoveDir(dir); n > 0 {
		w.logger.Info("output changed, cache entries evicted",
			zap.String("dir", dir), zap.String("op", ev.Op.String()), zap.Int("evicted", n))
	}
}

// runDir is the run directory an event path belongs to, "" if none.
func (w *Watcher) runDir(path string) string {
	rel, e := filepath.Rel(w.root, filepath.Clean(path))
	if e != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}

	return strings.Split(filepath.ToSlash(rel), "/")[0]
}

// Close stops the watcher and waits for the event loop to exit.
func (w *Watcher) Close() error {
	var e error
	w.once.Do(func() {
		close(w.done)
		e = w.watcher.Close()
		w.wg.Wait()
	})

	return e
}
