package confloader

import (
	"path/filepath"
	"slices"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// Watcher calls its OnChange callbacks when a watched file is written or
// recreated.
type Watcher struct {
	fs  *fsnotify.Watcher
	log logger.Logger

	mu        sync.RWMutex
	paths     []string
	callbacks []func(path string)

	quit     chan struct{}
	quitOnce sync.Once
}

type WatcherOption func(*Watcher)

func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) { w.log = l }
}

func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fs: fw, log: logger.Default(), quit: make(chan struct{})}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds path. The parent directory is what fsnotify watches, so a
// file replaced by rename (as most editors save) keeps being followed.
func (w *Watcher) Watch(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.fs.Add(filepath.Dir(abs)); err != nil {
		w.log.Warn("cannot watch config directory", "path", filepath.Dir(abs), "error", err)
		return err
	}

	w.mu.Lock()
	if !slices.Contains(w.paths, abs) {
		w.paths = append(w.paths, abs)
	}
	w.mu.Unlock()
	w.log.Debug("watching config file", "file", abs)
	return nil
}

// OnChange registers fn. Callbacks run on the watcher goroutine, in
// registration order.
func (w *Watcher) OnChange(fn func(path string)) {
	w.mu.Lock()
	w.callbacks = append(w.callbacks, fn)
	w.mu.Unlock()
}

// Start blocks, dispatching events until Stop.
func (w *Watcher) Start() {
	for {
		select {
		case <-w.quit:
			return
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "error", err)
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				w.dispatch(ev)
			}
		}
	}
}

func (w *Watcher) StartAsync() { go w.Start() }

// Stop ends Start and releases the fsnotify handle. Extra calls return nil.
func (w *Watcher) Stop() (err error) {
	w.quitOnce.Do(func() {
		close(w.quit)
		err = w.fs.Close()
	})
	return err
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return
	}

	w.mu.RLock()
	watched := slices.Contains(w.paths, abs)
	callbacks := slices.Clone(w.callbacks)
	w.mu.RUnlock()
	if !watched {
		return
	}

	w.log.Debug("config file changed", "file", abs, "op", ev.Op.String())
	for _, fn := range callbacks {
		fn(abs)
	}
}
