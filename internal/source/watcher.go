package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/sweeney/okay-to-wake/internal/metrics"
	"github.com/sweeney/okay-to-wake/internal/parse"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher ingests a local schedule file whenever it is written. The file's
// directory is watched rather than the file itself, so replacing the file
// by rename is seen too.
type Watcher struct {
	path     string
	kind     parse.Kind
	ingester Ingester
	logger   *zap.Logger
	metrics  *metrics.Metrics
	watcher  *fsnotify.Watcher

	// Debounce is how long the file must be quiet before it is read.
	Debounce time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher returns a Watcher for path. The payload kind follows the file
// extension. m may be nil.
func NewWatcher(path string, ing Ingester, logger *zap.Logger, m *metrics.Metrics) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schedule path: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{
		path:     abs,
		kind:     KindForPath(abs),
		ingester: ing,
		logger:   logger.With(zap.String("component", "watcher"), zap.String("path", abs)),
		metrics:  m,
		watcher:  fw,
		Debounce: DefaultDebounce,
		done:     make(chan struct{}),
	}, nil
}

// Start ingests the file once if it exists and then watches for changes
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch schedule directory %s: %w", dir, err)
	}
	w.logger.Info("watching schedule file")

	if _, err := os.Stat(w.path); err == nil {
		w.load()
	}
	go w.watchLoop(ctx)
	return nil
}

// Stop ends the watch.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) watchLoop(ctx context.Context) {
	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.logger.Debug("schedule file changed", zap.String("op", event.Op.String()))
				w.trigger()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.logger.Warn("schedule file removed, keeping active schedule")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.metrics.ObserveSourceError(NameFile)
			w.logger.Error("file watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.Debounce, w.load)
}

func (w *Watcher) load() {
	select {
	case <-w.done:
		return
	default:
	}

	payload, err := os.ReadFile(w.path)
	if err != nil {
		w.metrics.ObserveSourceError(NameFile)
		w.logger.Warn("failed to read schedule file", zap.Error(err))
		return
	}
	if _, err := w.ingester.IngestFrom(NameFile, payload, w.kind); err != nil {
		w.logger.Warn("schedule file not applied", zap.Error(err))
	}
}
