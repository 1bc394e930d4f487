package schema

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize schema watcher")

// reloadDebounce absorbs the write bursts editors and atomic-save tools
// produce for a single logical change.
const reloadDebounce = 250 * time.Millisecond

// Watcher reloads the registry when the schema document changes on disk.
// A reload that fails leaves the previous snapshot serving; the failure
// is logged, not fatal.
type Watcher struct {
	registry *Registry
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stop     chan struct{}
}

// NewWatcher creates a watcher over the schema document path.
func NewWatcher(registry *Registry, path string, logger *zap.Logger) (*Watcher, error) {
	if registry == nil {
		return nil, errors.New("registry is required")
	}
	if path == "" {
		return nil, errors.New("schema document path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		registry: registry,
		path:     path,
		watcher:  fw,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

// Start begins watching. Events are processed in a background goroutine
// until Stop is called or the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.path); err != nil {
		return fmt.Errorf("watching schema document: %w", err)
	}

	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
		// Already stopped
		return
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

func (w *Watcher) processEvents(ctx context.Context) {
	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				// Atomic saves replace the file; re-add the watch so the
				// next write is still seen, then reload.
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					_ = w.watcher.Add(w.path)
				} else {
					continue
				}
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("schema watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	if err := w.registry.Reload(ctx); err != nil {
		w.logger.Warn("schema reload failed, keeping previous snapshot",
			zap.String("path", w.path),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("schema document reloaded",
		zap.String("path", w.path),
		zap.Int("programs", w.registry.Len()),
	)
}
