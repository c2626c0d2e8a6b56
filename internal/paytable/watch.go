package paytable

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FileWatcher polls file modification times and triggers a callback on change.
// A file that is missing when the watcher starts fires once it appears.
type FileWatcher struct {
	paths    []string
	interval time.Duration
	onChange func(string)
	logger   *zap.Logger

	lastMTime map[string]time.Time
	wg        sync.WaitGroup
}

// NewFileWatcher creates a watcher for paths. A nil logger discards output.
func NewFileWatcher(paths []string, interval time.Duration, onChange func(string), logger *zap.Logger) *FileWatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileWatcher{
		paths:     append([]string(nil), paths...),
		interval:  interval,
		onChange:  onChange,
		logger:    logger,
		lastMTime: make(map[string]time.Time),
	}
}

// Start records the current mtimes and then polls until ctx is done.
func (w *FileWatcher) Start(ctx context.Context) {
	w.scanAll(true)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.scanAll(false)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until the polling goroutine has exited.
func (w *FileWatcher) Wait() { w.wg.Wait() }

func (w *FileWatcher) scanAll(prime bool) {
	for _, p := range w.paths {
		fi, err := os.Stat(p)
		if err != nil {
			if !os.IsNotExist(err) {
				w.logger.Warn("stat watched file", zap.String("path", p), zap.Error(err))
			}
			continue
		}
		mt := fi.ModTime()
		last, seen := w.lastMTime[p]
		if seen && !mt.After(last) {
			continue
		}
		w.lastMTime[p] = mt
		if prime || w.onChange == nil {
			continue
		}
		w.logger.Info("watched file changed", zap.String("path", p), zap.Time("mtime", mt))
		w.onChange(p)
	}
}
