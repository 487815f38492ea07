package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"ignite/internal/logger"
)

const watchDebounce = 300 * time.Millisecond

// Watcher reloads a Store when its file is edited by another process
type Watcher struct {
	store   *Store
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
}

// NewWatcher creates a watcher for store's file
func NewWatcher(store *Store) *Watcher {
	return &Watcher{store: store}
}

// Start watches the settings directory. Saves are atomic renames, so the
// directory is watched rather than the file itself.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	logger.Info("config").Str("path", w.store.Path()).Msg("Started watching settings")

	go w.watch(watcher, w.stopCh, w.doneCh)
	return nil
}

// Stop ends watching. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return
	}
	close(w.stopCh)
	w.watcher.Close()
	<-w.doneCh
	w.watcher = nil
	logger.Info("config").Msg("Stopped watching settings")
}

func (w *Watcher) watch(watcher *fsnotify.Watcher, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	var debounceTimer *time.Timer
	target := filepath.Base(w.store.Path())

	reload := func() {
		if err := w.store.Reload(); err != nil {
			logger.Warn("config").Err(err).Msg("Settings reload failed")
			return
		}
		logger.Info("config").Msg("Settings reloaded")
	}

	for {
		select {
		case <-stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(watchDebounce, reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("config").Err(err).Msg("Settings watcher error")
		}
	}
}
