package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/kiosk404/ferry/pkg/logger"
)

const watchDebounce = 300 * time.Millisecond

// ConfigWatcher calls onChange after the config file was written, created or
// replaced. Bursts of events within the debounce window collapse into one call.
type ConfigWatcher struct {
	path     string
	onChange func()
	watcher  *fsnotify.Watcher
	closeCh  chan struct{}
	once     sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// NewConfigWatcher watches the directory holding path, so that editors that
// replace the file by rename are noticed too.
func NewConfigWatcher(path string, onChange func()) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %q: %w", dir, err)
	}

	w := &ConfigWatcher{
		path:     abs,
		onChange: onChange,
		watcher:  watcher,
		closeCh:  make(chan struct{}),
	}
	go w.loop()
	logger.Debug("[ConfigWatcher] watching %s", abs)
	return w, nil
}

func (w *ConfigWatcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0 {
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[ConfigWatcher] %v", err)
		case <-w.closeCh:
			return
		}
	}
}

func (w *ConfigWatcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(watchDebounce, w.onChange)
}

// Close stops watching. Pending callbacks are dropped.
func (w *ConfigWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}
