package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"

	"cortex/internal/logging"
)

// Watcher watches the config file on disk and reloads it on change,
// backing the daemon's config.reload method with an
// fsnotify watch on the config file.
type Watcher struct {
	mu       sync.RWMutex
	cfg      *Config
	path     string
	fsw      *fsnotify.Watcher
	onReload func(*Config)
	done     chan struct{}
}

// NewWatcher starts watching path for changes, reloading into cfg on
// write/create events. Pass onReload to be notified after each reload;
// it may be nil.
func NewWatcher(path string, initial *Config, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(path); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		cfg:      initial,
		path:     path,
		fsw:      fsw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	log := logging.Get(logging.CategoryBoot)
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				log.Warn("config reload failed: %v", err)
				continue
			}
			log.Info("config reloaded from %s", w.path)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warn("config watcher error: %v", err)
		case <-w.done:
			return
		}
	}
}

// Reload re-reads the config file and, on success, swaps it in and invokes
// onReload. Also called directly by the daemon's config.reload RPC.
func (w *Watcher) Reload() error {
	cfg, err := Load(w.path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.cfg = cfg
	w.mu.Unlock()
	if w.onReload != nil {
		w.onReload(cfg)
	}
	return logging.ReloadConfig()
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.cfg
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
