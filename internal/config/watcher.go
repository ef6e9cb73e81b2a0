package config

import (
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher polls a config file's modification time and reparses the file
// when it changes. Parse failures keep the previous config in effect.
type Watcher struct {
	path     string
	interval time.Duration
	logger   *slog.Logger
	onChange func(*Config)
	stop     chan struct{}
	once     sync.Once
	lastMod  time.Time
}

// NewWatcher creates a polling config watcher. onChange receives the
// freshly parsed config.
func NewWatcher(path string, interval time.Duration, logger *slog.Logger, onChange func(*Config)) *Watcher {
	return &Watcher{
		path:     path,
		interval: interval,
		logger:   logger.With("component", "config-watcher"),
		onChange: onChange,
		stop:     make(chan struct{}),
	}
}

// Start begins polling in a goroutine.
func (w *Watcher) Start() {
	if info, err := os.Stat(w.path); err == nil {
		w.lastMod = info.ModTime()
	}

	go w.poll()
	w.logger.Info("config watcher started", "path", w.path, "interval", w.interval)
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		w.logger.Info("config watcher stopped")
	})
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("cannot stat config file", "path", w.path, "error", err)
		return
	}

	modTime := info.ModTime()
	if !modTime.After(w.lastMod) {
		return
	}
	w.lastMod = modTime

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config changed but failed to parse, keeping previous", "path", w.path, "error", err)
		return
	}

	w.logger.Info("config reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(cfg)
	}
}
