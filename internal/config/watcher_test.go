package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func watcherLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatcherDetectsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := make(chan *Config, 1)
	w := NewWatcher(path, 50*time.Millisecond, watcherLogger(), func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	cfg.LogLevel = "debug"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	// Coarse mtime filesystems need the timestamp to move.
	now := time.Now().Add(time.Second)
	os.Chtimes(path, now, now)

	select {
	case c := <-reloaded:
		if c.LogLevel != "debug" {
			t.Errorf("expected reloaded logLevel debug, got %q", c.LogLevel)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not detect change within timeout")
	}
}

func TestWatcherKeepsPreviousOnParseFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	called := make(chan struct{}, 1)
	w := NewWatcher(path, 50*time.Millisecond, watcherLogger(), func(c *Config) {
		called <- struct{}{}
	})
	w.Start()
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	os.WriteFile(path, []byte("{broken"), 0644)
	now := time.Now().Add(time.Second)
	os.Chtimes(path, now, now)

	select {
	case <-called:
		t.Fatal("onChange fired for unparseable config")
	case <-time.After(500 * time.Millisecond):
	}
}

func TestWatcherStop(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	if err := DefaultConfig().Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	w := NewWatcher(path, 50*time.Millisecond, watcherLogger(), nil)
	w.Start()
	w.Stop()
	w.Stop() // double stop should not panic
}
