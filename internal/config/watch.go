package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce batches the bursts of events editors produce on save.
const reloadDebounce = 250 * time.Millisecond

// Watch reloads configPath whenever it changes and, if the new file is
// valid, installs it as the global configuration and calls onChange.
// Invalid files are logged and the running configuration is kept.
// Watch blocks until ctx is done.
func Watch(ctx context.Context, configPath string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watch: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors often replace the file instead of writing it.
	dir := filepath.Dir(configPath)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("config watch %s: %w", dir, err)
	}
	target := filepath.Clean(configPath)
	log.Printf("config: watching %s for changes", target)

	timer := time.NewTimer(reloadDebounce)
	timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				if !pending {
					pending = true
					timer.Reset(reloadDebounce)
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: watch error: %v", err)

		case <-timer.C:
			pending = false
			cfg, err := Load(configPath)
			if err != nil {
				log.Printf("config: reload of %s rejected, keeping current config: %v", target, err)
				continue
			}
			swap(cfg)
			log.Printf("config: reloaded %s", target)
			if onChange != nil {
				onChange(cfg)
			}
		}
	}
}
