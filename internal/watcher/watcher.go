// Package watcher reports edits made to the data file by other processes.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/itsbohara/anchor/internal/storage"
)

// DefaultDebounce coalesces the burst of events an editor or an atomic
// rename produces.
const DefaultDebounce = 200 * time.Millisecond

// Watch observes file until ctx is cancelled and calls onChange when its
// content changes to something other than what ownSum reports.
//
// The parent directory is watched rather than the file itself so that
// rename-based saves keep being observed after the inode is replaced.
func Watch(ctx context.Context, file string, ownSum func() string, logger *slog.Logger, onChange func()) error {
	return watch(ctx, file, ownSum, DefaultDebounce, logger, onChange)
}

func watch(ctx context.Context, file string, ownSum func() string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("file", abs))

	lastSeen := digest(abs)

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			timer = nil
			fire = nil
			sum := digest(abs)
			if sum == lastSeen {
				continue
			}
			lastSeen = sum
			if ownSum != nil && sum == ownSum() {
				logger.Debug("watcher: own write ignored")
				continue
			}
			logger.Debug("watcher: external change", slog.String("file", abs))
			if onChange != nil {
				onChange()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// digest returns the checksum of the file, or "" when it is missing.
func digest(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return "unreadable"
		}
		return ""
	}
	return storage.Checksum(data)
}
