package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces bursts of file events into one reload.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the catalog whenever a file in its directory changes.
// It blocks until ctx is done. onReload, if non-nil, is called after every
// reload attempt.
func (c *Catalog) Watch(ctx context.Context, onReload func(LoadReport, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(c.dir); err != nil {
		return fmt.Errorf("watch %s: %w", c.dir, err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isWorkflowFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDelay)
			} else {
				timer.Reset(reloadDelay)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			report, err := c.Load()
			if err != nil {
				c.logger.Error("reload workflows", "error", err)
			} else {
				c.logger.Info("workflows reloaded", "loaded", report.Loaded, "rejected", len(report.Rejected))
			}
			if onReload != nil {
				onReload(report, err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("workflow watcher error", "error", err)
		}
	}
}
