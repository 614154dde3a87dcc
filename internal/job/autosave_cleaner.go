package job

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/revision/internal/service"
)

// AutoSaveCleaner periodically removes auto-save snapshots that fell
// out of the retention window.
type AutoSaveCleaner struct {
	autosaves *service.AutosaveService
	interval  time.Duration
	done      chan struct{}
}

// NewAutoSaveCleaner creates a new AutoSaveCleaner instance.
func NewAutoSaveCleaner(autosaves *service.AutosaveService, interval time.Duration) *AutoSaveCleaner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &AutoSaveCleaner{
		autosaves: autosaves,
		interval:  interval,
		done:      make(chan struct{}),
	}
}

func (c *AutoSaveCleaner) Stop() {
	close(c.done)
}

func (c *AutoSaveCleaner) Run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *AutoSaveCleaner) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := c.autosaves.SweepStale(ctx)
	if err != nil {
		logrus.Errorf("auto-save sweep failed: %v", err)
		return
	}

	if removed > 0 {
		logrus.Infof("auto-save sweep removed %d snapshots", removed)
	}
}
