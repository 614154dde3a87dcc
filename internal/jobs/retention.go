package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emrgen/revision/internal/service"
)

// RetentionTask runs the auto-save retention sweep on a cron schedule.
type RetentionTask struct {
	autosaves *service.AutosaveService
	cron      string
}

func NewRetentionTask(schedule string, autosaves *service.AutosaveService) *RetentionTask {
	if schedule == "" {
		schedule = "@hourly"
	}
	return &RetentionTask{
		autosaves: autosaves,
		cron:      schedule,
	}
}

func (r *RetentionTask) Schedule() string {
	return r.cron
}

func (r *RetentionTask) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := r.autosaves.SweepStale(ctx); err != nil {
		logrus.Errorf("retention sweep failed: %v", err)
	}
}
