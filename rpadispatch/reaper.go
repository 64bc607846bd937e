package rpadispatch

import (
	"context"
	"time"

	"github.com/coverlane/agency_backend/config"
	"github.com/coverlane/agency_backend/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// staleTaskAge is how long a task may sit non-terminal before the reaper
// fails it. Bots that die mid-run never report back; without this, agents
// would watch a progress bar forever.
const staleTaskAge = 24 * time.Hour

// StartStaleTaskReaper runs a background sweep every 10 minutes that marks
// tasks stuck non-terminal past staleTaskAge as failed. Task records are
// only ever updated in place, never deleted.
func StartStaleTaskReaper(logger *logrus.Logger) *cron.Cron {
	c := cron.New()
	_, err := c.AddFunc("@every 10m", func() {
		reapStaleTasks(context.Background(), logger, time.Now())
	})
	if err != nil {
		config.LogError(logger, "rpadispatch", "StartStaleTaskReaper", "AddFunc", nil, err)
		return c
	}
	c.Start()
	return c
}

func reapStaleTasks(ctx context.Context, logger *logrus.Logger, now time.Time) {
	db := config.GetDB()
	if db == nil {
		return
	}

	var subs []*models.Submission
	if err := db.WithContext(ctx).
		Where("status = ?", models.SubmissionStatusSubmitted).
		Find(&subs).Error; err != nil {
		config.LogError(logger, "rpadispatch", "reapStaleTasks", "load submissions", nil, err)
		return
	}

	cutoff := now.Add(-staleTaskAge)
	for _, sub := range subs {
		tasks := sub.RpaTasks()
		changed := false
		for _, task := range tasks {
			if task == nil || task.Status.IsTerminal() {
				continue
			}
			if task.SubmittedAt == nil || task.SubmittedAt.After(cutoff) {
				continue
			}
			if err := task.Fail("automation timed out", "no status update within 24h", now); err != nil {
				continue
			}
			changed = true
		}
		if !changed {
			continue
		}
		if err := models.UpdateSubmissionTasks(ctx, sub, tasks); err != nil {
			config.LogError(logger, "rpadispatch", "reapStaleTasks", "persist tasks", sub.ID, err)
		}
	}
}
