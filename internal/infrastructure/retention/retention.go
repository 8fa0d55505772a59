// Package retention runs the notification prune on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/adhocore/gronx"
	"github.com/dustin/go-humanize"

	"courtside/pkg/logger"
)

// Pruner deletes stale records and reports how many went.
type Pruner interface {
	PruneAll(ctx context.Context) (int, error)
}

type Job struct {
	cron   string
	pruner Pruner
	now    func() time.Time

	mu      sync.Mutex
	running bool
	lastRun time.Time
	total   int
}

func NewJob(cron string, pruner Pruner) (*Job, error) {
	if !gronx.IsValid(cron) {
		return nil, fmt.Errorf("retention: invalid cron expression %q", cron)
	}
	return &Job{cron: cron, pruner: pruner, now: time.Now}, nil
}

// Start runs the schedule loop until ctx ends.
func (j *Job) Start(ctx context.Context) {
	logger.Info("Notification retention scheduled (%s)", j.cron)
	go j.scheduleLoop(ctx)
}

func (j *Job) scheduleLoop(ctx context.Context) {
	for {
		next, err := j.Next()
		if err != nil {
			logger.Error("Retention next tick failed: %v", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			j.RunOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Next returns the next scheduled run after now.
func (j *Job) Next() (time.Time, error) {
	return gronx.NextTickAfter(j.cron, j.now(), false)
}

// RunOnce prunes now. Overlapping runs are skipped.
func (j *Job) RunOnce(ctx context.Context) (int, error) {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return 0, nil
	}
	j.running = true
	j.mu.Unlock()

	started := j.now()
	n, err := j.pruner.PruneAll(ctx)

	j.mu.Lock()
	j.running = false
	j.lastRun = started
	j.total += n
	total := j.total
	j.mu.Unlock()

	if err != nil {
		logger.Error("Notification retention run failed after %s deleted: %v", humanize.Comma(int64(n)), err)
		return n, err
	}
	logger.Info("Notification retention removed %s notifications (%s since start)",
		humanize.Comma(int64(n)), humanize.Comma(int64(total)))
	return n, nil
}

// LastRun reports when the job last ran, humanized for status output.
func (j *Job) LastRun() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.lastRun.IsZero() {
		return "never"
	}
	return humanize.RelTime(j.lastRun, j.now(), "ago", "from now")
}
