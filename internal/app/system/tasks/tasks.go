// internal/app/system/tasks/tasks.go

// Package tasks runs periodic background jobs on a cron scheduler.
package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one periodic background task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner schedules jobs and runs them until Stop. Job panics are recovered
// by the cron layer so one bad run cannot take the process down.
type Runner struct {
	cron *cron.Cron
	log  *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	return &Runner{
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		log: log,
	}
}

// Add schedules a job at its interval. Jobs do not run at registration
// time; the first run happens one interval after Start.
func (r *Runner) Add(job Job) error {
	spec := fmt.Sprintf("@every %s", job.Interval)
	_, err := r.cron.AddFunc(spec, func() {
		start := time.Now()
		if err := job.Run(context.Background()); err != nil {
			r.log.Error("background job failed",
				zap.String("job", job.Name),
				zap.Error(err),
				zap.Duration("took", time.Since(start)),
			)
			return
		}
		r.log.Debug("background job completed",
			zap.String("job", job.Name),
			zap.Duration("took", time.Since(start)),
		)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	return nil
}

// Start launches the scheduler in its own goroutine.
func (r *Runner) Start() {
	r.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}
