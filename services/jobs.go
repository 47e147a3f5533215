package services

import (
	"context"
	"fmt"
	"time"

	"storefront_server/structs"

	"github.com/MonkyMars/gecho"
	"github.com/robfig/cron/v3"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Jobs runs the periodic maintenance tasks.
type Jobs struct {
	logger  *gecho.Logger
	sched   *cron.Cron
	timeout time.Duration
}

func NewJobs(logger *gecho.Logger, cfg *structs.JobsConfig) *Jobs {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("Unknown job timezone, using UTC", gecho.Field("timezone", cfg.Timezone))
		loc = time.UTC
	}

	return &Jobs{
		logger:  logger,
		sched:   cron.New(cron.WithLocation(loc), cron.WithParser(cronParser)),
		timeout: 10 * time.Minute,
	}
}

// Add registers fn under schedule. An empty schedule leaves the job disabled.
func (j *Jobs) Add(name, schedule string, fn func(ctx context.Context) error) error {
	if schedule == "" {
		j.logger.Info("Job disabled", gecho.Field("job", name))
		return nil
	}

	_, err := j.sched.AddFunc(schedule, func() {
		j.run(name, fn)
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}

	j.logger.Info("Job scheduled", gecho.Field("job", name), gecho.Field("schedule", schedule))
	return nil
}

func (j *Jobs) run(name string, fn func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			j.logger.Error("Job panicked", gecho.Field("job", name), gecho.Field("panic", fmt.Sprint(r)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	started := time.Now()
	if err := fn(ctx); err != nil {
		j.logger.Error("Job failed", gecho.Field("job", name), gecho.Field("error", err))
		return
	}
	j.logger.Debug("Job finished", gecho.Field("job", name), gecho.Field("duration", time.Since(started).String()))
}

func (j *Jobs) Start() {
	j.sched.Start()
}

// Stop stops scheduling and waits for running jobs until ctx is done.
func (j *Jobs) Stop(ctx context.Context) error {
	select {
	case <-j.sched.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
