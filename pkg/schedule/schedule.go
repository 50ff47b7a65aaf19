package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"laptopprice/pkg/pipeline"
)

// Parse reads a standard 5-field cron expression
// (minute hour day-of-month month day-of-week), e.g. "0 3 * * *" for 03:00 daily.
func Parse(expr string) (cron.Schedule, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s, err := parser.Parse(strings.TrimSpace(expr))
	if err != nil {
		return nil, fmt.Errorf("schedule: invalid cron %q: %w", expr, err)
	}
	return s, nil
}

// Job is one scheduled retrain.
type Job func(ctx context.Context, trigger string) (*pipeline.Result, error)

// Scheduler triggers a retrain every time the schedule fires.
type Scheduler struct {
	sched cron.Schedule
	job   Job
	log   *slog.Logger
	now   func() time.Time
}

func New(sched cron.Schedule, job Job, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{sched: sched, job: job, log: log.With("component", "schedule"), now: time.Now}
}

// Run blocks until ctx is done. A failed or skipped run is logged and the
// loop waits for the next tick.
func (s *Scheduler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		now := s.now()
		next := s.sched.Next(now)
		if next.IsZero() {
			s.log.Warn("schedule never fires again, stopping")
			return
		}
		wait := next.Sub(now)
		s.log.Info("next scheduled training", "at", next.Format(time.RFC3339), "in", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		res, err := s.job(ctx, "schedule")
		switch {
		case errors.Is(err, pipeline.ErrTrainingInProgress):
			s.log.Warn("scheduled training skipped, another run is in progress")
		case err != nil:
			s.log.Error("scheduled training failed", "kind", pipeline.KindOf(err), "stage", pipeline.StageOf(err), "err", err)
		default:
			s.log.Info("scheduled training complete", "run_id", res.RunID, "status", res.Status, "version", res.Version)
		}
	}
}
