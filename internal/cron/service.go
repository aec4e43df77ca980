package cron

import (
	"context"
	"fmt"
	"time"

	robfig "github.com/robfig/cron/v3"

	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
)

const (
	defaultInterval = 24 * time.Hour
	releaseTimeout  = 5 * time.Second
)

// ServiceParams configure the cron service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
	// Schedule is a standard five-field cron expression. It wins over Interval.
	Schedule string
}

// Service executes registered cron jobs on a fixed cadence.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	next     func(time.Time) time.Time
	now      func() time.Time
}

// CycleResult summarises one locked pass over the registry.
type CycleResult struct {
	Skipped bool
	Ran     []string
	Failed  []string
}

// NewService builds a cron service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = &Registry{}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	next := func(t time.Time) time.Time { return t.Add(interval) }
	if params.Schedule != "" {
		schedule, err := robfig.ParseStandard(params.Schedule)
		if err != nil {
			return nil, fmt.Errorf("parse cron schedule %q: %w", params.Schedule, err)
		}
		next = schedule.Next
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		next:     next,
		now:      time.Now,
	}, nil
}

// Run executes a cycle immediately, then one per scheduled tick until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}

		due := s.NextRun()
		s.logg.Info(s.logg.WithField(ctx, "next_run", due.Format(time.RFC3339)), "next scheduled run")
		timer := time.NewTimer(time.Until(due))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logg.Info(ctx, "cron service context canceled")
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// release frees the lock even when ctx was canceled mid-cycle, so a shutdown
// does not leave the lock held until its TTL runs out.
func (s *Service) release(ctx context.Context) {
	relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.lock.Release(relCtx); err != nil {
		s.logg.Error(ctx, "failed to release cron lock", err)
	}
}

// NextRun reports when the following cycle is due.
func (s *Service) NextRun() time.Time {
	return s.next(s.now())
}

// RunOnce takes the lock and runs every job once. A job failure does not stop
// the jobs after it; only lock errors are returned.
func (s *Service) RunOnce(ctx context.Context) (CycleResult, error) {
	var result CycleResult
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return result, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		s.logg.Info(ctx, "another cron instance is running; skipping this cycle")
		result.Skipped = true
		return result, nil
	}
	defer s.release(ctx)

	s.logg.Info(ctx, "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			break
		}
		result.Ran = append(result.Ran, job.Name())
		if err := s.runJob(ctx, job); err != nil {
			result.Failed = append(result.Failed, job.Name())
		}
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"jobs_run":    len(result.Ran),
		"jobs_failed": len(result.Failed),
	})
	s.logg.Info(logCtx, "scheduled run complete")
	return result, nil
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	jobCtx := s.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "cron.job",
	})
	s.logg.Info(jobCtx, "job start")
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "job failed", err)
		s.metrics.IncFailure(job.Name())
		return err
	}
	s.logg.Info(jobCtx, "job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
