package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/signstock-backend/pkg/logger"
	"github.com/angelmondragon/signstock-backend/pkg/metrics"
)

type fakeLock struct {
	acquired   bool
	acquireErr error
	releases   int
	releaseErr error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(ctx context.Context) error {
	f.acquired = false
	f.releases++
	f.releaseErr = ctx.Err()
	return nil
}

type testJob struct {
	name  string
	err   error
	runs  int
	onRun func()
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	if t.onRun != nil {
		t.onRun()
	}
	return t.err
}

func discardLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	registry, err := NewRegistry(success, failure)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   discardLogger(),
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	result, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if len(result.Ran) != 2 || len(result.Failed) != 1 || result.Failed[0] != "fail" {
		t.Fatalf("unexpected result %+v", result)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock released once, got %d", lock.releases)
	}

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	failures := 0.0
	for _, mf := range mfs {
		if mf.GetName() != "signstock_cron_job_runs_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "result" && l.GetValue() == "failure" {
					failures += m.GetCounter().GetValue()
				}
			}
		}
	}
	if failures != 1 {
		t.Fatalf("expected one failed run recorded, got %v", failures)
	}
}

func TestServiceRunOnceSkipsWhenLockHeld(t *testing.T) {
	job := &testJob{name: "ledger-audit"}
	registry, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   discardLogger(),
		Registry: registry,
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	result, err := service.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if !result.Skipped || job.runs != 0 {
		t.Fatalf("expected skipped cycle, got %+v runs=%d", result, job.runs)
	}
}

func TestServiceReleasesLockAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	registry, err := NewRegistry(&testJob{name: "outbox-retention", onRun: cancel})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{Logger: discardLogger(), Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	if _, err := service.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if lock.releases != 1 {
		t.Fatalf("expected one release, got %d", lock.releases)
	}
	if lock.releaseErr != nil {
		t.Fatalf("release ran with a dead context: %v", lock.releaseErr)
	}
}

func TestServiceRunOnceLockError(t *testing.T) {
	service, err := NewService(ServiceParams{
		Logger: discardLogger(),
		Lock:   &fakeLock{acquireErr: errors.New("redis down")},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if _, err := service.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected lock error")
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	job := &testJob{name: "outbox-retention"}
	registry, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   discardLogger(),
		Registry: registry,
		Lock:     &fakeLock{},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestNewServiceRequiresLoggerAndLock(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatalf("expected logger error")
	}
	if _, err := NewService(ServiceParams{Logger: discardLogger()}); err == nil {
		t.Fatalf("expected lock error")
	}
}

func TestServiceNextRun(t *testing.T) {
	base := time.Date(2026, 3, 4, 10, 30, 0, 0, time.UTC)

	interval, err := NewService(ServiceParams{Logger: discardLogger(), Lock: &fakeLock{}, Interval: 6 * time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	interval.now = func() time.Time { return base }
	if got := interval.NextRun(); !got.Equal(base.Add(6 * time.Hour)) {
		t.Fatalf("unexpected interval next run %s", got)
	}

	scheduled, err := NewService(ServiceParams{
		Logger:   discardLogger(),
		Lock:     &fakeLock{},
		Interval: 6 * time.Hour,
		Schedule: "0 3 * * *",
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	scheduled.now = func() time.Time { return base }
	want := time.Date(2026, 3, 5, 3, 0, 0, 0, time.UTC)
	if got := scheduled.NextRun(); !got.Equal(want) {
		t.Fatalf("expected schedule to win over interval, got %s", got)
	}

	if _, err := NewService(ServiceParams{Logger: discardLogger(), Lock: &fakeLock{}, Schedule: "every day"}); err == nil {
		t.Fatalf("expected invalid schedule to fail")
	}
}
