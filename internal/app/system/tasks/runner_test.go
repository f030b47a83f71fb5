package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/tasks"
	"go.uber.org/zap"
)

func stop(t *testing.T, r *tasks.Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

// waitFor polls cond for up to a second.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 1s")
}

func TestRunner_RunsAtStartAndOnInterval(t *testing.T) {
	r := tasks.New(zap.NewNop())
	var runs atomic.Int32
	r.Register(tasks.Job{
		Name:     "tick",
		Interval: 20 * time.Millisecond,
		Run: func(context.Context) error {
			runs.Add(1)
			return nil
		},
	})

	r.Start()
	waitFor(t, func() bool { return runs.Load() >= 3 })
	stop(t, r)
}

func TestRunner_StopTimesOutOnStuckJob(t *testing.T) {
	r := tasks.New(zap.NewNop())
	started := make(chan struct{})
	release := make(chan struct{})
	r.Register(tasks.Job{
		Name:     "stuck",
		Interval: time.Hour,
		Timeout:  time.Hour,
		Run: func(context.Context) error {
			close(started)
			<-release // ignores ctx on purpose
			return nil
		},
	})

	r.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := r.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}
	if got := r.Running(); len(got) != 1 || got[0] != "stuck" {
		t.Errorf("Running() = %v, want [stuck]", got)
	}
	close(release)
}

func TestRunner_RecordsResults(t *testing.T) {
	r := tasks.New(zap.NewNop())
	boom := errors.New("mongo down")
	r.Register(tasks.Job{Name: "ok", Interval: time.Hour, Run: func(context.Context) error { return nil }})
	r.Register(tasks.Job{Name: "bad", Interval: time.Hour, Run: func(context.Context) error { return boom }})

	r.Start()
	waitFor(t, func() bool { return len(r.LastResults()) == 2 })
	stop(t, r)

	results := r.LastResults()
	if results[0].Job != "bad" || !errors.Is(results[0].Err, boom) {
		t.Errorf("results[0] = %+v, want bad with error", results[0])
	}
	if results[1].Job != "ok" || results[1].Err != nil {
		t.Errorf("results[1] = %+v, want ok without error", results[1])
	}
	if err := r.Healthy(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Healthy() = %v, want wrapped %v", err, boom)
	}
}

func TestRunner_PanicFailsRun(t *testing.T) {
	r := tasks.New(zap.NewNop())
	r.Register(tasks.Job{Name: "panics", Interval: time.Hour, Run: func(context.Context) error { panic("nil map") }})

	r.Start()
	waitFor(t, func() bool { return len(r.LastResults()) == 1 })
	stop(t, r)

	if err := r.LastResults()[0].Err; err == nil {
		t.Error("panic was not recorded as a failure")
	}
}

func TestRunner_TimeoutCancelsRun(t *testing.T) {
	r := tasks.New(zap.NewNop())
	r.Register(tasks.Job{
		Name:     "slow",
		Interval: time.Hour,
		Timeout:  10 * time.Millisecond,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	r.Start()
	waitFor(t, func() bool { return len(r.LastResults()) == 1 })
	stop(t, r)

	if err := r.LastResults()[0].Err; !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Err = %v, want DeadlineExceeded", err)
	}
}

func TestRunner_RunOnce(t *testing.T) {
	r := tasks.New(zap.NewNop())
	var ran bool
	r.Register(tasks.Job{Name: "manual", Interval: time.Hour, Run: func(context.Context) error {
		ran = true
		return nil
	}})

	if err := r.RunOnce(context.Background(), "manual"); err != nil || !ran {
		t.Errorf("RunOnce(manual) = %v, ran %v", err, ran)
	}
	if err := r.RunOnce(context.Background(), "nope"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(nope) = %v, want ErrUnknownJob", err)
	}
}

func TestRunner_HealthyWithoutRuns(t *testing.T) {
	if err := tasks.New(zap.NewNop()).Healthy(context.Background()); err != nil {
		t.Errorf("Healthy() = %v, want nil", err)
	}
}
