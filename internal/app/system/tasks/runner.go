// internal/app/system/tasks/runner.go
package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bloomcycle/bloom/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ErrUnknownJob is returned by RunOnce for a name that was never registered.
var ErrUnknownJob = errors.New("tasks: unknown job")

// Job is a task run once at Start and then every Interval.
type Job struct {
	Name     string
	Interval time.Duration
	// Timeout bounds one run; zero means timeouts.Long().
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// Result is the outcome of a job's most recent run.
type Result struct {
	Job      string
	At       time.Time
	Duration time.Duration
	Err      error
}

// Runner runs registered jobs on their own goroutines until Stop.
type Runner struct {
	logger *zap.Logger
	jobs   []Job
	wg     sync.WaitGroup
	cancel context.CancelFunc

	mu      sync.Mutex
	running map[string]bool
	last    map[string]Result
}

func New(logger *zap.Logger) *Runner {
	return &Runner{
		logger:  logger,
		running: make(map[string]bool),
		last:    make(map[string]Result),
	}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start schedules every registered job. Call Stop to shut down.
func (r *Runner) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel

	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.logger.Info("background task runner started", zap.Int("job_count", len(r.jobs)))
}

// Stop cancels all jobs and waits for in-flight runs until ctx is done.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("background task runner stopped gracefully")
		return nil
	case <-ctx.Done():
		r.logger.Warn("background task runner shutdown timed out",
			zap.Strings("jobs_still_running", r.Running()))
		return ctx.Err()
	}
}

// Running lists the jobs executing right now, sorted by name.
func (r *Runner) Running() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.running))
	for name := range r.running {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LastResults returns the latest result per job, sorted by job name.
func (r *Runner) LastResults() []Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Result, 0, len(r.last))
	for _, res := range r.last {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Job < out[j].Job })
	return out
}

// Healthy returns the first failure among the jobs' latest runs.
func (r *Runner) Healthy(context.Context) error {
	for _, res := range r.LastResults() {
		if res.Err != nil {
			return fmt.Errorf("job %s: %w", res.Job, res.Err)
		}
	}
	return nil
}

func (r *Runner) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	r.execute(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("job stopped", zap.String("job", job.Name))
			return
		case <-ticker.C:
			r.execute(ctx, job)
		}
	}
}

// execute runs job once, bounded by its timeout, and records the result.
// A panic fails the run instead of the process.
func (r *Runner) execute(parent context.Context, job Job) {
	r.mu.Lock()
	r.running[job.Name] = true
	r.mu.Unlock()

	timeout := job.Timeout
	if timeout <= 0 {
		timeout = timeouts.Long()
	}
	ctx, cancel := timeouts.WithTimeout(parent, timeout, r.logger, job.Name)
	start := time.Now()

	err := func() (err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		return job.Run(ctx)
	}()
	cancel()
	elapsed := time.Since(start)

	r.mu.Lock()
	delete(r.running, job.Name)
	if parent.Err() == nil {
		r.last[job.Name] = Result{Job: job.Name, At: start, Duration: elapsed, Err: err}
	}
	r.mu.Unlock()

	switch {
	case err != nil && parent.Err() != nil:
		r.logger.Debug("job cancelled during shutdown", zap.String("job", job.Name), zap.Duration("duration", elapsed))
	case err != nil:
		r.logger.Error("job failed", zap.String("job", job.Name), zap.Duration("duration", elapsed), zap.Error(err))
	default:
		r.logger.Debug("job completed", zap.String("job", job.Name), zap.Duration("duration", elapsed))
	}
}

// RunOnce runs the named job immediately, outside its schedule.
func (r *Runner) RunOnce(ctx context.Context, name string) error {
	for _, job := range r.jobs {
		if job.Name == name {
			return job.Run(ctx)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownJob, name)
}
