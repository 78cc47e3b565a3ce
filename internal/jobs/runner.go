package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rpattn/sheetfed/internal/domain"
	"github.com/rpattn/sheetfed/internal/logging"
)

// Executor runs one job.
type Executor interface {
	Run(ctx context.Context, jc domain.JobContext) error
}

// FailureReporter fails a job that could not report its own failure.
type FailureReporter interface {
	Fail(ctx context.Context, jobID string, update domain.JobUpdate) error
}

// Runner launches jobs in the background with a timeout and panic recovery.
type Runner struct {
	executor Executor
	jobs     FailureReporter
	timeout  time.Duration
	logger   *zap.SugaredLogger

	wg      sync.WaitGroup
	cancels sync.Map // map[string]context.CancelFunc
}

type RunnerOption func(*Runner)

func WithJobTimeout(timeout time.Duration) RunnerOption {
	return func(r *Runner) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

func WithRunnerLogger(logger *zap.SugaredLogger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

func NewRunner(executor Executor, jobs FailureReporter, opts ...RunnerOption) *Runner {
	r := &Runner{
		executor: executor,
		jobs:     jobs,
		timeout:  30 * time.Minute,
		logger:   zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.OrNop(r.logger).Named(logging.ComponentJobs)
	return r
}

// Launch starts the job in a goroutine and returns immediately.
func (r *Runner) Launch(jc domain.JobContext) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	r.cancels.Store(jc.JobID, cancel)
	r.wg.Add(1)

	go func() {
		defer r.wg.Done()
		defer func() {
			cancel()
			r.cancels.Delete(jc.JobID)
		}()
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Errorw("panic while processing job", "job", jc.JobID, "panic", rec)
				r.failJob(jc.JobID, fmt.Errorf("panic: %v", rec))
			}
		}()

		r.logger.Infow("job launched", "job", jc.JobID, "workbook", jc.WorkbookID)
		if err := r.executor.Run(ctx, jc); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
				r.logger.Infow("job cancelled", "job", jc.JobID)
			case errors.Is(err, context.DeadlineExceeded):
				r.logger.Warnw("job timed out", "job", jc.JobID, "timeout", r.timeout)
			default:
				r.logger.Debugw("job returned error", "job", jc.JobID, "error", err)
			}
		}
	}()
}

// Cancel stops a running job. It reports whether the job was running.
func (r *Runner) Cancel(jobID string) bool {
	cancel, ok := r.cancels.LoadAndDelete(jobID)
	if !ok {
		return false
	}
	if fn, okCast := cancel.(context.CancelFunc); okCast {
		fn()
	}
	return true
}

// Wait blocks until every launched job has returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) failJob(jobID string, err error) {
	if r.jobs == nil {
		return
	}
	message := err.Error()
	if markErr := r.jobs.Fail(context.Background(), jobID, domain.JobUpdate{
		Info:    message,
		Outcome: &domain.JobOutcome{Message: message},
	}); markErr != nil {
		r.logger.Errorw("failed to mark job as failed", "job", jobID, "error", markErr, "cause", err)
	}
}
