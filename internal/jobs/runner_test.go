package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rpattn/sheetfed/internal/domain"
)

type funcExecutor func(ctx context.Context, jc domain.JobContext) error

func (f funcExecutor) Run(ctx context.Context, jc domain.JobContext) error {
	return f(ctx, jc)
}

func TestRunnerRecoversFromPanics(t *testing.T) {
	jobs := &stubJobs{}
	runner := NewRunner(funcExecutor(func(context.Context, domain.JobContext) error {
		panic("nil blueprint")
	}), jobs)

	runner.Launch(testJob)
	runner.Wait()

	last := jobs.last()
	assert.Equal(t, "fail", last.kind)
	assert.Equal(t, "panic: nil blueprint", last.update.Outcome.Message)
}

func TestRunnerAppliesTimeout(t *testing.T) {
	var observed error
	runner := NewRunner(funcExecutor(func(ctx context.Context, _ domain.JobContext) error {
		<-ctx.Done()
		observed = ctx.Err()
		return observed
	}), &stubJobs{}, WithJobTimeout(10*time.Millisecond))

	runner.Launch(testJob)
	runner.Wait()

	assert.True(t, errors.Is(observed, context.DeadlineExceeded))
}

func TestRunnerCancel(t *testing.T) {
	started := make(chan struct{})
	runner := NewRunner(funcExecutor(func(ctx context.Context, _ domain.JobContext) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}), &stubJobs{})

	runner.Launch(testJob)
	<-started
	require.True(t, runner.Cancel(testJob.JobID))
	runner.Wait()

	assert.False(t, runner.Cancel(testJob.JobID))
}

func TestRunnerRunsFederator(t *testing.T) {
	fx := newFixture(t)
	runner := NewRunner(fx.federator, fx.jobs)

	runner.Launch(testJob)
	runner.Wait()

	assert.Equal(t, "complete", fx.jobs.last().kind)
}
