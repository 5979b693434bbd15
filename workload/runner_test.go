package workload_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbench/shopbench-go/workload"
)

// recordingExecutor is a scripted workload.Executor for runner tests.
// It tracks the number of concurrently running operations so the tests can
// verify the worker pool bound.
type recordingExecutor struct {
	delay time.Duration
	err   error

	mu            sync.Mutex
	calls         int
	inFlight      int
	maxInFlight   int
	distinctSeeds map[int64]struct{}
}

func newRecordingExecutor(delay time.Duration) *recordingExecutor {
	return &recordingExecutor{
		delay:         delay,
		distinctSeeds: make(map[int64]struct{}),
	}
}

func (e *recordingExecutor) ExecuteOperation(
	_ context.Context,
	kind workload.OperationKind,
	rng *rand.Rand,
) workload.Report {
	e.mu.Lock()
	e.calls++
	e.inFlight++
	if e.inFlight > e.maxInFlight {
		e.maxInFlight = e.inFlight
	}
	e.distinctSeeds[rng.Int63()] = struct{}{}
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()

	if e.err != nil {
		return workload.Report{Kind: kind, Err: e.err}
	}

	if kind == workload.OpPlaceOrder {
		return workload.Report{
			Kind:         kind,
			RowsAffected: 1,
			Order: &workload.OrderOutcome{
				Status:    workload.OrderCommitted,
				ProductID: 1,
				UserID:    1,
				Quantity:  2,
			},
		}
	}

	return workload.Report{Kind: kind, RowsAffected: 1}
}

func Test_NewRunner_RejectsInvalidConfig(t *testing.T) {
	executor := newRecordingExecutor(0)

	t.Run("nil_executor", func(t *testing.T) {
		_, err := workload.NewRunner(nil, workload.RunnerConfig{})
		assert.ErrorIs(t, err, workload.ErrNilExecutor)
	})

	t.Run("negative_workers", func(t *testing.T) {
		_, err := workload.NewRunner(executor, workload.RunnerConfig{Workers: -1})
		assert.ErrorIs(t, err, workload.ErrInvalidWorkerCount)
	})

	t.Run("negative_operations", func(t *testing.T) {
		_, err := workload.NewRunner(executor, workload.RunnerConfig{Operations: -1})
		assert.ErrorIs(t, err, workload.ErrInvalidOperationCount)
	})
}

func Test_Runner_RunsExactlyTheConfiguredNumberOfOperations(t *testing.T) {
	executor := newRecordingExecutor(0)

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{
		Workers:    4,
		Operations: 200,
		Seed:       42,
	})
	require.NoError(t, err)

	summary, runErr := runner.Run(context.Background())
	require.NoError(t, runErr)

	assert.Equal(t, 200, executor.calls)
	assert.Equal(t, int64(200), summary.Operations)

	var perOperationTotal int64
	for _, count := range summary.PerOperation {
		perOperationTotal += count
	}
	assert.Equal(t, int64(200), perOperationTotal)

	assert.Equal(t, summary.PerOperation[workload.OpPlaceOrder.String()], summary.OrdersCommitted)
	assert.Equal(t, summary.OrdersCommitted*2, summary.OrderedQuantity)
	assert.Positive(t, summary.Duration)
}

func Test_Runner_NeverExceedsTheWorkerBound(t *testing.T) {
	executor := newRecordingExecutor(2 * time.Millisecond)

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{
		Workers:    5,
		Operations: 60,
		Seed:       42,
	})
	require.NoError(t, err)

	_, runErr := runner.Run(context.Background())
	require.NoError(t, runErr)

	assert.LessOrEqual(t, executor.maxInFlight, 5)
	assert.GreaterOrEqual(t, executor.maxInFlight, 2, "expected some overlap across workers")
}

func Test_Runner_WorkersDrawFromIndependentRandomSources(t *testing.T) {
	executor := newRecordingExecutor(time.Millisecond)

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{
		Workers:    8,
		Operations: 80,
		Seed:       7,
	})
	require.NoError(t, err)

	_, runErr := runner.Run(context.Background())
	require.NoError(t, runErr)

	// Seeds differ per worker, so the first draws must not all collide.
	assert.Greater(t, len(executor.distinctSeeds), 8)
}

func Test_Runner_CountsFailuresWithoutAbortingTheRun(t *testing.T) {
	executor := newRecordingExecutor(0)
	executor.err = errors.New("connection refused")

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{
		Workers:    3,
		Operations: 30,
		Seed:       42,
	})
	require.NoError(t, err)

	summary, runErr := runner.Run(context.Background())
	require.NoError(t, runErr)

	assert.Equal(t, int64(30), summary.Operations)
	assert.Equal(t, int64(30), summary.Failures)
}

func Test_Runner_StopsSubmittingWhenTheContextIsCanceled(t *testing.T) {
	executor := newRecordingExecutor(time.Millisecond)

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{
		Workers:    2,
		Operations: 100000,
		Seed:       42,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	summary, runErr := runner.Run(ctx)

	assert.ErrorIs(t, runErr, context.Canceled)
	assert.Less(t, summary.Operations, int64(100000))
	assert.Equal(t, int64(executor.calls), summary.Operations)
}

func Test_Runner_DefaultsConcurrencyAndVolume(t *testing.T) {
	executor := newRecordingExecutor(0)

	runner, err := workload.NewRunner(executor, workload.RunnerConfig{Operations: 10})
	require.NoError(t, err)

	summary, runErr := runner.Run(context.Background())
	require.NoError(t, runErr)

	assert.Equal(t, int64(10), summary.Operations)
}
