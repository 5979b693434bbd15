package workload

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultWorkers bounds concurrency; it is the only throttle on how many
	// transactions may contend for the same product row at once.
	DefaultWorkers = 20

	// DefaultOperations is the total number of operation units submitted per run.
	DefaultOperations = 5000

	logMsgRunStarting        = "workload run starting"
	logMsgRunCompleted       = "workload run completed"
	logMsgRunCanceled        = "workload run canceled"
	logMsgOperationFailed    = "operation failed"
	logAttrRunID             = "run_id"
	logAttrWorkers           = "workers"
	logAttrOperations        = "operations"
	logAttrOperation         = "operation"
	logAttrError             = "error"
	logAttrFailures          = "failures"
	logAttrOrdersCommitted   = "orders_committed"
	logAttrInsufficientStock = "insufficient_stock"
	logAttrDurationMS        = "duration_ms"

	metricOperationDuration = "workload_operation_duration"
	metricOperationTotal    = "workload_operations_total"
	labelOperation          = "operation"
	labelStatus             = "status"
	statusOK                = "ok"
	statusFailed            = "failed"
	statusInsufficientStock = "insufficient_stock"
)

// Executor runs a single workload operation of the given kind to completion,
// using the supplied randomness source for parameter selection.
// Implementations must give each invocation its own database session.
type Executor interface {
	ExecuteOperation(ctx context.Context, kind OperationKind, rng *rand.Rand) Report
}

// RunnerConfig holds the externally meaningful workload knobs.
type RunnerConfig struct {
	Workers    int
	Operations int
	Mix        Mix
	Seed       int64
}

// Runner submits a configurable number of operation units to a fixed-size
// worker pool and blocks until all of them have completed. Per-operation
// failures are isolated and counted; they never abort sibling operations.
type Runner struct {
	executor Executor
	config   RunnerConfig
	logger   Logger
	metrics  MetricsCollector

	mu      sync.Mutex
	summary Summary
}

// RunnerOption defines a functional option for configuring a Runner.
type RunnerOption func(*Runner) error

// WithRunnerLogger sets the logger for the Runner.
func WithRunnerLogger(logger Logger) RunnerOption {
	return func(r *Runner) error {
		r.logger = logger
		return nil
	}
}

// WithRunnerMetrics sets the metrics collector for the Runner.
func WithRunnerMetrics(metrics MetricsCollector) RunnerOption {
	return func(r *Runner) error {
		r.metrics = metrics
		return nil
	}
}

// NewRunner creates a Runner for the given executor with optional configuration.
// Zero values in the config fall back to DefaultWorkers, DefaultOperations and
// the uniform operation mix.
func NewRunner(executor Executor, config RunnerConfig, options ...RunnerOption) (*Runner, error) {
	if executor == nil {
		return nil, ErrNilExecutor
	}

	if config.Workers == 0 {
		config.Workers = DefaultWorkers
	}
	if config.Workers < 0 {
		return nil, ErrInvalidWorkerCount
	}

	if config.Operations == 0 {
		config.Operations = DefaultOperations
	}
	if config.Operations < 0 {
		return nil, ErrInvalidOperationCount
	}

	if config.Mix.total == 0 {
		config.Mix = UniformMix()
	}

	r := &Runner{
		executor: executor,
		config:   config,
	}

	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Run executes the configured number of operations on the worker pool and
// returns the aggregate summary once every submitted unit has completed.
//
// When the context is canceled, no further operations are submitted; the
// summary of the operations completed so far is returned together with the
// context error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	runID := uuid.NewString()
	start := time.Now()

	r.mu.Lock()
	r.summary = newSummary()
	r.mu.Unlock()

	r.logInfo(logMsgRunStarting,
		logAttrRunID, runID,
		logAttrWorkers, r.config.Workers,
		logAttrOperations, r.config.Operations)

	jobs := make(chan struct{})

	var wg sync.WaitGroup
	for worker := 0; worker < r.config.Workers; worker++ {
		wg.Add(1)

		// Each worker owns its randomness; there is no process-wide source.
		rng := rand.New(rand.NewSource(r.config.Seed + int64(worker))) //nolint:gosec // workload parameter selection, not crypto

		go func(rng *rand.Rand) {
			defer wg.Done()

			for range jobs {
				r.executeOne(ctx, rng)
			}
		}(rng)
	}

	var runErr error

submitLoop:
	for i := 0; i < r.config.Operations; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
			break submitLoop
		case jobs <- struct{}{}:
		}
	}

	close(jobs)
	wg.Wait()

	r.mu.Lock()
	r.summary.Duration = time.Since(start)
	summary := r.summary
	r.mu.Unlock()

	msg := logMsgRunCompleted
	if runErr != nil {
		msg = logMsgRunCanceled
	}

	r.logInfo(msg,
		logAttrRunID, runID,
		logAttrOperations, summary.Operations,
		logAttrFailures, summary.Failures,
		logAttrOrdersCommitted, summary.OrdersCommitted,
		logAttrInsufficientStock, summary.InsufficientStock,
		logAttrDurationMS, durationToMilliseconds(summary.Duration))

	return summary, runErr
}

// executeOne dispatches a single operation unit and folds its report into the summary.
func (r *Runner) executeOne(ctx context.Context, rng *rand.Rand) {
	kind := r.config.Mix.Pick(rng)

	start := time.Now()
	report := r.executor.ExecuteOperation(ctx, kind, rng)
	duration := time.Since(start)

	if report.Failed() {
		r.logWarn(logMsgOperationFailed,
			logAttrOperation, kind.String(),
			logAttrError, reportError(report))
	}

	r.collectMetrics(kind, report, duration)

	r.mu.Lock()
	r.summary.record(report)
	r.mu.Unlock()
}

// collectMetrics records duration and outcome counters if a collector is configured.
func (r *Runner) collectMetrics(kind OperationKind, report Report, duration time.Duration) {
	if r.metrics == nil {
		return
	}

	labels := map[string]string{
		labelOperation: kind.String(),
		labelStatus:    reportStatus(report),
	}

	r.metrics.RecordDuration(metricOperationDuration, duration, labels)
	r.metrics.IncrementCounter(metricOperationTotal, labels)
}

// reportStatus maps a report to its metric status label.
func reportStatus(report Report) string {
	if report.Order != nil && report.Order.Status == OrderInsufficientStock {
		return statusInsufficientStock
	}

	if report.Failed() {
		return statusFailed
	}

	return statusOK
}

// reportError extracts the error message from a report for logging.
func reportError(report Report) string {
	if report.Err != nil {
		return report.Err.Error()
	}

	if report.Order != nil && report.Order.Err != nil {
		return report.Order.Err.Error()
	}

	return ""
}

func (r *Runner) logInfo(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

// durationToMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func durationToMilliseconds(d time.Duration) float64 {
	ms := float64(d.Nanoseconds()) / 1e6
	return float64(int64(ms*1000)) / 1000
}
