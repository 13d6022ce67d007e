// Package job implements the function descriptor and local runner: the
// per-function metadata (name, priority, retry budget, lazy-queue hint,
// whether to publish results) plus the client-facing submission paths
// (RunLocally, RunRemotely, AddToQueue) and the worker-side adapter that
// lets a Function satisfy broker.TaskExecutor.
package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/jobbroker/internal/broker"
	"github.com/shaiso/jobbroker/internal/config"
	"github.com/shaiso/jobbroker/internal/fingerprint"
	"github.com/shaiso/jobbroker/internal/metrics"
	"github.com/shaiso/jobbroker/internal/telemetry"
)

// Run is the user-supplied work routine a Function wraps. Args are a
// mapping from string to JSON-serializable value; the result must be
// JSON-serializable (nil is fine).
type Run func(ctx context.Context, args map[string]any) (any, error)

// Function is the per-function descriptor: immutable metadata plus the
// user routine, and the client submission paths that use it.
type Function struct {
	Name           string
	Priority       broker.Priority
	Retries        int
	LazyQueue      bool
	PublishResults bool

	run    Run
	broker broker.Broker
}

// Config is the constructor input for New. Broker may be nil: New then
// uses the process-wide default broker, and if none is installed only
// RunLocally is usable.
type Config struct {
	Name           string
	Priority       broker.Priority
	Retries        int
	LazyQueue      bool
	PublishResults bool
	Run            Run
	Broker         broker.Broker
}

// New builds a Function descriptor. Priority defaults to normal. If
// cfg.Broker is nil, the process-wide default Configuration's broker
// is used instead (config.SetDefault); RunRemotely/AddToQueue/
// RunWorkers still fail clearly if neither was ever supplied.
func New(cfg Config) *Function {
	priority := cfg.Priority
	if priority == "" {
		priority = broker.PriorityNormal
	}

	b := cfg.Broker
	if b == nil {
		if defaultCfg := config.Default(); defaultCfg != nil {
			b = defaultCfg.Broker
		}
	}

	return &Function{
		Name:           cfg.Name,
		Priority:       priority,
		Retries:        cfg.Retries,
		LazyQueue:      cfg.LazyQueue,
		PublishResults: cfg.PublishResults,
		run:            cfg.Run,
		broker:         b,
	}
}

// RunLocally executes the function in-process under a retry loop: up to
// Retries+1 attempts, each failure logged with the captured error,
// success returning immediately, final failure raising. Total
// wall-clock elapsed is logged and recorded as an execution-duration
// metric observation.
func (f *Function) RunLocally(ctx context.Context, args map[string]any) (any, error) {
	jobID := fingerprint.PathSafeJobID(f.Name, args)
	logger := telemetry.WithFunctionName(telemetry.WithJobID(telemetry.FromContext(ctx), jobID), f.Name)
	ctx = telemetry.WithLogger(ctx, logger)

	start := time.Now()
	result, err := f.runWithRetry(ctx, logger, jobID, args)
	metrics.ObserveExecutionDuration(f.Name, time.Since(start).Seconds())
	logger.Info("local run finished", "elapsed", time.Since(start), "ok", err == nil)

	if err != nil {
		metrics.IncFailed(f.Name)
		return nil, err
	}
	metrics.IncSucceeded(f.Name)
	return result, nil
}

func (f *Function) runWithRetry(ctx context.Context, logger *slog.Logger, jobID string, args map[string]any) (any, error) {
	attempts := f.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := f.safeRun(ctx, jobID, args)
		if err == nil {
			return result, nil
		}
		lastErr = err
		logger.Warn("attempt failed", "attempt", attempt, "attempts_allowed", attempts, "error", err)
	}
	return nil, fmt.Errorf("%w: %s exhausted %d attempt(s): %v", broker.ErrJobFailed, f.Name, attempts, lastErr)
}

// safeRun converts a panic inside the user routine into an error instead
// of crashing the caller — the worker loop and RunLocally share this
// behavior.
func (f *Function) safeRun(ctx context.Context, jobID string, args map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s panicked: %v", broker.ErrJobFailed, f.Name, r)
		}
	}()
	return f.run(ctx, args)
}

// RunRemotely submits the job to the broker and blocks for its result.
func (f *Function) RunRemotely(ctx context.Context, args map[string]any) (any, error) {
	if f.broker == nil {
		return nil, fmt.Errorf("job: %s: no broker configured", f.Name)
	}
	return f.broker.RunJobSync(ctx, f.Name, args, f.Priority, f.Retries)
}

// AddToQueue submits the job to the broker without waiting for a
// result, returning the minted job id.
func (f *Function) AddToQueue(ctx context.Context, args map[string]any) (string, error) {
	if f.broker == nil {
		return "", fmt.Errorf("job: %s: no broker configured", f.Name)
	}
	return f.broker.RunJobAsync(ctx, f.Name, args, f.Priority, f.Retries)
}

// Execute adapts Function to broker.TaskExecutor for worker-side use.
// The caller (rabbitmq.handleDelivery) already attaches a function- and
// job-scoped logger to ctx via telemetry.WithLogger before invoking this;
// Execute just pulls it back out rather than building its own, so a
// direct call (e.g. from a test, with no logger in ctx) still works by
// falling back to telemetry.FromContext's default. Execution and
// success/failure metrics are the caller's responsibility (the worker
// loop records them once per delivery); Execute only runs the retry
// loop and logs attempts.
func (f *Function) Execute(ctx context.Context, celeryJobID string, args map[string]any) (any, error) {
	logger := telemetry.FromContext(ctx)
	return f.runWithRetry(ctx, logger, celeryJobID, args)
}
