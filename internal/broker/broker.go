// Package broker defines the capability contract every job-manager broker
// implementation must satisfy.
//
// The RabbitMQ/Celery-protocol implementation lives in
// github.com/shaiso/jobbroker/internal/broker/rabbitmq; this package only
// holds the interface, the wire-level priority mapping, and the error
// kinds every implementation raises through.
package broker

import "context"

// Priority is one of low|normal|high, mapped to the AMQP integer
// priorities 0|1|2 by Weight.
type Priority string

// Supported priorities.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Weight maps a Priority to its AMQP integer priority. Unknown values
// default to PriorityNormal's weight.
func (p Priority) Weight() uint8 {
	switch p {
	case PriorityLow:
		return 0
	case PriorityHigh:
		return 2
	default:
		return 1
	}
}

// TaskExecutor executes one job invocation on behalf of a worker loop.
// celeryJobID is the wire-level correlation id (payload.id), passed
// through so worker-side logs and metrics can carry it.
type TaskExecutor interface {
	Execute(ctx context.Context, celeryJobID string, args map[string]any) (result any, err error)
}

// JobStatusInfo describes the admin-surface view of a single job.
// RabbitMQ broker implementations never populate this — JobStatus always
// raises ErrNotImplemented.
type JobStatusInfo struct {
	JobID    string
	Status   string
	Function string
}

// ServerStatusInfo describes the admin-surface view of broker server
// health. See JobStatusInfo.
type ServerStatusInfo struct {
	Healthy bool
	Detail  string
}

// WorkerInfo describes one connected worker process. See JobStatusInfo.
type WorkerInfo struct {
	ID       string
	Function string
}

// Broker is the capability set every job-manager broker exposes.
type Broker interface {
	// StartWorker consumes tasks for functionName and executes them via
	// exec, never returning under normal operation. A transport,
	// protocol, or decode failure returns an error that terminates the
	// worker; a job-kind failure (the user function raised) is converted
	// to a result envelope and never returned here.
	StartWorker(ctx context.Context, functionName string, exec TaskExecutor) error

	// RunJobSync publishes a task and blocks until its result is
	// delivered, returning the result or raising on remote failure.
	RunJobSync(ctx context.Context, functionName string, args map[string]any, priority Priority, retries int) (any, error)

	// RunJobAsync publishes a task and returns as soon as the broker
	// accepts the message, without waiting for a result.
	RunJobAsync(ctx context.Context, functionName string, args map[string]any, priority Priority, retries int) (jobID string, err error)

	// JobIDFromHandle normalizes a broker-specific handle to a stable id.
	JobIDFromHandle(handle string) (string, error)

	// SetJobProgress reports fractional progress (num/denom) for a job.
	// Implementations may no-op or fail, but must do so consistently.
	SetJobProgress(ctx context.Context, jobID string, num, denom int) error

	// Admin surface. The RabbitMQ broker always returns
	// ErrNotImplemented from these; implementers must never fabricate
	// results.
	JobStatus(ctx context.Context, jobID string) (JobStatusInfo, error)
	ShowJobs(ctx context.Context, functionName string) ([]JobStatusInfo, error)
	CancelJob(ctx context.Context, jobID string) error
	ServerStatus(ctx context.Context) (ServerStatusInfo, error)
	Workers(ctx context.Context) ([]WorkerInfo, error)

	// Close releases broker resources (connections, minted reply
	// queues). Best-effort: it tolerates resources that are already
	// gone.
	Close() error
}
