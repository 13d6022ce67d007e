package rabbitmq

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/jobbroker/internal/broker"
)

// gearmanHandle matches the Gearman-style job handle some callers pass
// through unchanged ("H:hostname:123"); such a handle already is the job
// id and JobIDFromHandle returns it whole.
var gearmanHandle = regexp.MustCompile(`^H:.+?:(\d+)$`)

// JobIDFromHandle extracts the job id embedded in an opaque job handle.
// Handles come in two shapes seen across job-queue systems: Gearman's
// "H:host:seq", returned as is, and a bare "scheme://.../<id>" URL-ish form. For the
// latter, the whole substring after the last "//" is the id — there is
// no further splitting on "/". Anything else is returned unchanged, on
// the assumption the caller already passed a bare job id.
func (b *RabbitMQBroker) JobIDFromHandle(handle string) (string, error) {
	if handle == "" {
		return "", fmt.Errorf("rabbitmq: %w: empty job handle", broker.ErrInvalidHandle)
	}
	if gearmanHandle.MatchString(handle) {
		return handle, nil
	}
	if idx := strings.LastIndex(handle, "//"); idx != -1 {
		return handle[idx+2:], nil
	}
	return handle, nil
}

// SetJobProgress publishes a best-effort progress update to a per-job
// side queue named "progress.<jobID>" (declared non-durable and
// auto-deleted), keyed by jobID rather than by function or reply queue
// since the caller has neither at this point in the interface. Progress reporting is explicitly not guaranteed delivery
// (SPEC_FULL Part D): a transport failure here is logged, never
// propagated as an error the caller must handle as fatal, and never
// blocks the caller indefinitely.
func (b *RabbitMQBroker) SetJobProgress(ctx context.Context, jobID string, num, denom int) error {
	queue := "progress." + jobID

	err := b.pool.withChannel(ctx, func(ch *amqp.Channel) error {
		if _, err := ch.QueueDeclare(queue, false, true, false, false, nil); err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Transient,
			CorrelationId: jobID,
			Body:          []byte(fmt.Sprintf(`{"task_id":%q,"num":%d,"denom":%d}`, jobID, num, denom)),
		})
	})
	if err != nil {
		b.logger.Warn("rabbitmq: best-effort progress publish failed", "job_id", jobID, "error", err)
	}
	return nil
}

// JobStatus, ShowJobs, CancelJob, ServerStatus and Workers have no
// analog in this broker: there is no durable job store, no broker-side
// job registry, and no admin protocol on the wire (SPEC_FULL Part A.4).
// They raise ErrNotImplemented rather than fabricate an answer.

func (b *RabbitMQBroker) JobStatus(ctx context.Context, jobID string) (broker.JobStatusInfo, error) {
	return broker.JobStatusInfo{}, fmt.Errorf("rabbitmq: JobStatus: %w", broker.ErrNotImplemented)
}

func (b *RabbitMQBroker) ShowJobs(ctx context.Context, functionName string) ([]broker.JobStatusInfo, error) {
	return nil, fmt.Errorf("rabbitmq: ShowJobs: %w", broker.ErrNotImplemented)
}

func (b *RabbitMQBroker) CancelJob(ctx context.Context, jobID string) error {
	return fmt.Errorf("rabbitmq: CancelJob: %w", broker.ErrNotImplemented)
}

func (b *RabbitMQBroker) ServerStatus(ctx context.Context) (broker.ServerStatusInfo, error) {
	return broker.ServerStatusInfo{}, fmt.Errorf("rabbitmq: ServerStatus: %w", broker.ErrNotImplemented)
}

func (b *RabbitMQBroker) Workers(ctx context.Context) ([]broker.WorkerInfo, error) {
	return nil, fmt.Errorf("rabbitmq: Workers: %w", broker.ErrNotImplemented)
}
