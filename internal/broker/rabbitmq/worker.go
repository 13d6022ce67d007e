package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/jobbroker/internal/broker"
	"github.com/shaiso/jobbroker/internal/metrics"
	"github.com/shaiso/jobbroker/internal/telemetry"
)

// StartWorker declares functionName's task topology and consumes from its
// queue until ctx is cancelled or a transport, protocol or decode error
// stops the loop (see handleDelivery). Each delivery is executed synchronously via exec,
// one at a time — concurrency across functions is the caller's job (see
// the job.RunWorkers helper), not this broker's.
func (b *RabbitMQBroker) StartWorker(ctx context.Context, functionName string, exec broker.TaskExecutor) error {
	var deliveries <-chan amqp.Delivery
	err := b.pool.withChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareTaskTopology(ch, functionName); err != nil {
			return err
		}
		d, err := ch.Consume(
			functionName, // queue
			"",           // consumer
			false,        // auto-ack
			false,        // exclusive
			false,        // no-local
			false,        // no-wait
			nil,          // args
		)
		if err != nil {
			return err
		}
		deliveries = d
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: consume %s: %v", broker.ErrTransport, functionName, err)
	}

	b.logger.Info("rabbitmq: worker started", "function", functionName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("%w: task queue %s consumer channel closed", broker.ErrTransport, functionName)
			}
			if err := b.handleDelivery(ctx, functionName, exec, d); err != nil {
				return err
			}
		}
	}
}

// handleDelivery executes one task delivery and publishes its result.
// Protocol violations (wrong task name, missing reply-to/correlation
// id/delivery tag) and transport failures (publish, ack) are fatal and stop the worker
// loop; a panic or returned error from exec is reported back to the
// caller as a FAILURE result, not a worker crash.
func (b *RabbitMQBroker) handleDelivery(ctx context.Context, functionName string, exec broker.TaskExecutor, d amqp.Delivery) error {
	if d.CorrelationId == "" || d.ReplyTo == "" || d.DeliveryTag == 0 {
		return fmt.Errorf("%w: task delivery missing correlation_id, reply_to or delivery_tag", broker.ErrProtocol)
	}

	env, err := decodeTaskEnvelope(d.Body)
	if err != nil {
		return fmt.Errorf("%w: decode task envelope: %v", broker.ErrDecode, err)
	}
	if env.Task != functionName {
		return fmt.Errorf("%w: worker for %s received task %s", broker.ErrProtocol, functionName, env.Task)
	}

	celeryJobID := env.ID
	logger := telemetry.WithFunctionName(telemetry.WithJobID(b.logger, celeryJobID), functionName)
	ctx = telemetry.WithLogger(ctx, logger)

	metrics.IncConsumed(functionName)
	start := time.Now()
	result, runErr := b.execute(ctx, exec, celeryJobID, env.Kwargs)
	metrics.ObserveExecutionDuration(functionName, time.Since(start).Seconds())

	var resultEnv *resultEnvelope
	if runErr != nil {
		metrics.IncFailed(functionName)
		resultEnv = newFailureEnvelope(celeryJobID, runErr)
	} else {
		metrics.IncSucceeded(functionName)
		resultEnv = newSuccessEnvelope(celeryJobID, result)
	}

	body, err := json.Marshal(resultEnv)
	if err != nil {
		return fmt.Errorf("%w: marshal result envelope: %v", broker.ErrDecode, err)
	}

	err = b.pool.withChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareReplyQueue(ch, d.ReplyTo); err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, "", d.ReplyTo, false, false, amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			DeliveryMode:    amqp.Transient,
			Priority:        d.Priority,
			CorrelationId:   celeryJobID,
			Body:            body,
		})
	})
	if err != nil {
		return fmt.Errorf("%w: publish result for %s: %v", broker.ErrTransport, d.CorrelationId, err)
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("%w: ack task delivery %s: %v", broker.ErrTransport, d.CorrelationId, err)
	}
	return nil
}

// execute runs exec.Execute, converting a panic inside user code into a
// job-kind failure rather than taking down the worker loop.
func (b *RabbitMQBroker) execute(ctx context.Context, exec broker.TaskExecutor, jobID string, kwargs map[string]any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: job %s panicked: %v", broker.ErrJobFailed, jobID, r)
		}
	}()
	return exec.Execute(ctx, jobID, kwargs)
}
