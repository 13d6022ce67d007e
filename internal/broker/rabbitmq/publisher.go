package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/jobbroker/internal/broker"
	"github.com/shaiso/jobbroker/internal/metrics"
)

// publish declares the task topology and reply queue for functionName and
// publishes env, returning the reply queue name the result will arrive on.
func (b *RabbitMQBroker) publish(ctx context.Context, functionName string, env *taskEnvelope, priority broker.Priority) (replyTo string, err error) {
	body, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("%w: marshal task envelope: %v", broker.ErrDecode, err)
	}

	err = b.pool.withChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareTaskTopology(ch, functionName); err != nil {
			return err
		}
		replyTo = b.pool.replyQueueName(functionName)
		if err := declareReplyQueue(ch, replyTo); err != nil {
			return err
		}
		return ch.PublishWithContext(ctx, functionName, functionName, false, false, amqp.Publishing{
			ContentType:     "application/json",
			ContentEncoding: "utf-8",
			DeliveryMode:    amqp.Persistent,
			Priority:        priority.Weight(),
			CorrelationId:   env.ID,
			ReplyTo:         replyTo,
			Body:            body,
		})
	})
	if err != nil {
		return "", fmt.Errorf("%w: publish task %s: %v", broker.ErrTransport, functionName, err)
	}

	metrics.IncPublished(functionName)
	return replyTo, nil
}

// RunJobAsync publishes functionName(args) to its task queue and returns
// immediately with the minted job id. Retries is written into the task
// envelope's Celery-style "retries" field; the worker does not read it
// back — the attempts a worker makes come from its own Function's Retries.
func (b *RabbitMQBroker) RunJobAsync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (string, error) {
	jobID := uuid.New().String()
	env := newTaskEnvelope(jobID, functionName, args, retries)

	if _, err := b.publish(ctx, functionName, env, priority); err != nil {
		return "", err
	}
	return jobID, nil
}
