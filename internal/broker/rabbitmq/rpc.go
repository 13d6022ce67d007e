package rabbitmq

import (
	"context"
	"fmt"

	"github.com/shaiso/jobbroker/internal/broker"
)

// deliveredMessage is the minimal shape rpc matching needs out of an
// amqp.Delivery, kept separate from amqp091-go so the matching algorithm
// below can be exercised by a test without a live broker.
type deliveredMessage struct {
	correlationID string
	body          []byte
	ack           func() error
}

// nextDelivery pulls the next message off a function's shared reply
// queue. Implemented in terms of *replyConsumer for production use; a
// test supplies a stub instead.
type nextDelivery func(ctx context.Context) (*deliveredMessage, error)

// awaitResult blocks until jobID's result is available: in the cache
// already, already sitting in front of us on the reply queue, or until
// one arrives. Messages belonging to other outstanding jobs of the same
// function are cached for their own waiter rather than discarded — this
// is the out-of-order scenario a shared reply queue produces when
// multiple RunJobSync calls for the same function are in flight at once.
//
// next must be called with exclusive ownership of the underlying AMQP
// consumer for the duration of one call (the caller holds
// replyConsumer.mu); awaitResult itself takes no lock so it stays usable
// from tests with a bare stub.
func awaitResult(ctx context.Context, jobID string, cache *resultCache, next nextDelivery) (*resultEnvelope, error) {
	if body, ok := cache.Take(jobID); ok {
		return decodeOwnResult(jobID, body)
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		msg, err := next(ctx)
		if err != nil {
			return nil, err
		}
		if msg.correlationID == "" {
			return nil, fmt.Errorf("%w: reply message missing correlation_id", broker.ErrProtocol)
		}

		if msg.correlationID == jobID {
			if err := msg.ack(); err != nil {
				return nil, fmt.Errorf("%w: ack reply message: %v", broker.ErrTransport, err)
			}
			return decodeOwnResult(jobID, msg.body)
		}

		// Not ours: another waiter for the same function queue wants
		// this one. Cache it and keep looking for our own.
		cache.Put(msg.correlationID, msg.body)
		if err := msg.ack(); err != nil {
			return nil, fmt.Errorf("%w: ack reply message: %v", broker.ErrTransport, err)
		}

		// Our own result may have been cached by a concurrent waiter
		// while we were blocked pulling this one.
		if body, ok := cache.Take(jobID); ok {
			return decodeOwnResult(jobID, body)
		}
	}
}

func decodeOwnResult(jobID string, body []byte) (*resultEnvelope, error) {
	env, err := decodeResultEnvelope(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decode result envelope: %v", broker.ErrDecode, err)
	}
	if env.TaskID != jobID {
		return nil, fmt.Errorf("%w: result task_id %q does not match awaited job %q", broker.ErrProtocol, env.TaskID, jobID)
	}
	return env, nil
}

// resultOrError turns a decoded result envelope into the (value, error)
// RunJobSync returns to its caller.
func resultOrError(env *resultEnvelope) (any, error) {
	switch env.Status {
	case statusSuccess:
		return env.Result, nil
	case statusFailure:
		tb := ""
		if env.Traceback != nil {
			tb = *env.Traceback
		}
		return nil, &broker.JobError{Traceback: tb}
	default:
		return nil, fmt.Errorf("%w: unknown result status %q", broker.ErrProtocol, env.Status)
	}
}

// RunJobSync publishes functionName(args) and blocks until its result
// arrives on the shared reply queue, returning the decoded value or a
// *broker.JobError if the worker reported a failure.
func (b *RabbitMQBroker) RunJobSync(ctx context.Context, functionName string, args map[string]any, priority broker.Priority, retries int) (any, error) {
	jobID, err := b.RunJobAsync(ctx, functionName, args, priority, retries)
	if err != nil {
		return nil, err
	}

	cache := b.pool.cacheFor(functionName)
	if body, ok := cache.Take(jobID); ok {
		env, err := decodeOwnResult(jobID, body)
		if err != nil {
			return nil, err
		}
		return resultOrError(env)
	}

	consumer, err := b.pool.replyConsumer(ctx, functionName)
	if err != nil {
		return nil, err
	}

	consumer.mu.Lock()
	defer consumer.mu.Unlock()

	next := func(ctx context.Context) (*deliveredMessage, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case d, ok := <-consumer.deliveries:
			if !ok {
				return nil, fmt.Errorf("%w: reply queue consumer channel closed", broker.ErrTransport)
			}
			return &deliveredMessage{
				correlationID: d.CorrelationId,
				body:          d.Body,
				ack:           func() error { return d.Ack(false) },
			}, nil
		}
	}

	env, err := awaitResult(ctx, jobID, cache, next)
	if err != nil {
		return nil, err
	}
	return resultOrError(env)
}
