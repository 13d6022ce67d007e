package rabbitmq

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// priorityArgs is the x-max-priority argument shared by task and reply
// queues.
var priorityArgs = amqp.Table{"x-max-priority": int32(3)}

// declareTaskTopology declares the durable task queue and exchange for
// functionName and binds the queue to the exchange with the function name
// as routing key. Idempotent — safe to call on every publish and every
// worker start.
func declareTaskTopology(ch *amqp.Channel, functionName string) error {
	if err := ch.ExchangeDeclare(
		functionName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("declare task exchange %s: %w", functionName, err)
	}

	if _, err := ch.QueueDeclare(
		functionName, // name
		true,         // durable
		false,        // auto-delete
		false,        // exclusive
		false,        // no-wait
		priorityArgs, // arguments
	); err != nil {
		return fmt.Errorf("declare task queue %s: %w", functionName, err)
	}

	if err := ch.QueueBind(
		functionName, // queue
		functionName, // routing key
		functionName, // exchange
		false,        // no-wait
		nil,          // arguments
	); err != nil {
		return fmt.Errorf("bind task queue %s: %w", functionName, err)
	}

	return nil
}

// declareReplyQueue declares a transient (non-durable, not auto-deleted)
// reply queue with the shared priority argument.
func declareReplyQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,         // name
		false,        // durable
		false,        // auto-delete
		false,        // exclusive
		false,        // no-wait
		priorityArgs, // arguments
	); err != nil {
		return fmt.Errorf("declare reply queue %s: %w", name, err)
	}
	return nil
}

// deleteReplyQueue removes a reply queue, tolerating its absence (it may
// already have been reaped by a broker restart or another process).
func deleteReplyQueue(ch *amqp.Channel, name string) error {
	if _, err := ch.QueueDelete(name, false, false, false); err != nil {
		if amqpErr, ok := err.(*amqp.Error); ok && amqpErr.Code == amqp.NotFound {
			return nil
		}
		return fmt.Errorf("delete reply queue %s: %w", name, err)
	}
	return nil
}
