// Package rabbitmq implements broker.Broker over RabbitMQ using the
// Celery-compatible task/result wire protocol: tasks are published to a
// per-function direct exchange/queue pair, results are published to a
// per-function reply queue matched by correlation id.
package rabbitmq

import "log/slog"

// RabbitMQBroker is the RabbitMQ/Celery-protocol broker.Broker
// implementation. The zero value is not usable; construct with New.
type RabbitMQBroker struct {
	pool   *pool
	logger *slog.Logger
}

// New constructs a broker bound to cfg. It does not dial eagerly — the
// first call that needs a channel (StartWorker, RunJobSync,
// RunJobAsync) establishes the connection, per this package's pid-aware
// lazy-connect pool.
func New(cfg DialConfig, logger *slog.Logger) *RabbitMQBroker {
	if logger == nil {
		logger = slog.Default()
	}
	return &RabbitMQBroker{
		pool:   newPool(cfg, logger),
		logger: logger,
	}
}

// Close tears down the broker's connection and channel. Best-effort.
func (b *RabbitMQBroker) Close() error {
	return b.pool.close()
}
