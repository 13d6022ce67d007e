package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shaiso/jobbroker/internal/broker"
	"github.com/shaiso/jobbroker/internal/metrics"
	"golang.org/x/sync/semaphore"
)

// getpid is overridable in tests to simulate a fork without actually
// forking the test process.
var getpid = os.Getpid

// pool owns the single live connection+channel for one broker value,
// keyed by (processID, host, port, user, password, vhost, timeout).
// Channels are unsafe to share across forks, so a pid change is detected
// on every acquire and triggers a transparent reconnect — this is the
// pool-object redesign from the per-PID global map (SPEC_FULL Part A.9).
type pool struct {
	cfg    DialConfig
	logger *slog.Logger

	mu      sync.Mutex
	pid     int
	key     connKey
	conn    *amqp.Connection
	channel *amqp.Channel

	// replyQueues, caches and consumers are per-(connection,function)
	// state; all reset whenever the connection is (re)established, since
	// a fresh connection means any previously minted reply queue is
	// orphaned.
	replyQueues map[string]string
	caches      map[string]*resultCache
	consumers   map[string]*replyConsumer

	// sem serializes publish/consume-setup/declare on the shared channel
	// (acks go straight through the delivery and do not take sem),
	// per spec §5 ("publish/consume for a given connection MUST be
	// serialized"). The same requirement mwaaas/machinery's AMQPBroker
	// hand-rolls with a goroutine/channel dance in its consume loop.
	sem *semaphore.Weighted

	// consumerSetupMu serializes the entire check-create-store sequence
	// in replyConsumer, distinct from sem: sem only guards one channel
	// operation at a time, which is not enough to stop two concurrent
	// first-callers for the same function both passing the "no consumer
	// yet" check and each issuing their own Consume() on the same queue.
	consumerSetupMu sync.Mutex
}

func newPool(cfg DialConfig, logger *slog.Logger) *pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &pool{
		cfg:    cfg,
		logger: logger,
		sem:    semaphore.NewWeighted(1),
	}
}

// acquire returns the current channel, reconnecting first if there is no
// live connection or the process id has changed since the last connect.
func (p *pool) acquire(ctx context.Context) (*amqp.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pid := getpid()
	if p.conn != nil && !p.conn.IsClosed() && pid == p.pid {
		return p.channel, nil
	}

	if err := p.connect(pid); err != nil {
		return nil, err
	}
	return p.channel, nil
}

// connect dials a fresh connection and channel, resetting all
// per-connection state. Caller must hold p.mu.
func (p *pool) connect(pid int) error {
	dialCfg := amqp.Config{
		Dial: amqp.DefaultDial(p.cfg.Timeout),
	}

	conn, err := amqp.DialConfig(p.cfg.URL(), dialCfg)
	if err != nil {
		return fmt.Errorf("%w: dial amqp: %v", broker.ErrTransport, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("%w: open channel: %v", broker.ErrTransport, err)
	}

	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("%w: set qos: %v", broker.ErrTransport, err)
	}

	p.conn = conn
	p.channel = ch
	p.pid = pid
	p.key = p.cfg.keyWithPID(pid)
	p.replyQueues = make(map[string]string)
	p.caches = make(map[string]*resultCache)
	p.consumers = make(map[string]*replyConsumer)

	p.logger.Info("rabbitmq: connected", "host", p.cfg.Host, "port", p.cfg.Port, "pid", pid)
	return nil
}

// withChannel serializes one unit of channel I/O (declare, publish,
// consume-setup) against every other such unit on this pool.
func (p *pool) withChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	ch, err := p.acquire(ctx)
	if err != nil {
		return err
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)

	return fn(ch)
}

// replyQueueName returns the reply queue minted for functionName on this
// connection, minting a fresh UUID name on first need.
func (p *pool) replyQueueName(functionName string) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	if name, ok := p.replyQueues[functionName]; ok {
		return name
	}
	name := uuid.New().String()
	p.replyQueues[functionName] = name
	return name
}

// cacheFor returns the result cache for functionName on this connection,
// creating it on first need.
func (p *pool) cacheFor(functionName string) *resultCache {
	p.mu.Lock()
	defer p.mu.Unlock()

	c, ok := p.caches[functionName]
	if !ok {
		c = newResultCache()
		c.onEvict = func(correlationID string) {
			p.logger.Warn("rabbitmq: result cache eviction",
				"function", functionName,
				"correlation_id", correlationID,
			)
			metrics.IncCacheEviction(functionName)
		}
		p.caches[functionName] = c
	}
	return c
}

// replyConsumer is the single AMQP-level subscription on a function's
// reply queue, shared by every goroutine in this process awaiting a
// result for that function. mu serializes "pull the next delivery and
// route it" so that concurrent awaiters never race two Consume() calls
// against the same queue (spec §5's serialization requirement, extended
// to cover consumption as well as publish).
type replyConsumer struct {
	mu         sync.Mutex
	deliveries <-chan amqp.Delivery
}

// replyConsumer returns the shared reply-queue subscription for
// functionName, declaring the queue and issuing the one Consume() call
// on first need. consumerSetupMu is held across the whole check, declare,
// Consume and store sequence so that two concurrent first-callers for
// the same function (the scenario-6 shape: two simultaneous RunJobSync
// calls before any consumer exists) cannot both pass the "not cached
// yet" check and each open their own AMQP subscription on the queue —
// that would split deliveries between two consumers, one of them never
// read, silently dropping whichever result lands on it.
func (p *pool) replyConsumer(ctx context.Context, functionName string) (*replyConsumer, error) {
	p.consumerSetupMu.Lock()
	defer p.consumerSetupMu.Unlock()

	p.mu.Lock()
	if c, ok := p.consumers[functionName]; ok {
		p.mu.Unlock()
		return c, nil
	}
	p.mu.Unlock()

	replyTo := p.replyQueueName(functionName)

	var deliveries <-chan amqp.Delivery
	err := p.withChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareReplyQueue(ch, replyTo); err != nil {
			return err
		}
		d, err := ch.Consume(
			replyTo, // queue
			"",      // consumer (server-generated tag)
			false,   // auto-ack
			false,   // exclusive
			false,   // no-local
			false,   // no-wait
			nil,     // args
		)
		if err != nil {
			return err
		}
		deliveries = d
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: consume reply queue %s: %v", broker.ErrTransport, replyTo, err)
	}

	c := &replyConsumer{deliveries: deliveries}
	p.mu.Lock()
	p.consumers[functionName] = c
	p.mu.Unlock()
	return c, nil
}

// close deletes every reply queue this pool minted, then tears down the
// channel and connection. Best-effort throughout: a reply queue already
// reaped by the broker is not an error (§9 open question c).
func (p *pool) close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		for functionName, name := range p.replyQueues {
			if err := deleteReplyQueue(p.channel, name); err != nil {
				p.logger.Warn("rabbitmq: failed to delete reply queue on close", "function", functionName, "queue", name, "error", err)
			}
		}
		if err := p.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	p.conn = nil
	p.channel = nil

	if len(errs) > 0 {
		return fmt.Errorf("rabbitmq: close: %v", errs)
	}
	return nil
}
