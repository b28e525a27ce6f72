package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// Circuit breaker states.
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 3
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
)

// ErrCircuitOpen is returned while publishing is suspended after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

type connection struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func (c *connection) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	return c.ch.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (c *connection) Close() error {
	c.ch.Close()
	return c.conn.Close()
}

// Publisher sends ExpenseEvents to a durable direct exchange. It reconnects
// lazily after connection errors. Once maxFailures consecutive publishes fail
// it stops trying for a backoff period that doubles up to openTimeout.
type Publisher struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger
	dial         func(url, exchange, queue string) (channel, error)
	user         func() string

	mu sync.Mutex
	ch channel

	state        int32
	failureCount int64
	lastFailure  time.Time
	openFor      time.Duration
}

// NewPublisher connects and declares the exchange, queue and binding.
func NewPublisher(url, exchangeName, queueName string, logger *log.Logger) (*Publisher, error) {
	p := newPublisher(url, exchangeName, queueName, logger, dialBroker)
	ch, err := p.dial(url, exchangeName, queueName)
	if err != nil {
		return nil, err
	}
	p.ch = ch
	return p, nil
}

func newPublisher(url, exchangeName, queueName string, logger *log.Logger, dial func(string, string, string) (channel, error)) *Publisher {
	return &Publisher{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       log.OrDiscard(logger).WithComponent(log.ComponentAMQP),
		dial:         dial,
	}
}

// WithUser sets where the username stamped on events comes from.
func (p *Publisher) WithUser(user func() string) *Publisher {
	p.user = user
	return p
}

func dialBroker(url, exchangeName, queueName string) (channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := setup(ch, exchangeName, queueName); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return &connection{conn: conn, ch: ch}, nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange.
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// ExpenseMutated publishes the event for a successful write.
func (p *Publisher) ExpenseMutated(ctx context.Context, ev core.MutationEvent) error {
	var username string
	if p.user != nil {
		username = p.user()
	}
	return p.Publish(ctx, NewExpenseEvent(ev, username))
}

// Publish sends one persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, msg *ExpenseEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.isCircuitOpen() {
		return fmt.Errorf("publish %s event: %w", msg.Kind, ErrCircuitOpen)
	}

	body, err := msg.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		ch, err := p.dial(p.url, p.exchangeName, p.queueName)
		if err != nil {
			p.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		p.ch = ch
		p.logger.InfoContext(ctx, "Reconnected to broker", "exchange", p.exchangeName)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.ch.PublishWithContext(
		pubCtx,
		p.exchangeName, // exchange
		p.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    msg.Timestamp,
			Body:         body,
		},
	)
	if err != nil {
		p.recordFailure()
		if isConnectionError(err) {
			p.ch.Close()
			p.ch = nil
		}
		return fmt.Errorf("publish message: %w", err)
	}
	p.recordSuccess()

	p.logger.DebugContext(ctx, "Published expense event",
		log.FieldOperation, log.OpPublish,
		"kind", msg.Kind,
		log.FieldExpenseID, msg.ExpenseID,
		"exchange", p.exchangeName,
		"queue", p.queueName)
	return nil
}

func (p *Publisher) isCircuitOpen() bool {
	switch atomic.LoadInt32(&p.state) {
	case StateOpen:
		p.mu.Lock()
		last, wait := p.lastFailure, p.openFor
		p.mu.Unlock()
		if time.Since(last) > wait {
			atomic.StoreInt32(&p.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

// recordFailure must be called with p.mu held.
func (p *Publisher) recordFailure() {
	p.lastFailure = time.Now()
	n := atomic.AddInt64(&p.failureCount, 1)
	if n >= maxFailures || atomic.LoadInt32(&p.state) == StateHalfOpen {
		p.openFor = exponentialBackoff(int(max(n-maxFailures, 0)))
		if atomic.SwapInt32(&p.state, StateOpen) != StateOpen {
			p.logger.Warn("Publishing suspended after repeated failures", "failures", n, "retry_in", p.openFor)
		}
	}
}

func (p *Publisher) recordSuccess() {
	atomic.StoreInt64(&p.failureCount, 0)
	atomic.StoreInt32(&p.state, StateClosed)
}

// exponentialBackoff is the delay before reconnect attempt n, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		return openTimeout
	}
	return min(time.Second<<attempt, openTimeout)
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := err.Error()
	for _, s := range []string{"connection", "EOF", "broken pipe"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Close releases the broker connection, if any.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}
