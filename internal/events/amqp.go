package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

const (
	defaultDialTimeout    = 3 * time.Second
	defaultPublishTimeout = 2 * time.Second
	defaultBufferSize     = 256
)

var (
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("events: publisher closed")
	// ErrBufferFull is returned when the broker falls behind and the event is dropped.
	ErrBufferFull = errors.New("events: publish buffer full")
)

// AMQPPublisher writes events to a durable RabbitMQ queue through the default exchange.
// Publish only enqueues; a single worker owns the connection, opens it lazily and
// reopens it after the broker drops it.
type AMQPPublisher struct {
	url            string
	queue          string
	dialTimeout    time.Duration
	publishTimeout time.Duration

	events    chan ProcessEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once

	// owned by the worker goroutine
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher starts the delivery worker; no connection is made until the first event.
func NewAMQPPublisher(url, queue string) (*AMQPPublisher, error) {
	return newAMQPPublisher(url, queue, defaultDialTimeout, defaultBufferSize)
}

func newAMQPPublisher(url, queue string, dialTimeout time.Duration, buffer int) (*AMQPPublisher, error) {
	if url == "" {
		return nil, errors.New("events: amqp url is required")
	}
	if queue == "" {
		return nil, errors.New("events: queue name is required")
	}

	p := &AMQPPublisher{
		url:            url,
		queue:          queue,
		dialTimeout:    dialTimeout,
		publishTimeout: defaultPublishTimeout,
		events:         make(chan ProcessEvent, buffer),
		done:           make(chan struct{}),
	}
	p.wg.Add(1)
	go p.run()
	return p, nil
}

// Publish hands the event to the worker without waiting for the broker.
func (p *AMQPPublisher) Publish(ctx context.Context, event ProcessEvent) error {
	select {
	case <-p.done:
		return ErrPublisherClosed
	default:
	}

	select {
	case p.events <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrBufferFull
	}
}

// Close stops the worker and releases the broker connection. Events still
// buffered are dropped.
func (p *AMQPPublisher) Close() error {
	p.closeOnce.Do(func() { close(p.done) })
	p.wg.Wait()
	return nil
}

func (p *AMQPPublisher) run() {
	defer p.wg.Done()
	defer p.reset()

	for {
		select {
		case <-p.done:
			return
		default:
		}

		select {
		case <-p.done:
			return
		case event := <-p.events:
			if err := p.send(event); err != nil {
				log.Warn().Err(err).Str("event", event.Type).Int64("process_id", event.ProcessID).Msg("event delivery failed")
			}
		}
	}
}

func (p *AMQPPublisher) send(event ProcessEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.publishTimeout)
	defer cancel()

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         event.Type,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	log.Debug().Str("event", event.Type).Int64("process_id", event.ProcessID).Msg("event published")
	return nil
}

func (p *AMQPPublisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	// DefaultDial also bounds the AMQP handshake, not only the TCP connect.
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}

	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
