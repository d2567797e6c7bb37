package notify

import (
	"context"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSubscriber consumes mailbox push notifications from a RabbitMQ
// queue. Deliveries are manually acked; the prefetch window bounds how
// many unacked notifications are in flight.
type AMQPSubscriber struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// AMQPOpts holds parameters for creating an AMQPSubscriber.
type AMQPOpts struct {
	URL      string
	Queue    string
	Prefetch int // unacked deliveries allowed in flight
}

// NewAMQPSubscriber dials the broker and declares the durable queue.
func NewAMQPSubscriber(opts AMQPOpts) (*AMQPSubscriber, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("notify: amqp url is required")
	}
	if opts.Queue == "" {
		return nil, fmt.Errorf("notify: queue name is required")
	}
	if opts.Prefetch <= 0 {
		opts.Prefetch = 1
	}

	conn, err := amqp.Dial(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("notify: dial broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(opts.Queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: declare queue %s: %w", opts.Queue, err)
	}
	if err := channel.Qos(opts.Prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("notify: set prefetch: %w", err)
	}

	return &AMQPSubscriber{conn: conn, channel: channel, queue: opts.Queue}, nil
}

// Listen starts consuming and adapts broker deliveries to Events. The
// returned channel closes when the broker stream ends or ctx is done.
func (s *AMQPSubscriber) Listen(ctx context.Context) (<-chan Event, error) {
	deliveries, err := s.channel.ConsumeWithContext(ctx, s.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("notify: consume %s: %w", s.queue, err)
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				ev := NewEvent(d.Body, func() error { return d.Ack(false) })
				select {
				case events <- ev:
				case <-ctx.Done():
					// Unacked delivery is redelivered after reconnect.
					if err := d.Nack(false, true); err != nil {
						log.Printf("notify: nack on shutdown: %v", err)
					}
					return
				}
			}
		}
	}()
	return events, nil
}

// Close tears down the channel and connection.
func (s *AMQPSubscriber) Close() error {
	if err := s.channel.Close(); err != nil {
		s.conn.Close()
		return fmt.Errorf("notify: close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("notify: close connection: %w", err)
	}
	return nil
}
