package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"wexcommerce/internal/domain"
	"wexcommerce/internal/events"
)

// Action is what happens to a delivery after it was handled.
type Action int

const (
	Ack Action = iota
	// Reject drops a message that can never succeed.
	Reject
	// Requeue returns a message for another attempt.
	Requeue
)

type Consumer struct {
	conn     *amqp.Connection
	queue    string
	workers  int
	prefetch int
	sender   Sender
	logger   *log.Logger
}

func NewConsumer(conn *amqp.Connection, queue string, workers int, sender Sender, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if workers < 1 {
		workers = 1
	}
	return &Consumer{conn: conn, queue: queue, workers: workers, prefetch: 10, sender: sender, logger: logger}
}

// Run starts the workers and blocks until ctx is done or every worker exits.
func (c *Consumer) Run(ctx context.Context) error {
	setup, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	err = events.DeclareQueue(setup, c.queue)
	setup.Close()
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	wg.Add(c.workers)
	for i := 0; i < c.workers; i++ {
		go func(id int) {
			defer wg.Done()
			if err := c.work(ctx, id); err != nil {
				c.logger.Printf("mailer: worker=%d error=%v", id, err)
			}
		}(i)
	}
	wg.Wait()
	return ctx.Err()
}

func (c *Consumer) work(ctx context.Context, id int) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return err
	}
	msgs, err := ch.Consume(c.queue, fmt.Sprintf("mailer-%d", id), false, false, false, false, nil)
	if err != nil {
		return err
	}
	c.logger.Printf("mailer: worker=%d consuming queue=%s", id, c.queue)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			switch c.Handle(d.Body) {
			case Ack:
				_ = d.Ack(false)
			case Reject:
				_ = d.Nack(false, false)
			case Requeue:
				_ = d.Nack(false, true)
			}
		}
	}
}

// Handle renders and sends the email for one message body.
func (c *Consumer) Handle(body []byte) Action {
	var ev domain.OrderEvent
	if err := json.Unmarshal(body, &ev); err != nil || ev.OrderID == "" {
		c.logger.Printf("mailer: malformed message error=%v", err)
		return Reject
	}
	msg, ok, err := Render(ev)
	if err != nil {
		c.logger.Printf("mailer: render type=%s order_id=%s error=%v", ev.Type, ev.OrderID, err)
		return Reject
	}
	if !ok {
		return Ack
	}
	if err := c.sender.Send(msg); err != nil {
		c.logger.Printf("mailer: send type=%s order_id=%s error=%v", ev.Type, ev.OrderID, err)
		if Permanent(err) {
			return Reject
		}
		return Requeue
	}
	c.logger.Printf("mailer: sent type=%s order_id=%s to=%s", ev.Type, ev.OrderID, msg.To)
	return Ack
}
