// Package queue is the RabbitMQ work-queue client shared by producer and
// consumer. Messages are full catalog pages serialized as JSON; delivery is
// at-least-once and the consumer's identity-keyed upsert absorbs duplicates.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"redwatch/pkg/platform/sentinel"
)

// Client wraps one AMQP connection plus channel, redialing after failures.
// Channel-level errors poison both handles, so any operation error tears the
// pair down and the next operation reconnects.
type Client struct {
	url  string
	name string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// New builds a queue client for the named durable queue. No connection is made
// until the first operation.
func New(url, name string) *Client {
	return &Client{url: url, name: name}
}

func (c *Client) channel() (*amqp.Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}
	c.closeLocked()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(c.name, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", c.name, err)
	}

	c.conn = conn
	c.ch = ch
	return ch, nil
}

func (c *Client) drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// Publish puts one persistent JSON message onto the queue.
func (c *Client) Publish(ctx context.Context, body []byte) error {
	ch, err := c.channel()
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", c.name, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Body:         body,
	})
	if err != nil {
		c.drop()
		return fmt.Errorf("publish to %s: %w", c.name, err)
	}
	return nil
}

// Get pulls a single message with immediate acknowledgement: the broker
// forgets the message as soon as it is handed over, so a consumer crash
// mid-page loses that page. Returns sentinel.ErrEmpty when the queue has
// nothing ready.
func (c *Client) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch, err := c.channel()
	if err != nil {
		return nil, err
	}
	delivery, ok, err := ch.Get(c.name, true)
	if err != nil {
		c.drop()
		return nil, fmt.Errorf("get from %s: %w", c.name, err)
	}
	if !ok {
		return nil, sentinel.ErrEmpty
	}
	return delivery.Body, nil
}

// Close tears down the connection.
func (c *Client) Close() {
	c.drop()
}
