package amqprpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"gridnet.org/internal/dispatch"
)

// ErrClosed is returned by Call after the client shuts down.
var ErrClosed = errors.New("amqprpc: client is closed")

const defaultCallTimeout = 30 * time.Second

// Client issues commands over the broker and matches replies to callers by
// correlation id. One client multiplexes any number of concurrent calls
// over a single reply queue.
type Client struct {
	ch      *amqp.Channel
	network string
	replyTo string
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]chan *dispatch.Result
	closed  bool
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCallTimeout overrides the default per-call timeout.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient opens a channel and an exclusive reply queue, then starts the
// reply consumer.
func NewClient(conn *amqp.Connection, network string, opts ...ClientOption) (*Client, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	queue, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	msgs, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}

	c := &Client{
		ch:      ch,
		network: network,
		replyTo: queue.Name,
		timeout: defaultCallTimeout,
		pending: make(map[string]chan *dispatch.Result),
	}
	for _, opt := range opts {
		opt(c)
	}
	go c.consumeReplies(msgs)
	return c, nil
}

func (c *Client) consumeReplies(msgs <-chan amqp.Delivery) {
	for msg := range msgs {
		c.mu.Lock()
		waiter, ok := c.pending[msg.CorrelationId]
		if ok {
			delete(c.pending, msg.CorrelationId)
		}
		c.mu.Unlock()
		if !ok {
			continue
		}
		var res dispatch.Result
		if err := json.Unmarshal(msg.Body, &res); err != nil {
			res = dispatch.Result{Error: fmt.Sprintf("malformed reply: %s", err)}
		}
		waiter <- &res
	}
	c.failAll()
}

func (c *Client) failAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, waiter := range c.pending {
		close(waiter)
		delete(c.pending, id)
	}
}

// Call publishes one command and waits for its reply envelope.
func (c *Client) Call(ctx context.Context, service, command string, arguments map[string]any, authorization string) (*dispatch.Result, error) {
	body, err := encodeRequest(Request{Arguments: arguments, Authorization: authorization})
	if err != nil {
		return nil, err
	}

	correlationID := uuid.NewString()
	waiter := make(chan *dispatch.Result, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.pending[correlationID] = waiter
	c.mu.Unlock()

	abandon := func() {
		c.mu.Lock()
		delete(c.pending, correlationID)
		c.mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err = c.ch.PublishWithContext(ctx, "", QueueName(c.network, service, command), false, false, amqp.Publishing{
		ContentType:   "application/json",
		CorrelationId: correlationID,
		ReplyTo:       c.replyTo,
		Body:          body,
	})
	if err != nil {
		abandon()
		return nil, err
	}

	select {
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	case res, ok := <-waiter:
		if !ok {
			return nil, ErrClosed
		}
		return res, nil
	}
}

// Close tears down the channel; in-flight calls fail with ErrClosed.
func (c *Client) Close() error {
	return c.ch.Close()
}
