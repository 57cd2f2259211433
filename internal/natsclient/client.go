// Package natsclient connects mendel to a NATS server: configured routes are
// subscribed and action results are published back.
package natsclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/idudko/mendel/internal/ingest"
)

// Source is the ingest source label of messages received over NATS.
const Source = "nats"

const drainPoll = 10 * time.Millisecond

var ErrNotConnected = errors.New("not connected to NATS")

// Config holds connection settings. A zero ReconnectWait keeps the nats.go
// default and a negative MaxReconnects retries forever.
type Config struct {
	URL           string
	Name          string
	ReconnectWait time.Duration
	MaxReconnects int
}

// Client wraps a NATS connection and its route subscriptions.
type Client struct {
	mu   sync.RWMutex
	conn *nats.Conn
	subs []*nats.Subscription
}

// Connect dials the server in cfg. The connection name gets a random suffix
// so several instances can be told apart on the server.
func Connect(cfg Config) (*Client, error) {
	name := cfg.Name
	if name == "" {
		name = "mendel"
	}
	name += "-" + uuid.NewString()[:8]

	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			log.Info().Msg("nats connection closed")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			e := log.Error().Err(err)
			if sub != nil {
				e = e.Str("subject", sub.Subject)
			}
			e.Msg("nats error")
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.URL, err)
	}
	log.Info().Str("url", conn.ConnectedUrl()).Str("name", name).Msg("nats connected")

	return &Client{conn: conn}, nil
}

// Subscribe subscribes every route of r. Messages on a route are dispatched
// to that route only.
func (c *Client) Subscribe(r *ingest.Router) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}
	for _, route := range r.Routes() {
		sub, err := c.conn.Subscribe(route.Pattern(), MessageHandler(r, route))
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", route.Pattern(), err)
		}
		c.subs = append(c.subs, sub)
		log.Info().Str("subject", route.Pattern()).Msg("subscribed")
	}
	return nil
}

// MessageHandler returns the callback feeding messages of route into r.
func MessageHandler(r *ingest.Router, route *ingest.Route) nats.MsgHandler {
	return func(msg *nats.Msg) {
		r.DispatchRoute(route, Source, msg.Subject, msg.Data)
	}
}

// Publish sends body on topic.
func (c *Client) Publish(_ context.Context, topic string, body []byte) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}
	if err := conn.Publish(topic, body); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	return nil
}

// Ping round-trips to the server.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || conn.IsClosed() {
		return ErrNotConnected
	}
	return conn.FlushWithContext(ctx)
}

// DrainSubscriptions stops taking new messages and waits until the messages
// already received have been handled or ctx is done. The connection stays
// open for publishing.
func (c *Client) DrainSubscriptions(ctx context.Context) error {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrBadSubscription) {
			return fmt.Errorf("failed to drain %s: %w", sub.Subject, err)
		}
	}

	ticker := time.NewTicker(drainPoll)
	defer ticker.Stop()
	for {
		pending := false
		for _, sub := range subs {
			if sub.IsValid() {
				pending = true
				break
			}
		}
		if !pending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close drains the subscriptions and closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Drain()
	c.conn = nil
	c.subs = nil
	return err
}
