package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shogotsuneto/presto-driver/internal/config"
	"github.com/shogotsuneto/presto-driver/internal/engine"
	"github.com/shogotsuneto/presto-driver/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// ErrTokenExpired is returned when the profile's access token has already expired
var ErrTokenExpired = errors.New("access token is expired")

// Factory constructs an engine client from connection parameters
type Factory func(engine.Params) (engine.Client, error)

func defaultFactory(p engine.Params) (engine.Client, error) {
	return engine.New(p)
}

// Option configures a Connection
type Option func(*Connection)

// WithFactory replaces the engine client constructor
func WithFactory(f Factory) Option {
	return func(c *Connection) {
		c.factory = f
	}
}

// Connection owns a single lazily created engine client for one profile
type Connection struct {
	profile config.ConnectionProfile
	factory Factory

	mu      sync.Mutex
	client  engine.Client
	opens   singleflight.Group
	opening chan struct{} // closed when the in-flight open finishes

	healthy int64 // atomic boolean, set on open and by MarkHealthy
}

// NewConnection creates a connection wrapper. Nothing is opened until Open.
func NewConnection(profile config.ConnectionProfile, opts ...Option) *Connection {
	c := &Connection{
		profile: profile,
		factory: defaultFactory,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the connection identifier of the profile
func (c *Connection) ID() string {
	return c.profile.ID
}

// Profile returns the stored connection profile
func (c *Connection) Profile() config.ConnectionProfile {
	return c.profile
}

// Open returns the memoized client, creating it on first use. Concurrent
// callers share a single construction.
func (c *Connection) Open(ctx context.Context) (engine.Client, error) {
	c.mu.Lock()
	client := c.client
	c.mu.Unlock()
	if client != nil {
		return client, nil
	}

	ch := c.opens.DoChan("open", func() (interface{}, error) {
		c.mu.Lock()
		if c.client != nil {
			client := c.client
			c.mu.Unlock()
			return client, nil
		}
		c.opening = make(chan struct{})
		c.mu.Unlock()

		client, err := c.connect()

		c.mu.Lock()
		defer c.mu.Unlock()
		defer c.finishOpening()
		if err != nil {
			return nil, err
		}
		c.client = client
		atomic.StoreInt64(&c.healthy, 1)
		metrics.OpenConnections.Inc()
		log.Printf("Opened connection %s (%s)", c.profile.ID, c.profile.Address())
		return client, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(engine.Client), nil
	}
}

// connect builds engine parameters from the profile and constructs the client
func (c *Connection) connect() (engine.Client, error) {
	if err := checkAccessToken(c.profile.AccessToken); err != nil {
		return nil, fmt.Errorf("failed to open connection %s: %w", c.profile.ID, err)
	}

	client, err := c.factory(c.params())
	if err != nil {
		return nil, fmt.Errorf("failed to open connection %s: %w", c.profile.ID, err)
	}
	return client, nil
}

func (c *Connection) params() engine.Params {
	p := c.profile
	return engine.Params{
		Host:              p.Server,
		Port:              p.Port,
		Catalog:           p.Catalog,
		Schema:            p.Schema,
		User:              p.Username,
		Password:          p.Password,
		Engine:            p.Engine,
		Source:            p.Source,
		SSL:               p.SSL,
		AccessToken:       p.AccessToken,
		SessionProperties: p.SessionProperties,
		BatchSize:         p.BatchSize,
	}
}

// checkAccessToken rejects tokens whose exp claim is in the past. The
// signature is verified by the engine, not here.
func checkAccessToken(token string) error {
	if token == "" {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("invalid access token: %w", err)
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		return fmt.Errorf("invalid access token: %w", err)
	}
	if exp != nil && exp.Before(time.Now()) {
		return fmt.Errorf("%w (expired at %s)", ErrTokenExpired, exp.Format(time.RFC3339))
	}
	return nil
}

// IsOpen reports whether a client is currently held
func (c *Connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

// IsHealthy returns the cached health status
func (c *Connection) IsHealthy() bool {
	return atomic.LoadInt64(&c.healthy) == 1
}

// MarkHealthy records the outcome of the last connection test
func (c *Connection) MarkHealthy(ok bool) {
	if ok {
		atomic.StoreInt64(&c.healthy, 1)
	} else {
		atomic.StoreInt64(&c.healthy, 0)
	}
}

// finishOpening releases Close calls waiting on the in-flight open. c.mu must be held.
func (c *Connection) finishOpening() {
	if c.opening != nil {
		close(c.opening)
		c.opening = nil
	}
}

// Close drops the client reference. It waits for an in-flight Open to finish
// first, or returns ctx's error if ctx ends before it does. It is a no-op when
// nothing is open.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	opening := c.opening
	c.mu.Unlock()
	if opening != nil {
		select {
		case <-opening:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client == nil {
		return nil
	}

	atomic.StoreInt64(&c.healthy, 0)
	metrics.OpenConnections.Dec()
	log.Printf("Closed connection %s", c.profile.ID)

	if err := client.Close(); err != nil {
		return fmt.Errorf("failed to close connection %s: %w", c.profile.ID, err)
	}
	return nil
}
