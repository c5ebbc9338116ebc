package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/opencasa/casa-core/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 // seconds
)

var (
	ErrNotConnected     = errors.New("influxdb: not connected")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
)

// Client writes event telemetry to an InfluxDB v2 server. Writes are
// batched and asynchronous; failures surface through the SetOnError
// callback rather than blocking the pipeline.
//
// All methods are safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	connected atomic.Bool

	cbMu    sync.RWMutex
	onError func(err error)
}

// Connect builds the client and verifies the server responds. Returns
// ErrDisabled when the integration is off, ErrConnectionFailed when the
// server is unreachable or unhealthy.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	raw := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))
	if err := verify(raw); err != nil {
		raw.Close()
		return nil, err
	}

	c := &Client{
		client:   raw,
		writeAPI: raw.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.connected.Store(true)

	go c.drainErrors(c.writeAPI.Errors())

	return c, nil
}

func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	flush := cfg.FlushInterval
	if flush <= 0 {
		flush = defaultFlushInterval
	}
	// #nosec G115 -- both values are positive after the defaults above
	return influxdb2.DefaultOptions().
		SetBatchSize(uint(batch)).
		SetFlushInterval(uint(flush) * 1000)
}

func verify(raw influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := raw.Ping(ctx)
	switch {
	case err != nil:
		return fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	case !healthy:
		return fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}
	return nil
}

// drainErrors forwards async write failures to the registered callback.
// The channel closes when the write API shuts down.
func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.cbMu.RLock()
		cb := c.onError
		c.cbMu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
}

// SetOnError registers a callback for asynchronous write failures.
func (c *Client) SetOnError(callback func(err error)) {
	c.cbMu.Lock()
	c.onError = callback
	c.cbMu.Unlock()
}

// IsConnected reports the last known connection state. HealthCheck
// performs an active ping when accuracy matters.
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(pingCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return errors.New("influxdb health check: server not healthy")
	}
	return nil
}

// Flush blocks until the write buffer drains. No-op after Close.
func (c *Client) Flush() {
	if c.writeAPI != nil && c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes pending writes and releases the connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.connected.Store(false)
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
