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
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/cinnamon-core/internal/infrastructure/config"
)

var (
	// ErrDisabled is returned by Connect when telemetry is switched off.
	ErrDisabled = errors.New("influxdb: disabled in configuration")

	// ErrConnectionFailed wraps a failed or unhealthy initial ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrNotConnected is returned after Close.
	ErrNotConnected = errors.New("influxdb: not connected")
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	fallbackBatchSize     = 100
	fallbackFlushInterval = 10 * time.Second
)

// Stats counts points handed to the write API and asynchronous failures.
type Stats struct {
	Points      int64 `json:"points"`
	WriteErrors int64 `json:"write_errors"`
}

// Client batches telemetry points through the non-blocking write API.
// Writes on a closed client are dropped. Safe for concurrent use.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	cfg      config.InfluxDBConfig

	points      atomic.Int64
	writeErrors atomic.Int64

	mu      sync.RWMutex
	open    bool
	site    string
	onError func(err error)
}

// Connect pings the configured server and opens a batched writer for
// cfg.Org/cfg.Bucket.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(flushIntervalMillis(cfg))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		cfg:      cfg,
		open:     true,
	}
	go c.drainErrors(c.writeAPI.Errors())
	return c, nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return fallbackBatchSize
	}
	return uint(cfg.BatchSize) // #nosec G115 -- checked positive
}

func flushIntervalMillis(cfg config.InfluxDBConfig) uint {
	d := fallbackFlushInterval
	if cfg.FlushInterval > 0 {
		d = time.Duration(cfg.FlushInterval) * time.Second
	}
	return uint(d.Milliseconds()) // #nosec G115 -- positive duration
}

func ping(ctx context.Context, client influxdb2.Client) error {
	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if !healthy {
		return errors.New("server not healthy")
	}
	return nil
}

func (c *Client) drainErrors(errs <-chan error) {
	for err := range errs {
		c.writeErrors.Add(1)
		c.mu.RLock()
		cb := c.onError
		c.mu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
}

// write queues p unless the client is closed.
func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
	c.points.Add(1)
}

// SetSite sets the value of the "site" tag added to every point.
func (c *Client) SetSite(siteID string) {
	c.mu.Lock()
	c.site = siteID
	c.mu.Unlock()
}

func (c *Client) siteID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.site
}

// SetOnError registers a callback for asynchronous write failures.
func (c *Client) SetOnError(cb func(err error)) {
	c.mu.Lock()
	c.onError = cb
	c.mu.Unlock()
}

// IsConnected reports whether the client is open. A nil client is closed.
func (c *Client) IsConnected() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := ping(ctx, c.client); err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	return nil
}

// Stats returns the write counters.
func (c *Client) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	return Stats{Points: c.points.Load(), WriteErrors: c.writeErrors.Load()}
}

// Flush blocks until buffered points are sent.
func (c *Client) Flush() {
	if c.IsConnected() {
		c.writeAPI.Flush()
	}
}

// Close flushes and releases the client. Calling it twice is safe.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.mu.Lock()
	wasOpen := c.open
	c.open = false
	c.mu.Unlock()

	if wasOpen {
		c.writeAPI.Flush()
		c.client.Close()
	}
	return nil
}
