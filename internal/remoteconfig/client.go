package remoteconfig

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"
)

// Options configures a Client.
type Options struct {
	// MinRefreshInterval is the shortest time between two fetches that reach
	// the source. Zero refreshes on every call.
	MinRefreshInterval time.Duration

	// FetchTimeout bounds one fetch including retries.
	FetchTimeout time.Duration

	// Attempts and RetryDelay control fetch retries.
	Attempts   uint
	RetryDelay time.Duration

	Logger *slog.Logger

	// OnRefresh is called after every fetch that reached the source.
	OnRefresh func(err error)
}

// Status describes the cache state.
type Status struct {
	Source      string    `json:"source"`
	Loaded      bool      `json:"loaded"`
	Keys        int       `json:"keys"`
	LastAttempt time.Time `json:"last_attempt,omitempty"`
	LastSuccess time.Time `json:"last_success,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
}

// Client is a read-through cache over a Source. It is safe for concurrent use.
type Client struct {
	source Source
	opts   Options
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time

	mu          sync.RWMutex
	values      map[string]string
	loaded      bool
	lastAttempt time.Time
	lastSuccess time.Time
	lastErr     error
}

// NewClient creates a client over source.
func NewClient(source Source, opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Attempts == 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	return &Client{
		source: source,
		opts:   opts,
		logger: opts.Logger,
		now:    time.Now,
		values: make(map[string]string),
	}
}

// Get returns the cached value for key, or "" when the key is absent.
// The first Get on an empty cache triggers a fetch.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()

	if !loaded {
		if err := c.Refresh(ctx); err != nil {
			return "", err
		}
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded {
		if c.lastErr != nil {
			return "", fmt.Errorf("%w: %v", ErrNotLoaded, c.lastErr)
		}
		return "", ErrNotLoaded
	}
	return c.values[key], nil
}

// Refresh fetches from the source unless the previous attempt is younger than
// MinRefreshInterval. Concurrent callers share one fetch.
func (c *Client) Refresh(ctx context.Context) error {
	if !c.due() {
		return nil
	}
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		// Another caller may have finished a fetch while we waited.
		if !c.due() {
			return nil, nil
		}
		return nil, c.fetch(ctx)
	})
	return err
}

// ForceRefresh fetches regardless of MinRefreshInterval.
func (c *Client) ForceRefresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		return nil, c.fetch(ctx)
	})
	return err
}

func (c *Client) due() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastAttempt.IsZero() {
		return true
	}
	return c.now().Sub(c.lastAttempt) >= c.opts.MinRefreshInterval
}

func (c *Client) fetch(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()

	var values map[string]string
	err := retry.Do(
		func() error {
			v, err := c.source.Fetch(ctx)
			if err != nil {
				return err
			}
			values = v
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.Attempts),
		retry.Delay(c.opts.RetryDelay),
		retry.LastErrorOnly(true),
	)

	c.mu.Lock()
	c.lastAttempt = c.now()
	if err != nil {
		c.lastErr = err
	} else {
		if values == nil {
			values = make(map[string]string)
		}
		c.values = values
		c.loaded = true
		c.lastSuccess = c.lastAttempt
		c.lastErr = nil
	}
	c.mu.Unlock()

	if c.opts.OnRefresh != nil {
		c.opts.OnRefresh(err)
	}
	if err != nil {
		c.logger.Warn("remote config fetch failed", "source", c.source.Name(), "error", err)
		return fmt.Errorf("remote config fetch from %s: %w", c.source.Name(), err)
	}
	c.logger.Debug("remote config refreshed", "source", c.source.Name(), "keys", len(values))
	return nil
}

// Values returns a copy of the cached values.
func (c *Client) Values() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// Publish writes values to the source and refreshes the cache.
func (c *Client) Publish(ctx context.Context, values map[string]string) error {
	pub, ok := c.source.(Publisher)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, c.source.Name())
	}
	if err := pub.Publish(ctx, values); err != nil {
		return err
	}
	return c.ForceRefresh(ctx)
}

// Status returns a snapshot of the cache state.
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Status{
		Source:      c.source.Name(),
		Loaded:      c.loaded,
		Keys:        len(c.values),
		LastAttempt: c.lastAttempt,
		LastSuccess: c.lastSuccess,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// Ready reports whether the cache holds a successful fetch, fetching once if
// it does not.
func (c *Client) Ready(ctx context.Context) error {
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return nil
	}
	return c.ForceRefresh(ctx)
}
