package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
)

// OpenFunc makes one connection attempt.
type OpenFunc func(ctx context.Context) (Store, error)

// Connector lazily opens a Store once per process.
//
// Concurrent callers of Connect share a single in-flight attempt. A
// successful Store is cached and returned to every later caller; a failed
// attempt is reported to all of its waiters and the next Connect starts a
// fresh one.
type Connector struct {
	open    OpenFunc
	timeout time.Duration

	group singleflight.Group

	mu       sync.Mutex
	st       Store
	attempts int
}

// NewConnector returns a Connector that bounds each attempt (retries
// included) by timeout.
func NewConnector(open OpenFunc, timeout time.Duration) *Connector {
	return &Connector{open: open, timeout: timeout}
}

// Connect returns the shared Store, opening it if needed. ctx only bounds how
// long this caller waits; cancelling it does not abort the shared attempt.
func (c *Connector) Connect(ctx context.Context) (Store, error) {
	if st := c.cached(); st != nil {
		return st, nil
	}

	ch := c.group.DoChan("connect", func() (interface{}, error) {
		// A previous attempt may have finished between cached() and DoChan.
		if st := c.cached(); st != nil {
			return st, nil
		}
		st, err := c.connect()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.st = st
		c.mu.Unlock()
		return st, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Store), nil
	}
}

// Attempts returns how many times the open function has been called.
func (c *Connector) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Close closes the cached Store, if any.
func (c *Connector) Close(ctx context.Context) error {
	c.mu.Lock()
	st := c.st
	c.st = nil
	c.mu.Unlock()
	if st == nil {
		return nil
	}
	return st.Close(ctx)
}

func (c *Connector) cached() Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// connect runs the retry loop under its own deadline.
func (c *Connector) connect() (Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxElapsedTime = c.timeout

	var (
		st      Store
		lastErr error
	)
	err := backoff.RetryNotify(func() error {
		c.mu.Lock()
		c.attempts++
		c.mu.Unlock()

		s, err := c.open(ctx)
		if err != nil {
			lastErr = err
			return err
		}
		st = s
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, wait time.Duration) {
		slog.Warn("store: connect failed, retrying", "err", err, "retry_in", wait)
	})
	if err != nil {
		if lastErr != nil {
			err = lastErr
		}
		return nil, fmt.Errorf("store: connect within %s: %w", c.timeout, err)
	}
	return st, nil
}
