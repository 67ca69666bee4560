// Package fetchcache shares portal reads between the tables of one page
// session. Each URL is fetched at most once; concurrent callers wait on the
// same request and failures are remembered as an unsuccessful payload.
package fetchcache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/lamim/corrispettivi-report/internal/portal"
)

// Fetcher performs the actual read.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*portal.Payload, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, url string) (*portal.Payload, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, url string) (*portal.Payload, error) {
	return f(ctx, url)
}

type entry struct {
	done    chan struct{}
	payload *portal.Payload
}

// Cache memoizes reads by URL for the lifetime of the value. Entries are
// never evicted.
type Cache struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
}

// New returns an empty cache reading through fetcher.
func New(fetcher Fetcher, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		fetcher: fetcher,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Get returns the payload for url. It never fails: any fetch error resolves
// to portal.Failed(). Once issued, a fetch is not cancelled by ctx; only the
// wait of this caller is.
func (c *Cache) Get(ctx context.Context, url string) *portal.Payload {
	c.mu.Lock()
	e, ok := c.entries[url]
	if !ok {
		e = &entry{done: make(chan struct{})}
		c.entries[url] = e
		c.order = append(c.order, url)
	}
	c.mu.Unlock()

	if !ok {
		go c.fill(context.WithoutCancel(ctx), url, e)
	}

	select {
	case <-e.done:
		return e.payload
	case <-ctx.Done():
		return portal.Failed()
	}
}

func (c *Cache) fill(ctx context.Context, url string, e *entry) {
	defer close(e.done)

	payload, err := c.fetcher.Fetch(ctx, url)
	if err != nil || payload == nil {
		c.logger.Debug("read failed, caching fallback", zap.String("url", url), zap.Error(err))
		payload = portal.Failed()
	}
	e.payload = payload
}

// Fetch implements Fetcher so that a Cache can stand in for the client it
// wraps. The error is always nil.
func (c *Cache) Fetch(ctx context.Context, url string) (*portal.Payload, error) {
	return c.Get(ctx, url), nil
}

var _ Fetcher = (*Cache)(nil)

// Len returns the number of distinct URLs requested so far.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Requests returns the distinct URLs in the order they were first requested.
func (c *Cache) Requests() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
