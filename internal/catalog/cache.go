package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/holos-run/gamescout/internal/igdb"
)

// PageFetcher fetches one page of a named upstream collection. An empty page
// means the collection is exhausted.
type PageFetcher interface {
	FetchPage(ctx context.Context, resource string, offset, pageSize int) ([]igdb.CatalogItem, error)
}

// RefreshError reports a whole-collection refresh that failed with no usable
// snapshot to fall back on, or an explicit refresh that failed.
type RefreshError struct {
	Resource string
	Offset   int
	Err      error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh %s failed at offset %d: %v", e.Resource, e.Offset, e.Err)
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// flight is a refresh in progress. done is closed once err is set.
type flight struct {
	done chan struct{}
	err  error
}

// Cache holds an in-memory snapshot of an entire upstream collection and
// refreshes it wholesale once it is older than the TTL.
//
// At most one refresh runs at a time. Callers arriving while a refresh is in
// flight attach to it and wait, bounded by the wait timeout, for its result.
// A failed refresh leaves the previous snapshot in place and that snapshot is
// served instead of the error whenever it is non-empty.
type Cache struct {
	fetcher     PageFetcher
	resource    string
	ttl         time.Duration
	pageSize    int
	pageDelay   time.Duration
	waitTimeout time.Duration
	lang        language.Tag
	now         func() time.Time
	logger      *slog.Logger

	snap atomic.Pointer[Snapshot]

	mu       sync.Mutex
	inflight *flight
}

// New creates an empty cache for resource. Nothing is fetched until the first
// call to GetAll, Search or Refresh.
func New(fetcher PageFetcher, resource string, options ...Option) (*Cache, error) {
	if fetcher == nil {
		return nil, errors.New("page fetcher is required")
	}
	if resource == "" {
		return nil, errors.New("resource name is required")
	}

	opts, err := getOpts(options)
	if err != nil {
		return nil, err
	}

	return &Cache{
		fetcher:     fetcher,
		resource:    resource,
		ttl:         opts.ttl,
		pageSize:    opts.pageSize,
		pageDelay:   opts.pageDelay,
		waitTimeout: opts.waitTimeout,
		lang:        opts.lang,
		now:         opts.now,
		logger:      opts.logger.With(slog.String("resource", resource)),
	}, nil
}

// GetAll returns the current snapshot if it is fresh and non-empty. Otherwise
// it starts a refresh, or joins the one already running, and returns the
// resulting snapshot. An error is returned only when the refresh failed and no
// earlier snapshot exists, or when ctx ends before anything can be served.
//
// The returned snapshot is shared and must not be modified.
func (c *Cache) GetAll(ctx context.Context) (*Snapshot, error) {
	if s := c.load(); c.fresh(s) {
		return s, nil
	}
	return c.wait(ctx, c.start(false))
}

// Refresh forces a refresh regardless of freshness, joining one that is
// already in flight, and waits for it to finish. Unlike GetAll it reports a
// failed refresh even when a stale snapshot remains available.
func (c *Cache) Refresh(ctx context.Context) error {
	f := c.start(true)
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current snapshot without triggering a refresh.
func (c *Cache) Snapshot() *Snapshot {
	return c.load()
}

// start returns the in-flight refresh, launching one if none is running. It
// returns nil when force is false and a concurrent refresh already produced
// a fresh snapshot.
func (c *Cache) start(force bool) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight != nil {
		return c.inflight
	}
	if !force && c.fresh(c.load()) {
		return nil
	}

	f := &flight{done: make(chan struct{})}
	c.inflight = f
	go c.run(f)
	return f
}

func (c *Cache) wait(ctx context.Context, f *flight) (*Snapshot, error) {
	if f == nil {
		return c.load(), nil
	}

	timer := time.NewTimer(c.waitTimeout)
	defer timer.Stop()

	select {
	case <-f.done:
		s := c.load()
		if f.err != nil && s.Len() == 0 {
			return nil, f.err
		}
		return s, nil
	case <-timer.C:
		s := c.load()
		c.logger.Warn("timed out waiting for refresh, serving current snapshot",
			slog.Duration("wait_timeout", c.waitTimeout),
			slog.Int("items", s.Len()),
		)
		return s, nil
	case <-ctx.Done():
		if s := c.load(); s.Len() != 0 {
			return s, nil
		}
		return nil, ctx.Err()
	}
}

// run executes a refresh and releases the in-flight slot on every exit path.
// The refresh is not tied to any caller's context and runs to completion.
func (c *Cache) run(f *flight) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("refresh panicked", slog.Any("panic", r))
			f.err = &RefreshError{Resource: c.resource, Err: fmt.Errorf("panic: %v", r)}
		}
		c.mu.Lock()
		c.inflight = nil
		c.mu.Unlock()
		close(f.done)
	}()

	f.err = c.refresh(context.Background())
}

// refresh drains every page of the collection and replaces the snapshot. On
// failure the accumulated pages are discarded and the snapshot is unchanged.
func (c *Cache) refresh(ctx context.Context) error {
	started := c.now()
	items := make([]igdb.CatalogItem, 0, c.pageSize)
	offset := 0

	for page := 0; ; page++ {
		if page > 0 && c.pageDelay > 0 {
			time.Sleep(c.pageDelay)
		}

		c.logger.Debug("fetching page",
			slog.Int("offset", offset),
			slog.Int("limit", c.pageSize),
		)

		batch, err := c.fetcher.FetchPage(ctx, c.resource, offset, c.pageSize)
		if err != nil {
			return c.refreshFailed(offset, err)
		}

		items = append(items, batch...)
		if len(batch) < c.pageSize {
			break
		}
		offset += c.pageSize
	}

	c.sortItems(items)
	c.store(items)

	c.logger.Info("refreshed catalog",
		slog.Int("items", len(items)),
		slog.Duration("elapsed", c.now().Sub(started)),
	)
	return nil
}

func (c *Cache) refreshFailed(offset int, err error) error {
	rerr := &RefreshError{Resource: c.resource, Offset: offset, Err: err}
	if prev := c.load(); prev.Len() != 0 {
		c.logger.Warn("refresh failed, keeping stale snapshot",
			slog.String("error", err.Error()),
			slog.Int("offset", offset),
			slog.Int("items", prev.Len()),
			slog.Time("fetched_at", prev.FetchedAt),
		)
	} else {
		c.logger.Error("refresh failed with no snapshot to fall back on",
			slog.String("error", err.Error()),
			slog.Int("offset", offset),
		)
	}
	return rerr
}

// sortItems orders items by name, case-insensitively, using the configured
// collation.
func (c *Cache) sortItems(items []igdb.CatalogItem) {
	col := collate.New(c.lang, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		return col.CompareString(items[i].Name, items[j].Name) < 0
	})
}

// store atomically replaces the snapshot. Timestamps never move backwards.
func (c *Cache) store(items []igdb.CatalogItem) {
	fetchedAt := c.now()
	if prev := c.snap.Load(); prev != nil && fetchedAt.Before(prev.FetchedAt) {
		fetchedAt = prev.FetchedAt
	}
	c.snap.Store(newSnapshot(items, fetchedAt))
}

func (c *Cache) load() *Snapshot {
	if s := c.snap.Load(); s != nil {
		return s
	}
	return &emptySnapshot
}

// fresh reports whether s can be served without a refresh. TTL is measured
// from the last successful refresh.
func (c *Cache) fresh(s *Snapshot) bool {
	return s.Len() != 0 && c.now().Sub(s.FetchedAt) < c.ttl
}
