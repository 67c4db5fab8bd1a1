package catalog_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holos-run/gamescout/internal/catalog"
	"github.com/holos-run/gamescout/internal/igdb"
)

var errUpstream = errors.New("upstream unavailable")

// fakeFetcher serves pages from a fixed item list and records calls.
type fakeFetcher struct {
	mu      sync.Mutex
	items   []igdb.CatalogItem
	calls   []int
	failAt  map[int]error
	panicAt int

	// gate, when set, blocks every fetch until it is closed.
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeFetcher(n int) *fakeFetcher {
	items := make([]igdb.CatalogItem, n)
	for i := range items {
		items[i] = igdb.CatalogItem{
			ID:   int64(i + 1),
			Name: fmt.Sprintf("Keyword %05d", n-i),
			Slug: fmt.Sprintf("keyword-%05d", n-i),
		}
	}
	return &fakeFetcher{
		items:   items,
		failAt:  make(map[int]error),
		panicAt: -1,
		started: make(chan struct{}),
	}
}

func (f *fakeFetcher) FetchPage(ctx context.Context, resource string, offset, pageSize int) ([]igdb.CatalogItem, error) {
	f.once.Do(func() { close(f.started) })

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, offset)
	if offset == f.panicAt {
		panic("fetcher exploded")
	}
	if err, ok := f.failAt[offset]; ok {
		return nil, err
	}
	if offset >= len(f.items) {
		return []igdb.CatalogItem{}, nil
	}
	end := offset + pageSize
	if end > len(f.items) {
		end = len(f.items)
	}
	return append([]igdb.CatalogItem(nil), f.items[offset:end]...), nil
}

func (f *fakeFetcher) setItems(items []igdb.CatalogItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

func (f *fakeFetcher) fail(offset int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failAt, offset)
		return
	}
	f.failAt[offset] = err
}

func (f *fakeFetcher) setGate(gate chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = gate
}

func (f *fakeFetcher) offsets() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, time.January, 10, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCache(t *testing.T, fetcher catalog.PageFetcher, opts ...catalog.Option) *catalog.Cache {
	t.Helper()
	opts = append([]catalog.Option{catalog.WithPageDelay(0)}, opts...)
	cache, err := catalog.New(fetcher, igdb.ResourceKeywords, opts...)
	require.NoError(t, err)
	return cache
}

func TestCache_DrainsAllPages(t *testing.T) {
	fetcher := newFakeFetcher(1213)
	cache := newCache(t, fetcher)

	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1213, snap.Len())
	assert.Equal(t, []int{0, 500, 1000}, fetcher.offsets(), "a short third page should end the drain")
	assert.Equal(t, "Keyword 00001", snap.Items()[0].Name, "items should be sorted by name")
	assert.Equal(t, "Keyword 01213", snap.Items()[1212].Name)
}

func TestCache_EmptyPageEndsDrain(t *testing.T) {
	fetcher := newFakeFetcher(1000)
	cache := newCache(t, fetcher)

	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1000, snap.Len())
	assert.Equal(t, []int{0, 500, 1000}, fetcher.offsets())
}

func TestCache_SortIgnoresCase(t *testing.T) {
	fetcher := newFakeFetcher(0)
	fetcher.setItems([]igdb.CatalogItem{
		{ID: 1, Name: "zombies"},
		{ID: 2, Name: "Aliens"},
		{ID: 3, Name: "bosses"},
		{ID: 4, Name: "Zeppelin"},
	})
	cache := newCache(t, fetcher)

	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err)

	var names []string
	for _, item := range snap.Items() {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"Aliens", "bosses", "Zeppelin", "zombies"}, names)
}

func TestCache_SingleFlight(t *testing.T) {
	fetcher := newFakeFetcher(1213)
	gate := make(chan struct{})
	fetcher.setGate(gate)
	cache := newCache(t, fetcher)

	const callers = 32
	snaps := make([]*catalog.Snapshot, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snaps[i], errs[i] = cache.GetAll(context.Background())
		}(i)
	}

	<-fetcher.started
	// Give the remaining callers a chance to attach to the flight.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, snaps[0], snaps[i], "all callers should observe the same snapshot")
	}
	assert.Equal(t, []int{0, 500, 1000}, fetcher.offsets(), "exactly one drain should run")
}

func TestCache_StaleOnError(t *testing.T) {
	clk := newClock()
	fetcher := newFakeFetcher(1000)
	cache := newCache(t, fetcher, catalog.WithClock(clk.Now))
	ctx := context.Background()

	first, err := cache.GetAll(ctx)
	require.NoError(t, err)
	require.Equal(t, 1000, first.Len())

	clk.Advance(catalog.DefaultTTL + time.Hour)
	fetcher.fail(500, errUpstream)

	snap, err := cache.GetAll(ctx)
	require.NoError(t, err, "stale snapshot should be served instead of the error")
	assert.Same(t, first, snap)
	assert.Equal(t, 1000, snap.Len())
	assert.Equal(t, []int{0, 500, 1000, 0, 500}, fetcher.offsets())
}

func TestCache_FirstRefreshFails(t *testing.T) {
	fetcher := newFakeFetcher(1000)
	fetcher.fail(0, errUpstream)
	cache := newCache(t, fetcher)

	snap, err := cache.GetAll(context.Background())
	assert.Nil(t, snap)

	var refreshErr *catalog.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, igdb.ResourceKeywords, refreshErr.Resource)
	assert.Equal(t, 0, refreshErr.Offset)
	assert.ErrorIs(t, err, errUpstream)
}

func TestCache_PartialPagesDiscarded(t *testing.T) {
	fetcher := newFakeFetcher(1213)
	fetcher.fail(1000, errUpstream)
	cache := newCache(t, fetcher)
	ctx := context.Background()

	_, err := cache.GetAll(ctx)
	var refreshErr *catalog.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	assert.Equal(t, 1000, refreshErr.Offset)
	assert.Equal(t, 0, cache.Snapshot().Len(), "pages fetched before the failure should be discarded")

	fetcher.fail(1000, nil)
	snap, err := cache.GetAll(ctx)
	require.NoError(t, err, "the in-flight slot should be released after a failure")
	assert.Equal(t, 1213, snap.Len())
}

func TestCache_FailureWithAuthError(t *testing.T) {
	fetcher := newFakeFetcher(10)
	authErr := &igdb.AuthError{Err: errors.New("invalid client")}
	fetcher.fail(0, authErr)
	cache := newCache(t, fetcher)

	_, err := cache.GetAll(context.Background())
	var refreshErr *catalog.RefreshError
	require.ErrorAs(t, err, &refreshErr)
	var gotAuth *igdb.AuthError
	assert.ErrorAs(t, err, &gotAuth, "token failures are wrapped like any other page failure")
}

func TestCache_TTL(t *testing.T) {
	clk := newClock()
	fetcher := newFakeFetcher(10)
	cache := newCache(t, fetcher, catalog.WithClock(clk.Now))
	ctx := context.Background()

	_, err := cache.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, fetcher.offsets(), 1)

	clk.Advance(6*24*time.Hour + 23*time.Hour)
	_, err = cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, fetcher.offsets(), 1, "refresh should not be retriggered before the TTL")

	clk.Advance(2 * time.Hour)
	_, err = cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, fetcher.offsets(), 2, "refresh should be retriggered after the TTL")
}

func TestCache_TTLFromLastSuccess(t *testing.T) {
	clk := newClock()
	fetcher := newFakeFetcher(10)
	cache := newCache(t, fetcher, catalog.WithClock(clk.Now), catalog.WithTTL(time.Hour))
	ctx := context.Background()

	first, err := cache.GetAll(ctx)
	require.NoError(t, err)

	// Failed refreshes do not extend freshness.
	clk.Advance(2 * time.Hour)
	fetcher.fail(0, errUpstream)
	snap, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.FetchedAt, snap.FetchedAt)

	_, err = cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, fetcher.offsets(), 3, "each access of a stale snapshot should retry the refresh")
}

func TestCache_WaitTimeout(t *testing.T) {
	fetcher := newFakeFetcher(10)
	gate := make(chan struct{})
	fetcher.setGate(gate)
	t.Cleanup(func() { close(gate) })

	cache := newCache(t, fetcher, catalog.WithWaitTimeout(50*time.Millisecond))

	start := time.Now()
	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err, "a waiter that times out should proceed rather than fail")
	assert.Equal(t, 0, snap.Len())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCache_ContextCanceledWhileWaiting(t *testing.T) {
	fetcher := newFakeFetcher(10)
	gate := make(chan struct{})
	fetcher.setGate(gate)
	cache := newCache(t, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := cache.GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// The refresh itself keeps running and completes for later callers.
	close(gate)
	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Len())
}

func TestCache_Refresh(t *testing.T) {
	fetcher := newFakeFetcher(10)
	cache := newCache(t, fetcher)
	ctx := context.Background()

	_, err := cache.GetAll(ctx)
	require.NoError(t, err)

	fetcher.setItems(newFakeFetcher(20).items)
	require.NoError(t, cache.Refresh(ctx))
	assert.Equal(t, 20, cache.Snapshot().Len(), "explicit refresh should ignore freshness")

	fetcher.fail(0, errUpstream)
	err = cache.Refresh(ctx)
	var refreshErr *catalog.RefreshError
	require.ErrorAs(t, err, &refreshErr, "explicit refresh reports failure")

	snap, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 20, snap.Len(), "previous snapshot survives a failed refresh")
}

func TestCache_MonotonicTimestamp(t *testing.T) {
	clk := newClock()
	fetcher := newFakeFetcher(10)
	cache := newCache(t, fetcher, catalog.WithClock(clk.Now))
	ctx := context.Background()

	require.NoError(t, cache.Refresh(ctx))
	first := cache.Snapshot().FetchedAt

	clk.Advance(-time.Hour)
	require.NoError(t, cache.Refresh(ctx))
	assert.False(t, cache.Snapshot().FetchedAt.Before(first), "timestamp should never decrease")
}

func TestCache_PanicReleasesFlight(t *testing.T) {
	fetcher := newFakeFetcher(10)
	fetcher.panicAt = 0
	cache := newCache(t, fetcher)
	ctx := context.Background()

	_, err := cache.GetAll(ctx)
	var refreshErr *catalog.RefreshError
	require.ErrorAs(t, err, &refreshErr)

	fetcher.mu.Lock()
	fetcher.panicAt = -1
	fetcher.mu.Unlock()

	snap, err := cache.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, snap.Len())
}

func TestCache_PageDelay(t *testing.T) {
	fetcher := newFakeFetcher(25)
	cache := newCache(t, fetcher, catalog.WithPageSize(10), catalog.WithPageDelay(10*time.Millisecond))

	start := time.Now()
	snap, err := cache.GetAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25, snap.Len())
	assert.Equal(t, []int{0, 10, 20}, fetcher.offsets())
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond, "pages should be paced")
}

func TestNew_Validation(t *testing.T) {
	fetcher := newFakeFetcher(1)

	tests := []struct {
		name     string
		fetcher  catalog.PageFetcher
		resource string
		opts     []catalog.Option
	}{
		{name: "nil fetcher", fetcher: nil, resource: "keywords"},
		{name: "empty resource", fetcher: fetcher, resource: ""},
		{name: "zero ttl", fetcher: fetcher, resource: "keywords", opts: []catalog.Option{catalog.WithTTL(0)}},
		{name: "zero page size", fetcher: fetcher, resource: "keywords", opts: []catalog.Option{catalog.WithPageSize(0)}},
		{name: "negative delay", fetcher: fetcher, resource: "keywords", opts: []catalog.Option{catalog.WithPageDelay(-time.Second)}},
		{name: "zero wait", fetcher: fetcher, resource: "keywords", opts: []catalog.Option{catalog.WithWaitTimeout(0)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.New(tt.fetcher, tt.resource, tt.opts...)
			assert.Error(t, err)
		})
	}
}
