package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"deal-feed-service/internal/models"
	"deal-feed-service/internal/redisclient"
)

type fakeAffinity struct {
	brands []string
	err    error
	limit  int
}

func (f *fakeAffinity) GetPopularBrands(ctx context.Context, limit int) ([]string, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.brands) > limit {
		return f.brands[:limit], nil
	}
	return f.brands, nil
}

type fakeSource struct {
	raw   string
	err   error
	calls int
}

func (f *fakeSource) Fetch(ctx context.Context) (string, error) {
	f.calls++
	return f.raw, f.err
}

// memorySink is an upsert sink keyed by AwinID
type memorySink struct {
	mu       sync.Mutex
	rows     map[int64]models.Product
	inflight map[int64]bool
	calls    int
	failOn   int64
	overlap  bool
	nextID   int64
}

func newMemorySink() *memorySink {
	return &memorySink{rows: map[int64]models.Product{}, inflight: map[int64]bool{}, failOn: -1}
}

func (m *memorySink) UpsertProduct(ctx context.Context, p *models.Product) error {
	m.mu.Lock()
	m.calls++
	if m.inflight[p.AwinID] {
		m.overlap = true
	}
	m.inflight[p.AwinID] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.inflight, p.AwinID)
		m.mu.Unlock()
	}()

	if p.AwinID == m.failOn {
		return fmt.Errorf("constraint violation on %d", p.AwinID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	existing, ok := m.rows[p.AwinID]
	if ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		m.nextID++
		p.ID = m.nextID
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	m.rows[p.AwinID] = *p
	return nil
}

func (m *memorySink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type fakePublisher struct {
	mu    sync.Mutex
	deals []*models.DealUpsertedEvent
	runs  []*models.FeedRunCompletedEvent
	err   error
}

func (f *fakePublisher) PublishDeals(ctx context.Context, events []*models.DealUpsertedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deals = append(f.deals, events...)
	return f.err
}

func (f *fakePublisher) PublishRunCompleted(ctx context.Context, event *models.FeedRunCompletedEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, event)
	return f.err
}

type memoryCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deletes int
	getErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (c *memoryCache) GetJSON(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	data, ok := c.values[key]
	if !ok {
		return redisclient.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = data
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

// fakeRunner counts runs and can block or fail them
type fakeRunner struct {
	mu       sync.Mutex
	calls    int
	err      error
	panicMsg string
	started  chan struct{}
	release  chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context) (*RunReport, error) {
	r.mu.Lock()
	r.calls++
	err, panicMsg := r.err, r.panicMsg
	started, release := r.started, r.release
	r.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if release != nil {
		<-release
	}
	if panicMsg != "" {
		panic(panicMsg)
	}
	return &RunReport{Persisted: 1}, err
}

func (r *fakeRunner) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	extends  int
	released []string
}

func (l *fakeLock) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token-1", true, nil
}

func (l *fakeLock) ExtendLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.extends++
	return l.held, nil
}

func (l *fakeLock) extendCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.extends
}

func (l *fakeLock) ReleaseLock(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	l.released = append(l.released, token)
	return nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var errBoom = errors.New("boom")
