package calendar_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/remote"
)

// memCache is an in-memory Cache that counts writes.
type memCache struct {
	mu       sync.Mutex
	data     map[string][]domain.Item
	saves    map[string]int
	failSave bool
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]domain.Item), saves: make(map[string]int)}
}

func (c *memCache) GetItems(_ context.Context, key string) []domain.Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CloneItems(c.data[key])
}

func (c *memCache) SaveItems(_ context.Context, key string, items []domain.Item) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failSave {
		return false
	}
	c.saves[key]++
	c.data[key] = domain.CloneItems(items)
	return true
}

func (c *memCache) Clear(_ context.Context, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return true
}

func (c *memCache) get(key string) []domain.Item {
	return c.GetItems(context.Background(), key)
}

func (c *memCache) saveCount(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves[key]
}

type updateCall struct {
	id    string
	patch domain.Patch
}

// fakeCollection is a scriptable remote.Collection with call counters.
type fakeCollection struct {
	mu sync.Mutex

	all    []domain.Item
	getErr error

	// echo makes Add return a server record; otherwise Add succeeds without data.
	echo   bool
	prefix string
	addErr error
	nextID int

	updateErr error
	deleteErr error

	calls   map[string]int
	added   []domain.Item
	updates []updateCall
	deletes []string

	// When block is set GetAll and GetByDay signal entered and wait for block to close.
	entered chan struct{}
	block   chan struct{}
}

func newFakeCollection(items ...domain.Item) *fakeCollection {
	return &fakeCollection{all: items, prefix: "srv", calls: make(map[string]int)}
}

func (f *fakeCollection) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeCollection) record(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
}

func (f *fakeCollection) wait(ctx context.Context) error {
	f.mu.Lock()
	block, entered := f.block, f.entered
	f.mu.Unlock()
	if block == nil {
		return nil
	}
	select {
	case entered <- struct{}{}:
	default:
	}
	select {
	case <-block:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeCollection) GetAll(ctx context.Context, userID *string) ([]domain.Item, error) {
	f.record("get_all")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]domain.Item, 0)
	for _, it := range f.all {
		if it.OwnedBy(userID) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (f *fakeCollection) GetByDay(ctx context.Context, day int, userID *string) ([]domain.Item, error) {
	f.record("get_by_day")
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]domain.Item, 0)
	for _, it := range f.all {
		if it.Day == day && it.OwnedBy(userID) {
			out = append(out, it.Clone())
		}
	}
	return out, nil
}

func (f *fakeCollection) Add(_ context.Context, item domain.Item) (*domain.Item, error) {
	f.record("add")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, item.Clone())
	if f.addErr != nil {
		return nil, f.addErr
	}
	if !f.echo {
		return nil, nil
	}
	f.nextID++
	created := item.Clone()
	created.ID = fmt.Sprintf("%s-%d", f.prefix, f.nextID)
	created.Revision = 1
	return &created, nil
}

func (f *fakeCollection) Update(_ context.Context, id string, patch domain.Patch) (*domain.Item, error) {
	f.record("update")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, updateCall{id: id, patch: patch})
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &domain.Item{ID: id, Revision: patch.BaseRevision + 1}, nil
}

func (f *fakeCollection) Delete(_ context.Context, id string) error {
	f.record("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return f.deleteErr
}

type fakeGateway struct {
	events *fakeCollection
	todos  *fakeCollection
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{events: newFakeCollection(), todos: newFakeCollection()}
	g.events.prefix, g.todos.prefix = "evt", "todo"
	return g
}

func (g *fakeGateway) For(kind domain.Kind) remote.Collection {
	if kind == domain.KindTask {
		return g.todos
	}
	return g.events
}

func (g *fakeGateway) remoteCalls() int {
	n := 0
	for _, c := range []*fakeCollection{g.events, g.todos} {
		c.mu.Lock()
		for _, v := range c.calls {
			n += v
		}
		c.mu.Unlock()
	}
	return n
}

// fakeObserver counts refresh outcomes.
type fakeObserver struct {
	mu        sync.Mutex
	refreshes map[string]int
	remote    map[string]int
	online    bool
}

func newFakeObserver() *fakeObserver {
	return &fakeObserver{refreshes: make(map[string]int), remote: make(map[string]int)}
}

func (o *fakeObserver) RecordRemote(collection, operation string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := collection + "." + operation
	if err != nil {
		key += ".error"
	}
	o.remote[key]++
}

func (o *fakeObserver) RecordRefresh(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.refreshes[outcome]++
}

func (o *fakeObserver) SetOnline(online bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.online = online
}

func (o *fakeObserver) refreshCount(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.refreshes[outcome]
}

func (o *fakeObserver) remoteCount(key string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remote[key]
}
