// Package calendar keeps an in-memory item collection, the offline cache and the
// remote backend consistent while the device moves between online and offline.
//
// All public operations are safe for concurrent use. State is replaced
// wholesale under a mutex and no I/O happens while it is held; local state is
// always updated before a mutation returns, remote confirmation is best effort.
package calendar

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/daybookapp/daybook/internal/connectivity"
	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/identity"
	"github.com/daybookapp/daybook/internal/remote"
)

// Cache is the durable offline copy, one bucket per item kind.
// Implementations absorb their own failures.
type Cache interface {
	GetItems(ctx context.Context, key string) []domain.Item
	SaveItems(ctx context.Context, key string, items []domain.Item) bool
	Clear(ctx context.Context, key string) bool
}

// Gateway resolves the remote collection for a kind.
type Gateway interface {
	For(kind domain.Kind) remote.Collection
}

// Observer receives sync telemetry. *metrics.SyncObserver implements it.
type Observer interface {
	RecordRemote(collection, operation string, duration time.Duration, err error)
	RecordRefresh(outcome string)
	SetOnline(online bool)
}

type nopObserver struct{}

func (nopObserver) RecordRemote(string, string, time.Duration, error) {}
func (nopObserver) RecordRefresh(string)                              {}
func (nopObserver) SetOnline(bool)                                    {}

// DayFetchPolicy decides what a successful remote day fallback updates.
type DayFetchPolicy int

const (
	// DayFetchProjectionOnly replaces only the active-day projection. The full
	// collection and the cache are left for the next Refresh.
	DayFetchProjectionOnly DayFetchPolicy = iota
	// DayFetchMerge also upserts the fetched items into the collection and cache.
	DayFetchMerge
)

// String implements fmt.Stringer.
func (p DayFetchPolicy) String() string {
	if p == DayFetchMerge {
		return "merge"
	}
	return "projection"
}

// Refresh outcomes reported to the Observer.
const (
	RefreshLocal       = "local"
	RefreshRemote      = "remote"
	RefreshRemoteEmpty = "remote_empty"
	RefreshRemoteError = "remote_error"
	RefreshDropped     = "dropped"
	RefreshCoalesced   = "coalesced"
)

// State is a point-in-time copy of what the store exposes. Slices are owned by
// the receiver.
type State struct {
	Items          []domain.Item
	DayItems       []domain.Item
	SelectedDay    int
	LastFetchedDay int
	Online         bool
	Loading        bool
}

func (st State) clone() State {
	out := st
	out.Items = domain.CloneItems(st.Items)
	out.DayItems = domain.CloneItems(st.DayItems)
	return out
}

// Deps are the collaborators a Store needs. Cache and Gateway are required.
type Deps struct {
	Cache    Cache
	Gateway  Gateway
	Checker  connectivity.Checker
	Identity identity.Provider
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithSelectedDay sets the initial selected day. The default is today's day of month.
func WithSelectedDay(day int) Option {
	return func(s *Store) { s.initialDay = day }
}

// WithProbeInterval sets how often Start re-checks connectivity.
func WithProbeInterval(d time.Duration) Option {
	return func(s *Store) { s.probeInterval = d }
}

// WithDayFetchPolicy chooses what the remote day fallback updates.
func WithDayFetchPolicy(p DayFetchPolicy) Option {
	return func(s *Store) { s.dayPolicy = p }
}

// WithRefreshCoalescing makes a Refresh that arrives while one is running
// schedule exactly one follow-up run instead of being dropped.
func WithRefreshCoalescing() Option {
	return func(s *Store) { s.coalesce = true }
}

// Store owns the calendar state.
type Store struct {
	cache    Cache
	gateway  Gateway
	checker  connectivity.Checker
	identity identity.Provider
	logger   *slog.Logger
	observer Observer
	now      func() time.Time

	initialDay    int
	probeInterval time.Duration
	dayPolicy     DayFetchPolicy
	coalesce      bool

	mu          sync.Mutex
	state       State
	subscribers map[int]chan State
	nextSubID   int

	// persistMu orders cache writes so a slower write never lands after a newer one.
	persistMu sync.Mutex

	refreshing atomic.Bool
	pending    atomic.Bool

	lifecycleMu sync.Mutex
	monitor     *connectivity.Monitor
}

// New creates a store. It starts offline with an empty collection; call Start
// (or Refresh) to load data.
func New(deps Deps, opts ...Option) (*Store, error) {
	if deps.Cache == nil {
		return nil, errMissingDep("cache")
	}
	if deps.Gateway == nil {
		return nil, errMissingDep("gateway")
	}

	s := &Store{
		cache:         deps.Cache,
		gateway:       deps.Gateway,
		checker:       deps.Checker,
		identity:      deps.Identity,
		logger:        slog.New(slog.DiscardHandler),
		observer:      nopObserver{},
		now:           time.Now,
		probeInterval: connectivity.DefaultInterval,
		subscribers:   make(map[int]chan State),
	}
	if s.identity == nil {
		s.identity = identity.Anonymous{}
	}
	for _, opt := range opts {
		opt(s)
	}

	day := s.initialDay
	if !validDay(day) {
		day = s.now().Day()
	}
	s.state = State{
		Items:       []domain.Item{},
		DayItems:    []domain.Item{},
		SelectedDay: day,
	}
	return s, nil
}

func validDay(day int) bool { return day >= 1 && day <= 31 }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Items returns a copy of the full collection.
func (s *Store) Items() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.state.Items)
}

// DayItems returns a copy of the active-day projection.
func (s *Store) DayItems() []domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.state.DayItems)
}

// Online reports the current connectivity flag.
func (s *Store) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Online
}

// Subscribe returns a channel receiving a State after every change, and a
// function that cancels the subscription and closes the channel. Sends never
// block: a full channel misses that update.
func (s *Store) Subscribe(buffer int) (<-chan State, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan State, buffer)

	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

// update applies fn to the state under the lock and notifies subscribers.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mutateLocked(fn)
}

// mutateLocked must be called with mu held. fn receives a copy whose slices it
// may replace but must not modify in place.
func (s *Store) mutateLocked(fn func(st *State)) {
	next := s.state
	fn(&next)
	s.state = next

	if len(s.subscribers) == 0 {
		return
	}
	for _, ch := range s.subscribers {
		select {
		case ch <- next.clone():
		default:
		}
	}
}

// SetOnline sets the connectivity flag.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	changed := s.state.Online != online
	if changed {
		s.mutateLocked(func(st *State) { st.Online = online })
	}
	s.mu.Unlock()

	s.observer.SetOnline(online)
	if changed {
		s.logger.Info("online state changed", "online", online)
	}
}
