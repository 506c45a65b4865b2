package calendar

import (
	"context"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/remote"
	"github.com/daybookapp/daybook/internal/store"
)

// kinds is the fixed iteration order for per-kind work.
var kinds = [...]domain.Kind{domain.KindEvent, domain.KindTask}

// SetSelectedDay changes the selected day. A day-scoped fetch runs only when
// day differs from the last fetched day.
func (s *Store) SetSelectedDay(ctx context.Context, day int) {
	if !validDay(day) {
		s.logger.Warn("ignoring invalid day", "day", day)
		return
	}

	s.mu.Lock()
	if day == s.state.LastFetchedDay {
		s.mutateLocked(func(st *State) {
			st.SelectedDay = day
			st.DayItems = domain.FilterByDay(st.Items, day)
		})
		s.mu.Unlock()
		return
	}
	s.mutateLocked(func(st *State) { st.SelectedDay = day })
	s.mu.Unlock()

	s.FetchByDay(ctx, day)
}

// Refresh runs a full resynchronization: publish the cache, then (when online)
// replace each kind's items with a non-empty remote collection, then rebuild
// the projection. It returns false when this call did not run a refresh itself
// because another one was in flight.
func (s *Store) Refresh(ctx context.Context) bool {
	if !s.refreshing.CompareAndSwap(false, true) {
		if s.coalesce {
			s.pending.Store(true)
			s.observer.RecordRefresh(RefreshCoalesced)
		} else {
			s.observer.RecordRefresh(RefreshDropped)
		}
		s.logger.Debug("refresh already running", "coalesce", s.coalesce)
		return false
	}

	for {
		s.refreshOnce(ctx)
		if s.coalesce && s.pending.Swap(false) {
			continue
		}
		s.refreshing.Store(false)
		// A caller may have queued a follow-up between the swap and the store.
		if !s.coalesce || !s.pending.Load() || !s.refreshing.CompareAndSwap(false, true) {
			return true
		}
		s.pending.Store(false)
	}
}

func (s *Store) refreshOnce(ctx context.Context) {
	start := time.Now()
	s.update(func(st *State) { st.Loading = true })

	outcome := RefreshLocal
	defer func() {
		s.update(func(st *State) {
			st.DayItems = domain.FilterByDay(st.Items, st.SelectedDay)
			st.LastFetchedDay = st.SelectedDay
			st.Loading = false
		})
		s.observer.RecordRefresh(outcome)
		s.logger.Debug("refresh finished", "outcome", outcome, "duration", time.Since(start))
	}()

	local := make([]domain.Item, 0)
	for _, kind := range kinds {
		local = append(local, normalizeKind(s.cache.GetItems(ctx, store.KeyFor(kind)), kind)...)
	}
	if len(local) > 0 {
		local = dedupe(local)
		s.update(func(st *State) { st.Items = local })
	}

	if !s.Online() {
		return
	}

	userID := s.identity.UserID()
	var fetched [len(kinds)][]domain.Item
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			items, err := s.getAll(gctx, kind, userID)
			fetched[i] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		outcome = RefreshRemoteError
		s.logger.Warn("remote refresh failed, keeping local data", "error", err)
		return
	}

	var replaced []domain.Kind
	for i, kind := range kinds {
		if len(fetched[i]) > 0 {
			replaced = append(replaced, kind)
		}
	}
	if len(replaced) == 0 {
		outcome = RefreshRemoteEmpty
		return
	}

	s.update(func(st *State) {
		next := make([]domain.Item, 0, len(st.Items))
		for _, it := range st.Items {
			if !slices.Contains(replaced, it.Kind) {
				next = append(next, it)
			}
		}
		for i := range kinds {
			next = append(next, fetched[i]...)
		}
		st.Items = dedupe(next)
	})
	for _, kind := range replaced {
		s.persist(ctx, kind)
	}
	outcome = RefreshRemote
}

// FetchByDay publishes the cached items of day as the active-day projection
// and, when online and the local result is empty, falls back to the remote
// day-scoped collections. It returns false when day was already fetched.
func (s *Store) FetchByDay(ctx context.Context, day int) bool {
	if !validDay(day) {
		s.logger.Warn("ignoring invalid day", "day", day)
		return false
	}

	s.mu.Lock()
	if day == s.state.LastFetchedDay {
		s.mu.Unlock()
		return false
	}
	var localCount int
	s.mutateLocked(func(st *State) {
		st.SelectedDay = day
		st.LastFetchedDay = day
		st.DayItems = domain.FilterByDay(st.Items, day)
		localCount = len(st.DayItems)
	})
	online := s.state.Online
	s.mu.Unlock()

	if localCount > 0 || !online {
		return true
	}

	userID := s.identity.UserID()
	var fetched [len(kinds)][]domain.Item
	g, gctx := errgroup.WithContext(ctx)
	for i, kind := range kinds {
		g.Go(func() error {
			items, err := s.getByDay(gctx, kind, day, userID)
			fetched[i] = items
			return err
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("remote day fetch failed, keeping local projection", "day", day, "error", err)
		return true
	}

	remoteItems := make([]domain.Item, 0)
	for i := range kinds {
		remoteItems = append(remoteItems, fetched[i]...)
	}
	if len(remoteItems) == 0 {
		return true
	}
	remoteItems = dedupe(remoteItems)

	s.update(func(st *State) {
		if st.SelectedDay == day {
			// Keep local writes that landed on day while the fetch was running.
			st.DayItems = upsert(st.DayItems, remoteItems)
		}
		if s.dayPolicy == DayFetchMerge {
			st.Items = upsert(st.Items, remoteItems)
		}
	})

	if s.dayPolicy == DayFetchMerge {
		for i, kind := range kinds {
			if len(fetched[i]) > 0 {
				s.persist(ctx, kind)
			}
		}
	}
	s.logger.Debug("day fetched from remote", "day", day, "count", len(remoteItems), "policy", s.dayPolicy)
	return true
}

// persist writes the current in-memory subset of kind to its cache bucket.
func (s *Store) persist(ctx context.Context, kind domain.Kind) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	bucket := domain.FilterByKind(s.state.Items, kind)
	s.mu.Unlock()

	key := store.KeyFor(kind)
	if !s.cache.SaveItems(ctx, key, bucket) {
		s.logger.Warn("cache write failed", "key", key, "count", len(bucket))
	}
}

func (s *Store) getAll(ctx context.Context, kind domain.Kind, userID *string) ([]domain.Item, error) {
	var items []domain.Item
	err := s.call(ctx, kind, "get_all", func(c remote.Collection) (err error) {
		items, err = c.GetAll(ctx, userID)
		return err
	})
	return normalizeKind(items, kind), err
}

func (s *Store) getByDay(ctx context.Context, kind domain.Kind, day int, userID *string) ([]domain.Item, error) {
	var items []domain.Item
	err := s.call(ctx, kind, "get_by_day", func(c remote.Collection) (err error) {
		items, err = c.GetByDay(ctx, day, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	// The day bucket is authoritative even if the backend is loose about it.
	out := make([]domain.Item, 0, len(items))
	for _, it := range normalizeKind(items, kind) {
		if it.Day == day {
			out = append(out, it)
		}
	}
	return out, nil
}

// call runs fn against kind's collection and records its duration and error.
func (s *Store) call(ctx context.Context, kind domain.Kind, op string, fn func(remote.Collection) error) error {
	start := time.Now()
	err := fn(s.gateway.For(kind))
	s.observer.RecordRemote(remote.CollectionName(kind), op, time.Since(start), err)
	if err != nil && ctx.Err() == nil {
		s.logger.Warn("remote call failed", "collection", remote.CollectionName(kind), "op", op, "error", err)
	}
	return err
}

// normalizeKind stamps kind onto items read from a kind-specific source.
func normalizeKind(items []domain.Item, kind domain.Kind) []domain.Item {
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		it = it.Clone()
		it.Kind = kind
		it.Normalize()
		out = append(out, it)
	}
	return out
}

// dedupe keeps the last occurrence of every id, in first-seen order.
func dedupe(items []domain.Item) []domain.Item {
	pos := make(map[string]int, len(items))
	out := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if i, ok := pos[it.ID]; ok {
			out[i] = it
			continue
		}
		pos[it.ID] = len(out)
		out = append(out, it)
	}
	return out
}

// upsert returns items with each of incoming replacing the entry of the same id
// or appended when new. items is not modified.
func upsert(items, incoming []domain.Item) []domain.Item {
	out := domain.CloneItems(items)
	return dedupe(append(out, domain.CloneItems(incoming)...))
}

func indexOf(items []domain.Item, id string) int {
	return slices.IndexFunc(items, func(it domain.Item) bool { return it.ID == id })
}
