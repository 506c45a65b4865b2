package calendar

import (
	"context"

	"github.com/daybookapp/daybook/internal/connectivity"
	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/store"
)

// CheckConnection probes the backend once and updates the online flag. Without
// a Checker it reports the current flag unchanged.
func (s *Store) CheckConnection(ctx context.Context) bool {
	s.lifecycleMu.Lock()
	monitor := s.monitor
	s.lifecycleMu.Unlock()

	var online bool
	switch {
	case monitor != nil:
		online = monitor.Check(ctx)
	case s.checker != nil:
		online = s.checker.CheckConnection(ctx)
	default:
		return s.Online()
	}
	s.SetOnline(online)
	return online
}

// Start probes connectivity, schedules a re-probe every probe interval and runs
// the initial Refresh. Scheduled probes use ctx; Close stops them.
func (s *Store) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	if s.monitor == nil && s.checker != nil {
		m := connectivity.NewMonitor(s.checker, s.probeInterval, s.logger)
		m.OnChange(s.SetOnline)
		if err := m.Start(ctx); err != nil {
			s.lifecycleMu.Unlock()
			return err
		}
		s.monitor = m
	}
	s.lifecycleMu.Unlock()

	s.CheckConnection(ctx)
	s.Refresh(ctx)
	return nil
}

// Close stops scheduled probes. Subscriptions stay open until cancelled.
func (s *Store) Close() {
	s.lifecycleMu.Lock()
	m := s.monitor
	s.monitor = nil
	s.lifecycleMu.Unlock()

	if m != nil {
		m.Stop()
	}
}

// Reset drops the in-memory collection and both cache buckets, including items
// that only exist offline. The backend is untouched; the next Refresh reloads
// from it. Returns false when a bucket could not be cleared.
func (s *Store) Reset(ctx context.Context) bool {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.update(func(st *State) {
		st.Items = []domain.Item{}
		st.DayItems = []domain.Item{}
		st.LastFetchedDay = 0
	})

	ok := true
	for _, kind := range kinds {
		key := store.KeyFor(kind)
		if !s.cache.Clear(ctx, key) {
			s.logger.Warn("cache clear failed", "key", key)
			ok = false
		}
	}
	return ok
}
