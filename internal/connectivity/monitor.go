package connectivity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultInterval is how often the monitor re-probes.
const DefaultInterval = 5 * time.Minute

// Monitor runs a Checker on a fixed schedule and remembers the last answer.
type Monitor struct {
	checker  Checker
	interval time.Duration
	logger   *slog.Logger

	cron   *cron.Cron
	online atomic.Bool

	mu        sync.Mutex
	listeners []func(bool)
	entry     cron.EntryID
	started   bool
}

// NewMonitor creates a stopped monitor. A non-positive interval means DefaultInterval.
func NewMonitor(checker Checker, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Monitor{
		checker:  checker,
		interval: interval,
		logger:   logger,
		cron: cron.New(
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
}

// OnChange registers fn to be called after every probe whose answer differs
// from the previous one. Callbacks run on the probing goroutine.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// Online returns the last probe result.
func (m *Monitor) Online() bool {
	return m.online.Load()
}

// Check probes once, records the answer and notifies listeners on change.
func (m *Monitor) Check(ctx context.Context) bool {
	online := m.checker.CheckConnection(ctx)
	prev := m.online.Swap(online)
	if prev != online {
		m.logger.Info("connectivity changed", "online", online)
		m.mu.Lock()
		listeners := append([]func(bool){}, m.listeners...)
		m.mu.Unlock()
		for _, fn := range listeners {
			fn(online)
		}
	}
	return online
}

// Start schedules periodic probes. Scheduled probes run with ctx, so cancelling
// it makes them report offline until Stop is called.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	spec := fmt.Sprintf("@every %s", m.interval)
	entry, err := m.cron.AddFunc(spec, func() { m.Check(ctx) })
	if err != nil {
		return fmt.Errorf("schedule probe: %w", err)
	}
	m.entry = entry
	m.cron.Start()
	m.started = true
	m.logger.Debug("connectivity monitor started", "interval", m.interval)
	return nil
}

// Stop halts the schedule and waits for a running probe to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	started := m.started
	m.started = false
	entry := m.entry
	m.mu.Unlock()
	if !started {
		return
	}
	<-m.cron.Stop().Done()
	m.cron.Remove(entry)
}
