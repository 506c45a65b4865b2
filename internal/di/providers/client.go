package providers

import (
	"context"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/calendar"
	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/connectivity"
	"github.com/daybookapp/daybook/internal/identity"
	"github.com/daybookapp/daybook/internal/logger"
	"github.com/daybookapp/daybook/internal/metrics"
	"github.com/daybookapp/daybook/internal/remote"
	"github.com/daybookapp/daybook/internal/store"
)

// CacheHandle wraps the offline cache with shutdown capability.
type CacheHandle struct {
	*store.Store
}

// Shutdown implements do.ShutdownerWithError.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache opens the Badger offline cache.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Sync.CachePath, 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	cache, err := store.New(cfg.Sync.CachePath, log.WithComponent("cache"), store.Options{})
	if err != nil {
		return nil, err
	}
	return &CacheHandle{Store: cache}, nil
}

// RemoteHandle wraps the backend client. Gateway is empty when no remote URL
// is configured, which keeps the client offline for good.
type RemoteHandle struct {
	Client  *remote.Client
	Gateway remote.Gateway
	Checker connectivity.Checker
}

// Shutdown implements do.Shutdowner.
func (h *RemoteHandle) Shutdown() {
	if h.Client != nil {
		h.Client.Close()
	}
}

// ProvideRemote provides the backend gateway and the connectivity probe.
func ProvideRemote(i do.Injector) (*RemoteHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Sync.RemoteURL == "" {
		log.Info("No remote url configured, running offline")
		return &RemoteHandle{
			Checker: connectivity.CheckerFunc(func(context.Context) bool { return false }),
		}, nil
	}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Sync.RemoteURL,
		Timeout: cfg.Sync.RequestTimeout,
		RPS:     cfg.Sync.RemoteRPS,
		Burst:   cfg.Sync.RemoteBurst,
	}, log.WithComponent("remote"))
	if err != nil {
		return nil, err
	}

	probe, err := connectivity.NewProbe(cfg.Sync.RemoteURL, log.WithComponent("probe"),
		connectivity.WithTimeout(cfg.Sync.ProbeTimeout))
	if err != nil {
		client.Close()
		return nil, err
	}

	return &RemoteHandle{Client: client, Gateway: client.Gateway(), Checker: probe}, nil
}

// ProvideIdentity provides the configured user.
func ProvideIdentity(i do.Injector) (*identity.Static, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return identity.NewStatic(cfg.Sync.UserID), nil
}

// ProvideSyncObserver provides the sync metrics recorder.
func ProvideSyncObserver(i do.Injector) (*metrics.SyncObserver, error) {
	reg := do.MustInvoke[*prometheus.Registry](i)
	return metrics.NewSyncObserver("daybook_sync", reg)
}

// CalendarHandle wraps the calendar store. Shutdown stops the probe schedule.
type CalendarHandle struct {
	*calendar.Store
}

// Shutdown implements do.Shutdowner.
func (h *CalendarHandle) Shutdown() {
	h.Close()
}

// ProvideCalendar builds the calendar store. It is not started; callers decide
// whether to run Start or a single Refresh.
func ProvideCalendar(i do.Injector) (*CalendarHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	cache := do.MustInvoke[*CacheHandle](i)
	rh := do.MustInvoke[*RemoteHandle](i)
	ident := do.MustInvoke[*identity.Static](i)
	observer := do.MustInvoke[*metrics.SyncObserver](i)

	opts := []calendar.Option{
		calendar.WithLogger(log.WithComponent("calendar")),
		calendar.WithObserver(observer),
		calendar.WithProbeInterval(cfg.Sync.ProbeInterval),
	}
	if cfg.Sync.DayFetchPolicy == config.DayFetchMerge {
		opts = append(opts, calendar.WithDayFetchPolicy(calendar.DayFetchMerge))
	}
	if cfg.Sync.RefreshCoalescing {
		opts = append(opts, calendar.WithRefreshCoalescing())
	}

	cal, err := calendar.New(calendar.Deps{
		Cache:    cache.Store,
		Gateway:  rh.Gateway,
		Checker:  rh.Checker,
		Identity: ident,
	}, opts...)
	if err != nil {
		return nil, err
	}
	return &CalendarHandle{Store: cal}, nil
}
