// Package metrics exports sync and HTTP metrics to Prometheus.
package metrics

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

// SyncObserver records what the calendar store does against the remote gateway.
type SyncObserver struct {
	remoteDuration *promclient.HistogramVec
	remoteErrors   *promclient.CounterVec
	refreshes      *promclient.CounterVec
	online         promclient.Gauge
}

// NewSyncObserver registers the sync collectors on reg (default registerer when nil).
// Registering twice on the same registry reuses the existing collectors.
func NewSyncObserver(namespace string, reg promclient.Registerer) (*SyncObserver, error) {
	if namespace == "" {
		namespace = "daybook_sync"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	o := &SyncObserver{
		remoteDuration: promclient.NewHistogramVec(promclient.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_call_duration_seconds",
			Help:      "Latency of remote gateway calls.",
			Buckets:   promclient.DefBuckets,
		}, []string{"collection", "operation"}),
		remoteErrors: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "remote_call_errors_total",
			Help:      "Remote gateway failures by error code.",
		}, []string{"collection", "operation", "code"}),
		refreshes: promclient.NewCounterVec(promclient.CounterOpts{
			Namespace: namespace,
			Name:      "refreshes_total",
			Help:      "Full resynchronizations by outcome.",
		}, []string{"outcome"}),
		online: promclient.NewGauge(promclient.GaugeOpts{
			Namespace: namespace,
			Name:      "online",
			Help:      "1 when the backend was reachable at the last probe.",
		}),
	}

	var err error
	if o.remoteDuration, err = register(reg, o.remoteDuration); err != nil {
		return nil, err
	}
	if o.remoteErrors, err = register(reg, o.remoteErrors); err != nil {
		return nil, err
	}
	if o.refreshes, err = register(reg, o.refreshes); err != nil {
		return nil, err
	}
	if o.online, err = register(reg, o.online); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg, returning the already-registered collector on duplicates.
func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are promclient.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register collector: %w", err)
	}
	return c, nil
}

// RecordRemote tracks one gateway call.
func (o *SyncObserver) RecordRemote(collection, operation string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.remoteDuration.WithLabelValues(collection, operation).Observe(duration.Seconds())
	if err != nil {
		code := string(domainerrors.CodeOf(err))
		o.remoteErrors.WithLabelValues(collection, operation, code).Inc()
	}
}

// RecordRefresh counts a refresh outcome: "ok", "offline", "remote_error", "dropped", "coalesced".
func (o *SyncObserver) RecordRefresh(outcome string) {
	if o == nil {
		return
	}
	o.refreshes.WithLabelValues(outcome).Inc()
}

// SetOnline mirrors the connectivity flag.
func (o *SyncObserver) SetOnline(online bool) {
	if o == nil {
		return
	}
	if online {
		o.online.Set(1)
	} else {
		o.online.Set(0)
	}
}

// HTTPMetrics records request latency for the backend API.
type HTTPMetrics struct {
	duration *promclient.HistogramVec
}

// NewHTTPMetrics registers the HTTP collectors on reg.
func NewHTTPMetrics(namespace string, reg promclient.Registerer) (*HTTPMetrics, error) {
	if namespace == "" {
		namespace = "daybook_api"
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	duration, err := register(reg, promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route pattern and status.",
		Buckets:   promclient.DefBuckets,
	}, []string{"method", "route", "status"}))
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration}, nil
}

// Middleware observes every request. The route label is the chi pattern, not the raw path.
func (m *HTTPMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.duration.WithLabelValues(r.Method, route, strconv.Itoa(status)).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics of gatherer in the Prometheus text format.
func Handler(gatherer promclient.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = promclient.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
