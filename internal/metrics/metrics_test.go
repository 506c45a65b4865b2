package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

func TestSyncObserver_RecordRemote(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewSyncObserver("test", reg)
	require.NoError(t, err)

	o.RecordRemote("events", "get_all", 10*time.Millisecond, nil)
	o.RecordRemote("events", "update", 5*time.Millisecond, domainerrors.Conflictf("stale"))
	o.RecordRemote("todos", "add", 5*time.Millisecond, domainerrors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(o.remoteErrors.WithLabelValues("events", "update", "CONFLICT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.remoteErrors.WithLabelValues("todos", "add", "INTERNAL")))
	assert.Equal(t, 3, testutil.CollectAndCount(o.remoteDuration))
}

func TestSyncObserver_RefreshAndOnline(t *testing.T) {
	reg := promclient.NewRegistry()
	o, err := NewSyncObserver("test", reg)
	require.NoError(t, err)

	o.RecordRefresh("ok")
	o.RecordRefresh("ok")
	o.RecordRefresh("dropped")
	o.SetOnline(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(o.refreshes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.refreshes.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(o.online))

	o.SetOnline(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(o.online))
}

func TestSyncObserver_ReRegisterReusesCollectors(t *testing.T) {
	reg := promclient.NewRegistry()
	first, err := NewSyncObserver("test", reg)
	require.NoError(t, err)
	second, err := NewSyncObserver("test", reg)
	require.NoError(t, err)

	first.RecordRefresh("ok")
	assert.Equal(t, 1.0, testutil.ToFloat64(second.refreshes.WithLabelValues("ok")))
}

func TestSyncObserver_NilSafe(t *testing.T) {
	var o *SyncObserver
	assert.NotPanics(t, func() {
		o.RecordRemote("events", "add", time.Millisecond, nil)
		o.RecordRefresh("ok")
		o.SetOnline(true)
	})
}

func TestHTTPMetrics_MiddlewareUsesRoutePattern(t *testing.T) {
	reg := promclient.NewRegistry()
	m, err := NewHTTPMetrics("test", reg)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/api/v1/events/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", Handler(reg))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events/abc", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `route="/api/v1/events/{id}"`), body)
	assert.Contains(t, body, `status="404"`)
}
