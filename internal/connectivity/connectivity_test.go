package connectivity_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/connectivity"
)

func TestProbe_HealthyBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p, err := connectivity.NewProbe(srv.URL+"/", nil)
	require.NoError(t, err)
	assert.True(t, p.CheckConnection(context.Background()))
}

func TestProbe_UnhealthyStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p, err := connectivity.NewProbe(srv.URL, nil)
	require.NoError(t, err)
	assert.False(t, p.CheckConnection(context.Background()))
}

func TestProbe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := connectivity.NewProbe(url, nil)
	require.NoError(t, err)
	assert.False(t, p.CheckConnection(context.Background()))
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p, err := connectivity.NewProbe(srv.URL, nil, connectivity.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	assert.False(t, p.CheckConnection(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewProbe_RejectsBadURL(t *testing.T) {
	_, err := connectivity.NewProbe("ftp://example.com", nil)
	assert.Error(t, err)
}

func TestMonitor_CheckNotifiesOnChange(t *testing.T) {
	var up atomic.Bool
	m := connectivity.NewMonitor(connectivity.CheckerFunc(func(context.Context) bool {
		return up.Load()
	}), time.Minute, nil)

	var mu sync.Mutex
	var changes []bool
	m.OnChange(func(online bool) {
		mu.Lock()
		defer mu.Unlock()
		changes = append(changes, online)
	})

	ctx := context.Background()
	assert.False(t, m.Check(ctx))
	up.Store(true)
	assert.True(t, m.Check(ctx))
	assert.True(t, m.Check(ctx))
	up.Store(false)
	assert.False(t, m.Check(ctx))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []bool{true, false}, changes, "only transitions are reported")
	assert.False(t, m.Online())
}

func TestMonitor_ScheduledProbes(t *testing.T) {
	var calls atomic.Int32
	m := connectivity.NewMonitor(connectivity.CheckerFunc(func(context.Context) bool {
		calls.Add(1)
		return true
	}), time.Second, nil)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()), "second start is a no-op")
	defer m.Stop()

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
	assert.True(t, m.Online())
}

func TestMonitor_StopWithoutStart(t *testing.T) {
	m := connectivity.NewMonitor(connectivity.CheckerFunc(func(context.Context) bool { return true }), 0, nil)
	assert.NotPanics(t, m.Stop)
}
