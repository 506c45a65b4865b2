package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/dto"
	"github.com/daybookapp/daybook/internal/metrics"
	"github.com/daybookapp/daybook/internal/service"
	"github.com/daybookapp/daybook/internal/store/sqlite"
	"github.com/daybookapp/daybook/internal/validation"
)

// testServer wraps the API server with a humatest client.
type testServer struct {
	*Server
	api   humatest.TestAPI
	store *sqlite.Store
	reg   *prometheus.Registry
}

// setupTestServer creates a server over a temp SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "daybook.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := sqlite.Open(dbPath, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	reg := prometheus.NewRegistry()
	httpMetrics, err := metrics.NewHTTPMetrics("daybook_test", reg)
	require.NoError(t, err)

	items := service.NewItemService(st, validation.New(), logger)
	s := NewServer(items, st, Options{
		AllowedOrigins: []string{"http://localhost:5173"},
		HTTPMetrics:    httpMetrics,
		Gatherer:       reg,
	}, logger)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		store:  st,
		reg:    reg,
	}
}

// decodeEnvelope unmarshals a response body into an envelope with typed data.
func decodeEnvelope[T any](t *testing.T, body []byte) dto.Envelope[T] {
	t.Helper()
	var env dto.Envelope[T]
	require.NoError(t, json.Unmarshal(body, &env), "body: %s", body)
	return env
}

// failingPinger reports the database as down.
type failingPinger struct{ err error }

func (p failingPinger) Ping(context.Context) error { return p.err }
