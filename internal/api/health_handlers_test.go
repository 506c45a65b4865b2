package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/service"
	"github.com/daybookapp/daybook/internal/validation"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	require.Equal(t, http.StatusOK, resp.Code)
	env := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	assert.Equal(t, "healthy", env.Data.Components["database"].Status)
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	ts := setupTestServer(t)
	items := service.NewItemService(ts.store, validation.New(), nil)
	s := NewServer(items, failingPinger{err: errors.New("disk gone")}, Options{}, nil)
	api := humatest.Wrap(t, s.api)

	resp := api.Get("/health")

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	env := decodeEnvelope[HealthResponse](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.Equal(t, "UNAVAILABLE", env.Code)
	assert.Equal(t, "unhealthy", env.Data.Status)
	assert.Equal(t, "disk gone", env.Data.Components["database"].Message)
}
