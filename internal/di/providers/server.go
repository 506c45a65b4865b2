package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/api"
	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/logger"
	"github.com/daybookapp/daybook/internal/metrics"
	"github.com/daybookapp/daybook/internal/service"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.ShutdownerWithError.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts it in the background.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	db := do.MustInvoke[*DatabaseHandle](i)
	items := do.MustInvoke[*service.ItemService](i)

	opts := api.Options{AllowedOrigins: cfg.Server.AllowedOrigins}
	if cfg.Server.Metrics {
		reg := do.MustInvoke[*prometheus.Registry](i)
		httpMetrics, err := metrics.NewHTTPMetrics("daybook_api", reg)
		if err != nil {
			return nil, err
		}
		opts.HTTPMetrics = httpMetrics
		opts.Gatherer = reg
	}

	handler := api.NewServer(items, db.Store, opts, log.WithComponent("api"))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	srvLog := log.WithField("addr", srv.Addr)
	go func() {
		srvLog.Info("HTTP server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvLog.WithError(err).Error("HTTP server error")
		}
	}()

	return &HTTPServerHandle{Server: srv}, nil
}
