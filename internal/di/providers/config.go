package providers

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/logger"
)

// LoggerProvider returns a provider writing log lines to w.
// The API logs to stdout; calsync keeps stdout for command output and logs to stderr.
func LoggerProvider(w io.Writer, component string) do.Provider[*logger.Logger] {
	return func(i do.Injector) (*logger.Logger, error) {
		cfg := do.MustInvoke[*config.Config](i)

		log := logger.New(logger.Config{
			Writer:      w,
			Level:       logger.ParseLevel(cfg.Logger.Level),
			AddSource:   cfg.App.Environment == "development",
			Environment: cfg.App.Environment,
		})

		log.Debug("Starting "+component,
			"environment", cfg.App.Environment,
			"log_level", cfg.Logger.Level,
		)

		return log, nil
	}
}

// ProvideRegistry provides the Prometheus registry both binaries register on.
func ProvideRegistry(i do.Injector) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg, nil
}
