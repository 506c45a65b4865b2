// Package di provides dependency injection configuration for the daybook binaries.
package di

import (
	"io"

	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/di/providers"
	"github.com/daybookapp/daybook/internal/logger"
	"github.com/daybookapp/daybook/internal/service"
)

// NewServerContainer creates the container for the backend API.
func NewServerContainer(cfg *config.Config, logOut io.Writer) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.LoggerProvider(logOut, "daybook API"))
	do.Provide(injector, providers.ProvideRegistry)

	// Database layer
	do.Provide(injector, providers.ProvideDatabase)
	do.Provide(injector, providers.ProvideValidator)

	// Business services
	do.Provide(injector, providers.ProvideItemService)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// BootstrapServer initializes the backend and starts listening.
func BootstrapServer(injector do.Injector) error {
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.DatabaseHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ItemService](injector); err != nil {
		return err
	}
	_, err := do.Invoke[*providers.HTTPServerHandle](injector)
	return err
}

// NewClientContainer creates the container for the sync client.
func NewClientContainer(cfg *config.Config, logOut io.Writer) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.LoggerProvider(logOut, "daybook sync"))
	do.Provide(injector, providers.ProvideRegistry)

	// Storage and transport
	do.Provide(injector, providers.ProvideCache)
	do.Provide(injector, providers.ProvideRemote)
	do.Provide(injector, providers.ProvideIdentity)
	do.Provide(injector, providers.ProvideSyncObserver)

	// Sync layer
	do.Provide(injector, providers.ProvideCalendar)

	return injector
}

// Calendar resolves the calendar store from a client container.
func Calendar(injector do.Injector) (*providers.CalendarHandle, error) {
	return do.Invoke[*providers.CalendarHandle](injector)
}
