package providers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/daybookapp/daybook/internal/config"
	"github.com/daybookapp/daybook/internal/logger"
	"github.com/daybookapp/daybook/internal/service"
	"github.com/daybookapp/daybook/internal/store/sqlite"
	"github.com/daybookapp/daybook/internal/validation"
)

// DatabaseHandle wraps the SQLite store with shutdown capability.
type DatabaseHandle struct {
	*sqlite.Store
}

// Shutdown implements do.ShutdownerWithError.
func (h *DatabaseHandle) Shutdown() error {
	return h.Close()
}

// ProvideDatabase opens the backend database.
func ProvideDatabase(i do.Injector) (*DatabaseHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	path := cfg.Server.DatabasePath
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sqlite.Open(path, log.WithComponent("sqlite"))
	if err != nil {
		return nil, err
	}

	log.Info("Database initialized", "path", path)

	return &DatabaseHandle{Store: db}, nil
}

// ProvideValidator provides the shared request validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideItemService provides the events and todos service.
func ProvideItemService(i do.Injector) (*service.ItemService, error) {
	db := do.MustInvoke[*DatabaseHandle](i)
	v := do.MustInvoke[*validation.Validator](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewItemService(db.Store, v, log.WithComponent("items")), nil
}
