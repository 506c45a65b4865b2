package calendar

import (
	"fmt"

	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

func errMissingDep(name string) error {
	return fmt.Errorf("calendar: %s is required", name)
}

func errItemNotFound(id string) error {
	return domainerrors.NotFoundf("item %s not found", id)
}
