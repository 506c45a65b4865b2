package validation_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/domain"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
	"github.com/daybookapp/daybook/internal/validation"
)

func validTask() domain.Item {
	return domain.Item{
		ID:    "t1",
		Kind:  domain.KindTask,
		Title: "Pay rent",
		Day:   28,
		Task:  &domain.TaskDetails{Priority: domain.PriorityHigh},
	}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(validTask()))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		mutate    func(it *domain.Item)
		wantField string
		wantMsg   string
	}{
		{
			name:      "missing title",
			mutate:    func(it *domain.Item) { it.Title = "" },
			wantField: "title",
			wantMsg:   "is required",
		},
		{
			name:      "title too long",
			mutate:    func(it *domain.Item) { it.Title = strings.Repeat("x", 201) },
			wantField: "title",
			wantMsg:   "must not exceed 200 characters",
		},
		{
			name:      "day below range",
			mutate:    func(it *domain.Item) { it.Day = 0 },
			wantField: "day",
			wantMsg:   "must be at least 1",
		},
		{
			name:      "day above range",
			mutate:    func(it *domain.Item) { it.Day = 32 },
			wantField: "day",
			wantMsg:   "must be at most 31",
		},
		{
			name:      "unknown kind",
			mutate:    func(it *domain.Item) { it.Kind = "note" },
			wantField: "kind",
			wantMsg:   "must be one of: event task",
		},
		{
			name:      "bad priority",
			mutate:    func(it *domain.Item) { it.Task.Priority = "urgent" },
			wantField: "task.priority",
			wantMsg:   "must be one of: high medium low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it := validTask()
			tt.mutate(&it)

			err := v.Validate(it)
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.True(t, domainerrors.As(err, &domainErr))
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
			assert.Equal(t, http.StatusBadRequest, domainErr.HTTPStatus())

			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField], "details: %v", details)
		})
	}
}

func TestValidator_Patch(t *testing.T) {
	v := validation.New()

	empty := ""
	assert.Error(t, v.Validate(domain.Patch{Title: &empty}))

	day := 40
	assert.Error(t, v.Validate(domain.Patch{Day: &day}))

	title := "ok"
	assert.NoError(t, v.Validate(domain.Patch{Title: &title}))
	assert.NoError(t, v.Validate(domain.Patch{}))
}
