package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/domain"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
	"github.com/daybookapp/daybook/internal/id"
	"github.com/daybookapp/daybook/internal/store/sqlite"
	"github.com/daybookapp/daybook/internal/validation"
)

// setupTestItems creates an item service over a temp SQLite database.
func setupTestItems(t *testing.T) *ItemService {
	t.Helper()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewItemService(db, validation.New(), nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestItemService_Create(t *testing.T) {
	svc := setupTestItems(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.KindTask, domain.Item{
		ID:    "local_123_abc",
		Kind:  domain.KindEvent, // the collection decides
		Title: "Pay rent",
		Day:   28,
	})
	require.NoError(t, err)

	assert.NotEqual(t, "local_123_abc", created.ID)
	assert.False(t, id.IsLocal(created.ID), "server ids never carry the local prefix")
	assert.Equal(t, domain.KindTask, created.Kind)
	assert.Equal(t, int64(1), created.Revision)
	assert.Equal(t, domain.PriorityMedium, created.Task.Priority)
	assert.Equal(t, time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC), created.CreatedAt)

	got, err := svc.List(ctx, domain.KindTask, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, created.ID, got[0].ID)
}

func TestItemService_CreateKeepsClientTimestamp(t *testing.T) {
	svc := setupTestItems(t)
	at := time.Date(2026, 2, 1, 7, 30, 0, 0, time.UTC)

	created, err := svc.Create(context.Background(), domain.KindEvent, domain.Item{Title: "a", Day: 1, CreatedAt: at})
	require.NoError(t, err)
	assert.True(t, created.CreatedAt.Equal(at))
}

func TestItemService_CreateValidation(t *testing.T) {
	svc := setupTestItems(t)

	_, err := svc.Create(context.Background(), domain.KindEvent, domain.Item{Title: "", Day: 40})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.True(t, domainerrors.As(err, &domainErr))
	assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
	details := domainErr.Details.(map[string]string)
	assert.Contains(t, details, "title")
	assert.Contains(t, details, "day")

	_, err = svc.Create(context.Background(), domain.Kind("note"), domain.Item{Title: "a", Day: 1})
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestItemService_ListByDay(t *testing.T) {
	svc := setupTestItems(t)
	ctx := context.Background()
	uid := "user-1"

	_, err := svc.Create(ctx, domain.KindEvent, domain.Item{Title: "a", Day: 3, UserID: &uid})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.KindEvent, domain.Item{Title: "b", Day: 4, UserID: &uid})
	require.NoError(t, err)

	got, err := svc.ListByDay(ctx, domain.KindEvent, 3, &uid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].Title)

	_, err = svc.ListByDay(ctx, domain.KindEvent, 0, nil)
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))
}

func TestItemService_UpdateRevisions(t *testing.T) {
	svc := setupTestItems(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.KindTask, domain.Item{Title: "a", Day: 1})
	require.NoError(t, err)

	done := true
	updated, err := svc.Update(ctx, domain.KindTask, created.ID, domain.Patch{Completed: &done, BaseRevision: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Revision)
	assert.True(t, updated.Task.Completed)

	// A second writer that still saw revision 1 is rejected.
	title := "b"
	_, err = svc.Update(ctx, domain.KindTask, created.ID, domain.Patch{Title: &title, BaseRevision: 1})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrConflict))

	// Without a base revision the write is last-write-wins.
	updated, err = svc.Update(ctx, domain.KindTask, created.ID, domain.Patch{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Revision)
}

func TestItemService_UpdateEdgeCases(t *testing.T) {
	svc := setupTestItems(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.KindEvent, domain.Item{Title: "a", Day: 1})
	require.NoError(t, err)

	got, err := svc.Update(ctx, domain.KindEvent, created.ID, domain.Patch{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision, "empty patch is a read")

	empty := ""
	_, err = svc.Update(ctx, domain.KindEvent, created.ID, domain.Patch{Title: &empty})
	assert.Equal(t, domainerrors.CodeValidation, domainerrors.CodeOf(err))

	title := "x"
	_, err = svc.Update(ctx, domain.KindEvent, "missing", domain.Patch{Title: &title})
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(err))
}

func TestItemService_Delete(t *testing.T) {
	svc := setupTestItems(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.KindEvent, domain.Item{Title: "a", Day: 1})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, domain.KindEvent, created.ID))
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(svc.Delete(ctx, domain.KindEvent, created.ID)))

	// Kinds are separate collections.
	task, err := svc.Create(ctx, domain.KindTask, domain.Item{Title: "t", Day: 1})
	require.NoError(t, err)
	assert.Equal(t, domainerrors.CodeNotFound, domainerrors.CodeOf(svc.Delete(ctx, domain.KindEvent, task.ID)))
}
