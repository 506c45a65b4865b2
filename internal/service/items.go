package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybookapp/daybook/internal/domain"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
	"github.com/daybookapp/daybook/internal/id"
	"github.com/daybookapp/daybook/internal/validation"
)

// ItemStore is the persistence the item service needs. *sqlite.Store implements it.
type ItemStore interface {
	ListItems(ctx context.Context, kind domain.Kind, userID *string) ([]domain.Item, error)
	ListItemsByDay(ctx context.Context, kind domain.Kind, day int, userID *string) ([]domain.Item, error)
	GetItem(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error)
	CreateItem(ctx context.Context, it *domain.Item) error
	UpdateItem(ctx context.Context, kind domain.Kind, id string, patch domain.Patch, now time.Time) (*domain.Item, error)
	DeleteItem(ctx context.Context, kind domain.Kind, id string) error
}

// ItemService orchestrates the events and todos collections: it validates
// input, assigns server ids and revisions, and enforces revision checks.
type ItemService struct {
	store     ItemStore
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewItemService creates a new item service.
func NewItemService(store ItemStore, validator *validation.Validator, logger *slog.Logger) *ItemService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ItemService{
		store:     store,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

func checkKind(kind domain.Kind) error {
	if !kind.Valid() {
		return domainerrors.Validationf("unknown collection kind %q", kind)
	}
	return nil
}

func checkDay(day int) error {
	if day < 1 || day > 31 {
		return domainerrors.ValidationWithDetails("invalid day", map[string]string{"day": "must be between 1 and 31"})
	}
	return nil
}

// List returns all items of kind, scoped to userID when non-nil.
func (s *ItemService) List(ctx context.Context, kind domain.Kind, userID *string) ([]domain.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	return s.store.ListItems(ctx, kind, userID)
}

// ListByDay returns the items of kind in one day bucket.
func (s *ItemService) ListByDay(ctx context.Context, kind domain.Kind, day int, userID *string) ([]domain.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := checkDay(day); err != nil {
		return nil, err
	}
	return s.store.ListItemsByDay(ctx, kind, day, userID)
}

// Create stores a new item. The server always assigns the id and starts the
// revision at 1; a client-supplied creation time is kept.
func (s *ItemService) Create(ctx context.Context, kind domain.Kind, it domain.Item) (*domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := checkKind(kind); err != nil {
		return nil, err
	}

	it = it.Clone()
	it.Kind = kind
	it.Normalize()
	it.ID = id.NewServer()
	it.Revision = 1
	if it.CreatedAt.IsZero() {
		it.CreatedAt = s.now().UTC()
	}

	if err := s.validator.Validate(it); err != nil {
		return nil, err
	}

	if err := s.store.CreateItem(ctx, &it); err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}

	s.logger.Info("item created",
		"kind", kind,
		"item_id", it.ID,
		"day", it.Day,
	)
	return &it, nil
}

// Update applies patch to an item. A non-zero BaseRevision that does not
// match the stored revision yields a Conflict error. An empty patch returns
// the item unchanged.
func (s *ItemService) Update(ctx context.Context, kind domain.Kind, itemID string, patch domain.Patch) (*domain.Item, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(patch); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return s.store.GetItem(ctx, kind, itemID)
	}

	updated, err := s.store.UpdateItem(ctx, kind, itemID, patch, s.now())
	if err != nil {
		if domainerrors.Is(err, domainerrors.ErrConflict) {
			s.logger.Warn("stale update rejected",
				"kind", kind,
				"item_id", itemID,
				"base_revision", patch.BaseRevision,
			)
		}
		return nil, err
	}

	s.logger.Debug("item updated", "kind", kind, "item_id", itemID, "revision", updated.Revision)
	return updated, nil
}

// Delete removes an item.
func (s *ItemService) Delete(ctx context.Context, kind domain.Kind, itemID string) error {
	if err := checkKind(kind); err != nil {
		return err
	}
	if err := s.store.DeleteItem(ctx, kind, itemID); err != nil {
		return err
	}
	s.logger.Info("item deleted", "kind", kind, "item_id", itemID)
	return nil
}
