package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/dto"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

// ScopeInput carries the optional owner filter shared by the read endpoints.
type ScopeInput struct {
	UserID string `query:"user_id" doc:"Only return items owned by this user. Omit for unscoped reads."`
}

func (in ScopeInput) userID() *string {
	return domain.StringPtr(in.UserID)
}

// ListItemsInput contains parameters for listing a collection.
type ListItemsInput struct {
	ScopeInput
}

// ListItemsByDayInput contains parameters for listing one day of a collection.
type ListItemsByDayInput struct {
	ScopeInput
	Day int `path:"day" minimum:"1" maximum:"31" doc:"Day-of-month bucket"`
}

// ItemsOutput contains a list of items.
type ItemsOutput struct {
	Body []domain.Item
}

// CreateItemInput contains parameters for creating an item.
type CreateItemInput struct {
	Body dto.CreateItemRequest
}

// UpdateItemInput contains parameters for patching an item.
type UpdateItemInput struct {
	ID   string `path:"id" doc:"Item ID"`
	Body domain.Patch
}

// DeleteItemInput contains parameters for deleting an item.
type DeleteItemInput struct {
	ID string `path:"id" doc:"Item ID"`
}

// ItemOutput contains a single item.
type ItemOutput struct {
	Body *domain.Item
}

// registerItemRoutes registers the same five operations for events and todos.
func (s *Server) registerItemRoutes() {
	for _, kind := range []domain.Kind{domain.KindEvent, domain.KindTask} {
		s.registerCollection(kind)
	}
}

func (s *Server) registerCollection(kind domain.Kind) {
	name := dto.CollectionName(kind)
	base := "/api/v1/" + name
	tags := []string{name}

	huma.Register(s.api, huma.Operation{
		OperationID: "list-" + name,
		Method:      http.MethodGet,
		Path:        base,
		Summary:     fmt.Sprintf("List %s", name),
		Tags:        tags,
	}, func(ctx context.Context, input *ListItemsInput) (*ItemsOutput, error) {
		items, err := s.items.List(ctx, kind, input.userID())
		if err != nil {
			return nil, err
		}
		return &ItemsOutput{Body: items}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "list-" + name + "-by-day",
		Method:      http.MethodGet,
		Path:        base + "/day/{day}",
		Summary:     fmt.Sprintf("List %s for one day", name),
		Tags:        tags,
	}, func(ctx context.Context, input *ListItemsByDayInput) (*ItemsOutput, error) {
		items, err := s.items.ListByDay(ctx, kind, input.Day, input.userID())
		if err != nil {
			return nil, err
		}
		return &ItemsOutput{Body: items}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-" + name,
		Method:        http.MethodPost,
		Path:          base,
		Summary:       fmt.Sprintf("Create one of %s", name),
		Description:   "The server assigns the id and the initial revision.",
		Tags:          tags,
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateItemInput) (*ItemOutput, error) {
		it, err := input.Body.ToItem(kind)
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeValidation, err.Error())
		}
		created, err := s.items.Create(ctx, kind, it)
		if err != nil {
			return nil, err
		}
		return &ItemOutput{Body: created}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-" + name,
		Method:      http.MethodPatch,
		Path:        base + "/{id}",
		Summary:     fmt.Sprintf("Patch one of %s", name),
		Description: "Set base_revision to the revision last seen; a stale value is rejected with 409.",
		Tags:        tags,
	}, func(ctx context.Context, input *UpdateItemInput) (*ItemOutput, error) {
		updated, err := s.items.Update(ctx, kind, input.ID, input.Body)
		if err != nil {
			return nil, err
		}
		return &ItemOutput{Body: updated}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-" + name,
		Method:        http.MethodDelete,
		Path:          base + "/{id}",
		Summary:       fmt.Sprintf("Delete one of %s", name),
		Tags:          tags,
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *DeleteItemInput) (*struct{}, error) {
		if err := s.items.Delete(ctx, kind, input.ID); err != nil {
			return nil, err
		}
		return nil, nil
	})
}
