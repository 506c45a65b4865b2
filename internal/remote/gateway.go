// Package remote is the client side of the backend's events and todos collections.
package remote

import (
	"context"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/dto"
)

// Collection is one remote resource collection. userID scopes reads; nil means
// unscoped, which lets anonymous users see shared items when the backend allows it.
type Collection interface {
	GetAll(ctx context.Context, userID *string) ([]domain.Item, error)
	GetByDay(ctx context.Context, day int, userID *string) ([]domain.Item, error)
	// Add returns the confirmed record, or nil when the server accepted the
	// write without echoing it back.
	Add(ctx context.Context, item domain.Item) (*domain.Item, error)
	Update(ctx context.Context, id string, patch domain.Patch) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
}

// Gateway groups the two collections.
type Gateway struct {
	Events Collection
	Todos  Collection
}

// For returns the collection holding items of kind.
func (g Gateway) For(kind domain.Kind) Collection {
	switch kind {
	case domain.KindEvent:
		return g.Events
	case domain.KindTask:
		return g.Todos
	default:
		panic("remote: unknown item kind " + string(kind))
	}
}

// Collection names as they appear in URLs and metric labels.
const (
	CollectionEvents = dto.CollectionEvents
	CollectionTodos  = dto.CollectionTodos
)

// CollectionName returns the URL segment for kind.
func CollectionName(kind domain.Kind) string {
	return dto.CollectionName(kind)
}
