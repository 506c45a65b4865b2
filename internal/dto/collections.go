package dto

import "github.com/daybookapp/daybook/internal/domain"

// Collection names as they appear under /api/v1.
const (
	CollectionEvents = "events"
	CollectionTodos  = "todos"
)

// CollectionName returns the URL segment for kind.
func CollectionName(kind domain.Kind) string {
	switch kind {
	case domain.KindEvent:
		return CollectionEvents
	case domain.KindTask:
		return CollectionTodos
	default:
		panic("dto: unknown item kind " + string(kind))
	}
}
