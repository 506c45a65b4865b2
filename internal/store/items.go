package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/daybookapp/daybook/internal/domain"
)

// Well-known cache keys. Events and tasks live in separate buckets.
const (
	KeyEvents = "calendar:events"
	KeyTasks  = "calendar:tasks"
)

// KeyFor returns the bucket key holding items of kind.
func KeyFor(kind domain.Kind) string {
	switch kind {
	case domain.KindEvent:
		return KeyEvents
	case domain.KindTask:
		return KeyTasks
	default:
		panic("store: unknown item kind " + string(kind))
	}
}

// GetItems returns the items stored under key.
// Missing keys, read errors and corrupt values all yield an empty slice.
func (s *Store) GetItems(ctx context.Context, key string) []domain.Item {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("cache read skipped", "key", key, "error", err)
		return []domain.Item{}
	}

	var items []domain.Item
	err := s.get([]byte(key), &items)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []domain.Item{}
	}
	if err != nil {
		s.logger.Error("cache read failed", "key", key, "error", err)
		return []domain.Item{}
	}
	if items == nil {
		return []domain.Item{}
	}
	return items
}

// SaveItems replaces the items stored under key. Returns false on failure; the
// caller does not retry.
func (s *Store) SaveItems(ctx context.Context, key string, items []domain.Item) bool {
	if err := ctx.Err(); err != nil {
		s.logger.Warn("cache write skipped", "key", key, "error", err)
		return false
	}

	if items == nil {
		items = []domain.Item{}
	}
	if err := s.set([]byte(key), items); err != nil {
		s.logger.Error("cache write failed", "key", key, "count", len(items), "error", err)
		return false
	}
	return true
}

// Clear removes a bucket entirely.
func (s *Store) Clear(ctx context.Context, key string) bool {
	if err := ctx.Err(); err != nil {
		return false
	}

	ok, err := s.exists([]byte(key))
	if err != nil {
		s.logger.Error("cache lookup failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return true
	}
	if err := s.delete([]byte(key)); err != nil {
		s.logger.Error("cache delete failed", "key", key, "error", err)
		return false
	}
	return true
}
