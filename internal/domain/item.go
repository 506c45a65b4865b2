// Package domain defines the calendar items synchronized between device and backend.
package domain

import (
	"fmt"
	"slices"
	"time"
)

// Kind tags which variant an Item carries.
type Kind string

const (
	// KindEvent is a scheduled calendar event.
	KindEvent Kind = "event"
	// KindTask is a todo with priority and completion state.
	KindTask Kind = "task"
)

// Valid reports whether k is a known variant.
func (k Kind) Valid() bool {
	switch k {
	case KindEvent, KindTask:
		return true
	default:
		return false
	}
}

// Priority of a task.
type Priority string

// Task priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Item is a calendar entry. Exactly one of Event or Task is set, matching Kind.
type Item struct {
	CreatedAt      time.Time     `json:"created_at"`
	UserID         *string       `json:"user_id"`
	Event          *EventDetails `json:"event,omitempty"`
	Task           *TaskDetails  `json:"task,omitempty"`
	ID             string        `json:"id"`
	Kind           Kind          `json:"kind" validate:"oneof=event task"`
	Title          string        `json:"title" validate:"required,max=200"`
	Description    string        `json:"description,omitempty" validate:"max=2000"`
	Date           string        `json:"date,omitempty"`
	StartTime      string        `json:"start_time,omitempty"`
	EndTime        string        `json:"end_time,omitempty"`
	ReminderOption string        `json:"reminder_option,omitempty"`
	Color          string        `json:"color,omitempty"`
	Icon           string        `json:"icon,omitempty"`
	Day            int           `json:"day" validate:"min=1,max=31"`
	Revision       int64         `json:"revision"`
	IsAllDay       bool          `json:"is_all_day"`
}

// EventDetails holds the fields only events have.
type EventDetails struct {
	// Category is an open set of tags (meeting, personal, work, health, ...).
	Category     string   `json:"type,omitempty" validate:"max=50"`
	Location     string   `json:"location,omitempty" validate:"max=200"`
	Participants []string `json:"participants,omitempty"`
}

// TaskDetails holds the fields only tasks have.
type TaskDetails struct {
	Priority  Priority `json:"priority,omitempty" validate:"omitempty,oneof=high medium low"`
	Completed bool     `json:"completed"`
}

// Normalize makes the variant payload agree with Kind: the matching details
// pointer is allocated if missing and the other one is cleared.
func (it *Item) Normalize() {
	switch it.Kind {
	case KindEvent:
		if it.Event == nil {
			it.Event = &EventDetails{}
		}
		it.Task = nil
	case KindTask:
		if it.Task == nil {
			it.Task = &TaskDetails{Priority: PriorityMedium}
		}
		if it.Task.Priority == "" {
			it.Task.Priority = PriorityMedium
		}
		it.Event = nil
	}
}

// Clone returns a deep copy so callers can never alias store state.
func (it Item) Clone() Item {
	out := it
	if it.UserID != nil {
		uid := *it.UserID
		out.UserID = &uid
	}
	if it.Event != nil {
		ev := *it.Event
		ev.Participants = slices.Clone(it.Event.Participants)
		out.Event = &ev
	}
	if it.Task != nil {
		task := *it.Task
		out.Task = &task
	}
	return out
}

// OwnedBy reports whether the item belongs to userID. A nil userID matches everything.
func (it Item) OwnedBy(userID *string) bool {
	if userID == nil {
		return true
	}
	return it.UserID != nil && *it.UserID == *userID
}

// String is used in log lines.
func (it Item) String() string {
	return fmt.Sprintf("%s %s (day %d)", it.Kind, it.ID, it.Day)
}

// CloneItems deep-copies a slice of items. A nil input yields an empty, non-nil slice.
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// FilterByDay returns copies of the items whose Day equals day.
func FilterByDay(items []Item, day int) []Item {
	out := make([]Item, 0)
	for _, it := range items {
		if it.Day == day {
			out = append(out, it.Clone())
		}
	}
	return out
}

// FilterByKind returns copies of the items of the given kind.
func FilterByKind(items []Item, kind Kind) []Item {
	out := make([]Item, 0)
	for _, it := range items {
		if it.Kind == kind {
			out = append(out, it.Clone())
		}
	}
	return out
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
