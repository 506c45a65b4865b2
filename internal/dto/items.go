// Package dto holds the wire types shared by the backend API and the remote
// gateway client. huma reads the struct tags to build the OpenAPI schema and
// to validate requests.
package dto

import (
	"github.com/daybookapp/daybook/internal/domain"
)

// Envelope is the JSON shape of every response body.
type Envelope[T any] struct {
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
	Success bool   `json:"success"`
}

// EventFields is the event payload of a create request.
type EventFields struct {
	Category     string   `json:"type,omitempty" maxLength:"50" doc:"Category tag (meeting, personal, ...)"`
	Location     string   `json:"location,omitempty" maxLength:"200" doc:"Where it happens"`
	Participants []string `json:"participants,omitempty" doc:"Who attends"`
}

// TaskFields is the task payload of a create request.
type TaskFields struct {
	Priority  string `json:"priority,omitempty" enum:"high,medium,low" doc:"Task priority"`
	Completed bool   `json:"completed,omitempty" doc:"Completion state"`
}

// CreateItemRequest is the body of POST /api/v1/{events,todos}.
// The collection in the path decides the kind; the id is always assigned by the server.
type CreateItemRequest struct {
	Title          string       `json:"title" minLength:"1" maxLength:"200" doc:"Display title"`
	Day            int          `json:"day" minimum:"1" maximum:"31" doc:"Day-of-month bucket"`
	Description    string       `json:"description,omitempty" maxLength:"2000" doc:"Free text"`
	Date           string       `json:"date,omitempty" doc:"Calendar date (YYYY-MM-DD)"`
	StartTime      string       `json:"start_time,omitempty" doc:"Start time (HH:MM)"`
	EndTime        string       `json:"end_time,omitempty" doc:"End time (HH:MM)"`
	IsAllDay       bool         `json:"is_all_day,omitempty" doc:"All-day flag"`
	ReminderOption string       `json:"reminder_option,omitempty" doc:"Reminder preset"`
	Color          string       `json:"color,omitempty" doc:"Display color"`
	Icon           string       `json:"icon,omitempty" doc:"Display icon"`
	UserID         *string      `json:"user_id,omitempty" doc:"Owning user, omitted for shared items"`
	CreatedAt      string       `json:"created_at,omitempty" doc:"Client creation time (RFC3339)"`
	Event          *EventFields `json:"event,omitempty" doc:"Event-only fields"`
	Task           *TaskFields  `json:"task,omitempty" doc:"Task-only fields"`
}

// NewCreateItemRequest builds the request body for it.
func NewCreateItemRequest(it domain.Item) CreateItemRequest {
	req := CreateItemRequest{
		Title:          it.Title,
		Day:            it.Day,
		Description:    it.Description,
		Date:           it.Date,
		StartTime:      it.StartTime,
		EndTime:        it.EndTime,
		IsAllDay:       it.IsAllDay,
		ReminderOption: it.ReminderOption,
		Color:          it.Color,
		Icon:           it.Icon,
		UserID:         it.UserID,
	}
	if !it.CreatedAt.IsZero() {
		req.CreatedAt = it.CreatedAt.UTC().Format(timeLayout)
	}
	switch it.Kind {
	case domain.KindEvent:
		if it.Event != nil {
			req.Event = &EventFields{
				Category:     it.Event.Category,
				Location:     it.Event.Location,
				Participants: it.Event.Participants,
			}
		}
	case domain.KindTask:
		if it.Task != nil {
			req.Task = &TaskFields{
				Priority:  string(it.Task.Priority),
				Completed: it.Task.Completed,
			}
		}
	}
	return req
}

// ToItem converts the request to an unsaved item of kind.
func (r CreateItemRequest) ToItem(kind domain.Kind) (domain.Item, error) {
	it := domain.Item{
		Kind:           kind,
		Title:          r.Title,
		Day:            r.Day,
		Description:    r.Description,
		Date:           r.Date,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		IsAllDay:       r.IsAllDay,
		ReminderOption: r.ReminderOption,
		Color:          r.Color,
		Icon:           r.Icon,
		UserID:         r.UserID,
	}
	if r.CreatedAt != "" {
		t, err := parseTime(r.CreatedAt)
		if err != nil {
			return domain.Item{}, err
		}
		it.CreatedAt = t
	}
	switch kind {
	case domain.KindEvent:
		if r.Event != nil {
			it.Event = &domain.EventDetails{
				Category:     r.Event.Category,
				Location:     r.Event.Location,
				Participants: r.Event.Participants,
			}
		}
	case domain.KindTask:
		if r.Task != nil {
			it.Task = &domain.TaskDetails{
				Priority:  domain.Priority(r.Task.Priority),
				Completed: r.Task.Completed,
			}
		}
	}
	it.Normalize()
	return it, nil
}
