package domain

import "slices"

// Patch is a field-level partial update. A nil field means "leave unchanged";
// a pointer to a zero value is sent and clears the field.
// Fields belonging to the other variant are ignored when applied.
type Patch struct {
	Title          *string   `json:"title,omitzero" required:"false" validate:"omitempty,min=1,max=200"`
	Description    *string   `json:"description,omitzero" required:"false" validate:"omitempty,max=2000"`
	Day            *int      `json:"day,omitzero" required:"false" validate:"omitempty,min=1,max=31"`
	Date           *string   `json:"date,omitzero" required:"false"`
	StartTime      *string   `json:"start_time,omitzero" required:"false"`
	EndTime        *string   `json:"end_time,omitzero" required:"false"`
	IsAllDay       *bool     `json:"is_all_day,omitzero" required:"false"`
	ReminderOption *string   `json:"reminder_option,omitzero" required:"false"`
	Color          *string   `json:"color,omitzero" required:"false"`
	Icon           *string   `json:"icon,omitzero" required:"false"`
	Category       *string   `json:"type,omitzero" required:"false"`
	Location       *string   `json:"location,omitzero" required:"false"`
	Participants   []string  `json:"participants,omitzero" required:"false"`
	Priority       *Priority `json:"priority,omitzero" required:"false" validate:"omitempty,oneof=high medium low"`
	Completed      *bool     `json:"completed,omitzero" required:"false"`

	// BaseRevision is the revision the writer last saw. Zero disables the check.
	BaseRevision int64 `json:"base_revision,omitzero" required:"false"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Day == nil && p.Date == nil &&
		p.StartTime == nil && p.EndTime == nil && p.IsAllDay == nil && p.ReminderOption == nil &&
		p.Color == nil && p.Icon == nil && p.Category == nil && p.Location == nil &&
		p.Participants == nil && p.Priority == nil && p.Completed == nil
}

// Apply returns a copy of it with the patch merged in. it is not modified.
func (p Patch) Apply(it Item) Item {
	out := it.Clone()

	setString(&out.Title, p.Title)
	setString(&out.Description, p.Description)
	setString(&out.Date, p.Date)
	setString(&out.StartTime, p.StartTime)
	setString(&out.EndTime, p.EndTime)
	setString(&out.ReminderOption, p.ReminderOption)
	setString(&out.Color, p.Color)
	setString(&out.Icon, p.Icon)
	if p.Day != nil {
		out.Day = *p.Day
	}
	if p.IsAllDay != nil {
		out.IsAllDay = *p.IsAllDay
	}

	switch out.Kind {
	case KindEvent:
		if out.Event == nil {
			out.Event = &EventDetails{}
		}
		setString(&out.Event.Category, p.Category)
		setString(&out.Event.Location, p.Location)
		if p.Participants != nil {
			out.Event.Participants = slices.Clone(p.Participants)
		}
	case KindTask:
		if out.Task == nil {
			out.Task = &TaskDetails{}
		}
		if p.Priority != nil {
			out.Task.Priority = *p.Priority
		}
		if p.Completed != nil {
			out.Task.Completed = *p.Completed
		}
	}

	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
