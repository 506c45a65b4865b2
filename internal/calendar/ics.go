package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/daybookapp/daybook/internal/domain"
)

const defaultEventSpan = time.Hour

// ExportICS renders items as an iCalendar document, events as VEVENT and tasks
// as VTODO. Items without a Date are placed on their Day in month's month,
// clamped to its last day.
// Times are interpreted in month's location.
func ExportICS(items []domain.Item, month time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//daybook//calsync//EN")

	for _, it := range items {
		date, err := itemDate(it, month)
		if err != nil {
			return "", fmt.Errorf("item %s: %w", it.ID, err)
		}

		switch it.Kind {
		case domain.KindEvent:
			if err := addVEvent(cal, it, date); err != nil {
				return "", fmt.Errorf("item %s: %w", it.ID, err)
			}
		case domain.KindTask:
			addVTodo(cal, it, date)
		default:
			return "", fmt.Errorf("item %s: unknown kind %q", it.ID, it.Kind)
		}
	}

	return cal.Serialize(), nil
}

func itemDate(it domain.Item, month time.Time) (time.Time, error) {
	if it.Date != "" {
		d, err := time.ParseInLocation(time.DateOnly, it.Date, month.Location())
		if err != nil {
			return time.Time{}, fmt.Errorf("parse date %q: %w", it.Date, err)
		}
		return d, nil
	}
	if !validDay(it.Day) {
		return time.Time{}, fmt.Errorf("day %d out of range", it.Day)
	}
	day := min(it.Day, daysIn(month))
	return time.Date(month.Year(), month.Month(), day, 0, 0, 0, 0, month.Location()), nil
}

// daysIn returns the number of days in month's month.
func daysIn(month time.Time) int {
	return time.Date(month.Year(), month.Month()+1, 0, 0, 0, 0, 0, month.Location()).Day()
}

// atClock returns date at the HH:MM clock time.
func atClock(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", clock, err)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location()), nil
}

func addVEvent(cal *ical.Calendar, it domain.Item, date time.Time) error {
	ev := cal.AddEvent(it.ID)
	ev.SetSummary(it.Title)
	if it.Description != "" {
		ev.SetDescription(it.Description)
	}
	if !it.CreatedAt.IsZero() {
		ev.SetCreatedTime(it.CreatedAt)
		ev.SetDtStampTime(it.CreatedAt)
	} else {
		ev.SetDtStampTime(time.Now())
	}
	if it.Revision > 0 {
		ev.SetSequence(int(it.Revision))
	}

	if it.IsAllDay || it.StartTime == "" {
		ev.SetAllDayStartAt(date)
		ev.SetAllDayEndAt(date.AddDate(0, 0, 1))
	} else {
		start, err := atClock(date, it.StartTime)
		if err != nil {
			return err
		}
		end := start.Add(defaultEventSpan)
		if it.EndTime != "" {
			if end, err = atClock(date, it.EndTime); err != nil {
				return err
			}
			if !end.After(start) {
				end = end.AddDate(0, 0, 1)
			}
		}
		ev.SetStartAt(start)
		ev.SetEndAt(end)
	}

	if it.Event != nil {
		if it.Event.Location != "" {
			ev.SetLocation(it.Event.Location)
		}
		if it.Event.Category != "" {
			ev.AddCategory(strings.ToUpper(it.Event.Category))
		}
		// Participants are display names, not addresses.
		for _, p := range it.Event.Participants {
			ev.AddProperty(ical.ComponentPropertyAttendee, "urn:daybook:participant", ical.WithCN(p))
		}
	}
	return nil
}

func addVTodo(cal *ical.Calendar, it domain.Item, date time.Time) {
	todo := cal.AddTodo(it.ID)
	todo.SetSummary(it.Title)
	if it.Description != "" {
		todo.SetDescription(it.Description)
	}
	if !it.CreatedAt.IsZero() {
		todo.SetCreatedTime(it.CreatedAt)
		todo.SetDtStampTime(it.CreatedAt)
	} else {
		todo.SetDtStampTime(time.Now())
	}
	todo.SetAllDayDueAt(date)

	status, priority := ical.ObjectStatusNeedsAction, icsPriority(domain.PriorityMedium)
	if it.Task != nil {
		if it.Task.Completed {
			status = ical.ObjectStatusCompleted
		}
		priority = icsPriority(it.Task.Priority)
	}
	todo.SetStatus(status)
	todo.SetPriority(priority)
}

// icsPriority maps to RFC 5545 PRIORITY: 1 highest, 9 lowest.
func icsPriority(p domain.Priority) int {
	switch p {
	case domain.PriorityHigh:
		return 1
	case domain.PriorityLow:
		return 9
	default:
		return 5
	}
}
