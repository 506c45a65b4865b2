package calendar_test

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daybookapp/daybook/internal/calendar"
	"github.com/daybookapp/daybook/internal/domain"
)

func TestExportICS(t *testing.T) {
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items := []domain.Item{
		{
			ID: "e1", Kind: domain.KindEvent, Title: "Standup", Day: 5,
			StartTime: "09:30", EndTime: "10:00", Revision: 3,
			Event: &domain.EventDetails{Category: "meeting", Location: "Room 4", Participants: []string{"ana"}},
		},
		{
			ID: "e2", Kind: domain.KindEvent, Title: "Holiday", Day: 9, Date: "2026-04-01", IsAllDay: true,
			Event: &domain.EventDetails{},
		},
		{
			ID: "t1", Kind: domain.KindTask, Title: "Pay rent", Day: 28,
			Task: &domain.TaskDetails{Priority: domain.PriorityHigh, Completed: true},
		},
	}

	out, err := calendar.ExportICS(items, month)
	require.NoError(t, err)

	cal, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	standup := events[0]
	assert.Equal(t, "e1", standup.Id())
	assert.Equal(t, "Standup", standup.GetProperty(ical.ComponentPropertySummary).Value)
	assert.Equal(t, "Room 4", standup.GetProperty(ical.ComponentPropertyLocation).Value)
	assert.Equal(t, "MEETING", standup.GetProperty(ical.ComponentPropertyCategories).Value)
	assert.Equal(t, "3", standup.GetProperty(ical.ComponentPropertySequence).Value)
	start, err := standup.GetStartAt()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 9, 30, 0, 0, time.UTC), start.UTC())
	end, err := standup.GetEndAt()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Minute, end.Sub(start))

	holiday := events[1]
	assert.Equal(t, "20260401", holiday.GetProperty(ical.ComponentPropertyDtStart).Value, "explicit date wins over day")

	todos := cal.Todos()
	require.Len(t, todos, 1)
	assert.Equal(t, "COMPLETED", todos[0].GetProperty(ical.ComponentPropertyStatus).Value)
	assert.Equal(t, "1", todos[0].GetProperty(ical.ComponentPropertyPriority).Value)
	assert.Equal(t, "20260328", todos[0].GetProperty(ical.ComponentPropertyDue).Value)
}

func TestExportICS_Errors(t *testing.T) {
	month := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := calendar.ExportICS([]domain.Item{{ID: "x", Kind: domain.KindEvent, Day: 0}}, month)
	assert.Error(t, err)

	_, err = calendar.ExportICS([]domain.Item{{ID: "x", Kind: domain.KindEvent, Day: 1, StartTime: "9am"}}, month)
	assert.Error(t, err)

	_, err = calendar.ExportICS([]domain.Item{{ID: "x", Kind: domain.Kind("note"), Day: 1}}, month)
	assert.Error(t, err)
}

func TestExportICS_ClampsDayToMonthEnd(t *testing.T) {
	items := []domain.Item{
		{ID: "t1", Kind: domain.KindTask, Title: "Rent", Day: 31, Task: &domain.TaskDetails{Priority: domain.PriorityHigh}},
	}

	tests := []struct {
		name  string
		month time.Time
		due   string
	}{
		{"february", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), "20260228"},
		{"leap february", time.Date(2028, 2, 1, 0, 0, 0, 0, time.UTC), "20280229"},
		{"april", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "20260430"},
		{"may", time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), "20260531"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := calendar.ExportICS(items, tt.month)
			require.NoError(t, err)

			parsed, err := ical.ParseCalendar(strings.NewReader(out))
			require.NoError(t, err)
			todos := parsed.Todos()
			require.Len(t, todos, 1)
			assert.Equal(t, tt.due, todos[0].GetProperty(ical.ComponentPropertyDue).Value)
		})
	}
}

func TestExportICS_Empty(t *testing.T) {
	out, err := calendar.ExportICS(nil, time.Now())
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VCALENDAR")
	assert.Contains(t, out, "PRODID:-//daybook//calsync//EN")
}
