package calendar

import (
	"context"
	"slices"

	"github.com/daybookapp/daybook/internal/domain"
	"github.com/daybookapp/daybook/internal/id"
	"github.com/daybookapp/daybook/internal/remote"
)

// Draft holds the fields common to new events and tasks.
type Draft struct {
	Title          string
	Description    string
	Day            int
	Date           string
	StartTime      string
	EndTime        string
	IsAllDay       bool
	ReminderOption string
	Color          string
	Icon           string
}

func (d Draft) item(kind domain.Kind) domain.Item {
	return domain.Item{
		Kind:           kind,
		Title:          d.Title,
		Description:    d.Description,
		Day:            d.Day,
		Date:           d.Date,
		StartTime:      d.StartTime,
		EndTime:        d.EndTime,
		IsAllDay:       d.IsAllDay,
		ReminderOption: d.ReminderOption,
		Color:          d.Color,
		Icon:           d.Icon,
	}
}

// EventDraft is the input of AddEvent.
type EventDraft struct {
	Draft
	Category     string
	Location     string
	Participants []string
}

// TaskDraft is the input of AddTask.
type TaskDraft struct {
	Draft
	Priority  domain.Priority
	Completed bool
}

// AddEvent creates an event. See AddTask.
func (s *Store) AddEvent(ctx context.Context, in EventDraft) (domain.Item, error) {
	it := in.item(domain.KindEvent)
	it.Event = &domain.EventDetails{
		Category:     in.Category,
		Location:     in.Location,
		Participants: slices.Clone(in.Participants),
	}
	return s.add(ctx, it)
}

// AddTask creates a task. When online the backend is asked first and its
// record, carrying a server id, becomes the item. Otherwise, or when that
// fails, the item gets a local-origin id. Both paths succeed; the only error is
// a cancelled ctx.
func (s *Store) AddTask(ctx context.Context, in TaskDraft) (domain.Item, error) {
	it := in.item(domain.KindTask)
	it.Task = &domain.TaskDetails{Priority: in.Priority, Completed: in.Completed}
	return s.add(ctx, it)
}

func (s *Store) add(ctx context.Context, it domain.Item) (domain.Item, error) {
	if err := ctx.Err(); err != nil {
		return domain.Item{}, err
	}

	now := s.now()
	it.UserID = s.identity.UserID()
	it.CreatedAt = now.UTC()
	it.Normalize()

	var created *domain.Item
	if s.Online() {
		err := s.call(ctx, it.Kind, "add", func(c remote.Collection) (err error) {
			created, err = c.Add(ctx, it)
			return err
		})
		if err != nil {
			created = nil
		}
	}

	var final domain.Item
	if created != nil && created.ID != "" {
		final = created.Clone()
		final.Kind = it.Kind
		final.Normalize()
	} else {
		localID, err := id.NewLocal(now)
		if err != nil {
			return domain.Item{}, err
		}
		final = it
		final.ID = localID
	}

	s.update(func(st *State) {
		st.Items = upsert(st.Items, []domain.Item{final})
		if final.Day == st.SelectedDay {
			st.DayItems = upsert(st.DayItems, []domain.Item{final})
		}
	})
	s.persist(ctx, final.Kind)

	s.logger.Debug("item added", "item", final.String(), "local", id.IsLocal(final.ID))
	return final.Clone(), nil
}

// UpdateEvent merges patch into the item with the given id, for either kind.
// An unknown id returns a NotFound error and changes nothing. The local change
// stands even when the remote update fails.
func (s *Store) UpdateEvent(ctx context.Context, itemID string, patch domain.Patch) error {
	s.mu.Lock()
	idx := indexOf(s.state.Items, itemID)
	if idx < 0 {
		s.mu.Unlock()
		return errItemNotFound(itemID)
	}
	if patch.IsEmpty() {
		s.mu.Unlock()
		return nil
	}

	prev := s.state.Items[idx]
	updated := patch.Apply(prev)
	online := s.state.Online

	s.mutateLocked(func(st *State) {
		items := slices.Clone(st.Items)
		items[idx] = updated
		st.Items = items
		st.DayItems = moveInProjection(st.DayItems, updated, st.SelectedDay)
	})
	s.mu.Unlock()

	s.persist(ctx, updated.Kind)

	if online && !id.IsLocal(itemID) {
		// Revision only tracks what the backend confirmed; local edits leave it alone.
		patch.BaseRevision = prev.Revision
		var confirmed *domain.Item
		err := s.call(ctx, updated.Kind, "update", func(c remote.Collection) error {
			var err error
			confirmed, err = c.Update(ctx, itemID, patch)
			return err
		})
		if err == nil && confirmed != nil {
			s.confirmRevision(ctx, updated.Kind, itemID, confirmed.Revision)
		}
	}
	return nil
}

// confirmRevision records a revision acknowledged by the backend. Only the
// revision is adopted; local field values stay as they are.
func (s *Store) confirmRevision(ctx context.Context, kind domain.Kind, itemID string, revision int64) {
	s.mu.Lock()
	idx := indexOf(s.state.Items, itemID)
	if idx < 0 || s.state.Items[idx].Revision >= revision {
		s.mu.Unlock()
		return
	}
	s.mutateLocked(func(st *State) {
		items := slices.Clone(st.Items)
		items[idx].Revision = revision
		st.Items = items
		if j := indexOf(st.DayItems, itemID); j >= 0 {
			dayItems := slices.Clone(st.DayItems)
			dayItems[j].Revision = revision
			st.DayItems = dayItems
		}
	})
	s.mu.Unlock()

	s.persist(ctx, kind)
}

// DeleteEvent removes the item with the given id, for either kind, from the
// collection, the projection and the cache, and from the backend when online
// and the id is not local-origin.
func (s *Store) DeleteEvent(ctx context.Context, itemID string) error {
	s.mu.Lock()
	idx := indexOf(s.state.Items, itemID)
	if idx < 0 {
		s.mu.Unlock()
		return errItemNotFound(itemID)
	}
	removed := s.state.Items[idx]
	online := s.state.Online

	s.mutateLocked(func(st *State) {
		st.Items = slices.Delete(slices.Clone(st.Items), idx, idx+1)
		if j := indexOf(st.DayItems, itemID); j >= 0 {
			st.DayItems = slices.Delete(slices.Clone(st.DayItems), j, j+1)
		}
	})
	s.mu.Unlock()

	s.persist(ctx, removed.Kind)

	if online && !id.IsLocal(itemID) {
		_ = s.call(ctx, removed.Kind, "delete", func(c remote.Collection) error {
			return c.Delete(ctx, itemID)
		})
	}
	return nil
}

// ToggleTaskComplete sets a task's completion flag.
func (s *Store) ToggleTaskComplete(ctx context.Context, itemID string, completed bool) error {
	return s.UpdateEvent(ctx, itemID, domain.Patch{Completed: &completed})
}

// moveInProjection returns the projection after it changed: replaced in place
// when it stays on day, dropped when it left, appended when it arrived.
func moveInProjection(dayItems []domain.Item, it domain.Item, day int) []domain.Item {
	j := indexOf(dayItems, it.ID)
	switch {
	case j >= 0 && it.Day == day:
		out := slices.Clone(dayItems)
		out[j] = it
		return out
	case j >= 0:
		return slices.Delete(slices.Clone(dayItems), j, j+1)
	case it.Day == day:
		return append(slices.Clone(dayItems), it)
	default:
		return dayItems
	}
}
