package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/daybookapp/daybook/internal/domain"
	domainerrors "github.com/daybookapp/daybook/internal/errors"
)

// commonColumns is shared by both tables. Must match the scan order in scanItem.
const commonColumns = `id, user_id, title, description, day, date, start_time, end_time, is_all_day,
	reminder_option, color, icon, revision, created_at, updated_at`

const (
	eventColumns = commonColumns + `, category, location, participants`
	todoColumns  = commonColumns + `, priority, completed`
)

// tableFor returns the table and select list holding items of kind.
func tableFor(kind domain.Kind) (table, columns string) {
	switch kind {
	case domain.KindEvent:
		return "events", eventColumns
	case domain.KindTask:
		return "todos", todoColumns
	default:
		panic("sqlite: unknown item kind " + string(kind))
	}
}

// scanItem scans a sql.Row (or sql.Rows via its Scan method) into a domain.Item.
func scanItem(scanner interface{ Scan(dest ...any) error }, kind domain.Kind) (*domain.Item, error) {
	it := domain.Item{Kind: kind}

	var (
		userID         sql.NullString
		description    sql.NullString
		date           sql.NullString
		startTime      sql.NullString
		endTime        sql.NullString
		isAllDay       int
		reminderOption sql.NullString
		color          sql.NullString
		icon           sql.NullString
		createdAt      string
		updatedAt      string
	)
	dest := []any{
		&it.ID, &userID, &it.Title, &description, &it.Day, &date, &startTime, &endTime, &isAllDay,
		&reminderOption, &color, &icon, &it.Revision, &createdAt, &updatedAt,
	}

	var (
		category     sql.NullString
		location     sql.NullString
		participants string
		priority     string
		completed    int
	)
	switch kind {
	case domain.KindEvent:
		dest = append(dest, &category, &location, &participants)
	case domain.KindTask:
		dest = append(dest, &priority, &completed)
	}

	if err := scanner.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if it.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if userID.Valid {
		uid := userID.String
		it.UserID = &uid
	}
	it.Description = description.String
	it.Date = date.String
	it.StartTime = startTime.String
	it.EndTime = endTime.String
	it.IsAllDay = isAllDay != 0
	it.ReminderOption = reminderOption.String
	it.Color = color.String
	it.Icon = icon.String

	switch kind {
	case domain.KindEvent:
		it.Event = &domain.EventDetails{Category: category.String, Location: location.String}
		if err := json.Unmarshal([]byte(participants), &it.Event.Participants); err != nil {
			return nil, fmt.Errorf("decode participants: %w", err)
		}
		if len(it.Event.Participants) == 0 {
			it.Event.Participants = nil
		}
	case domain.KindTask:
		it.Task = &domain.TaskDetails{Priority: domain.Priority(priority), Completed: completed != 0}
	}

	return &it, nil
}

func (s *Store) queryItems(ctx context.Context, kind domain.Kind, where string, args ...any) ([]domain.Item, error) {
	table, columns := tableFor(kind)
	query := `SELECT ` + columns + ` FROM ` + table
	if where != "" {
		query += ` WHERE ` + where
	}
	query += ` ORDER BY day, created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows, kind)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// ListItems returns every item of kind, restricted to userID when it is non-nil.
func (s *Store) ListItems(ctx context.Context, kind domain.Kind, userID *string) ([]domain.Item, error) {
	if userID != nil {
		return s.queryItems(ctx, kind, `user_id = ?`, *userID)
	}
	return s.queryItems(ctx, kind, "")
}

// ListItemsByDay returns the items of kind in the given day bucket.
func (s *Store) ListItemsByDay(ctx context.Context, kind domain.Kind, day int, userID *string) ([]domain.Item, error) {
	if userID != nil {
		return s.queryItems(ctx, kind, `day = ? AND user_id = ?`, day, *userID)
	}
	return s.queryItems(ctx, kind, `day = ?`, day)
}

// GetItem retrieves one item. Returns a NotFound error if it does not exist.
func (s *Store) GetItem(ctx context.Context, kind domain.Kind, id string) (*domain.Item, error) {
	return getItem(ctx, s.db, kind, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getItem(ctx context.Context, q queryer, kind domain.Kind, id string) (*domain.Item, error) {
	table, columns := tableFor(kind)
	row := q.QueryRowContext(ctx, `SELECT `+columns+` FROM `+table+` WHERE id = ?`, id)

	it, err := scanItem(row, kind)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domainerrors.NotFoundf("%s %s not found", kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", table, id, err)
	}
	return it, nil
}

// CreateItem inserts a new item. The caller assigns ID, Revision and CreatedAt.
// Returns a Conflict error on duplicate ID.
func (s *Store) CreateItem(ctx context.Context, it *domain.Item) error {
	it.Normalize()
	table, _ := tableFor(it.Kind)

	cols := `id, user_id, title, description, day, date, start_time, end_time, is_all_day,
		reminder_option, color, icon, revision, created_at, updated_at`
	args := []any{
		it.ID, nullableString(it.UserID), it.Title, nullString(it.Description), it.Day,
		nullString(it.Date), nullString(it.StartTime), nullString(it.EndTime), boolInt(it.IsAllDay),
		nullString(it.ReminderOption), nullString(it.Color), nullString(it.Icon), it.Revision,
		formatTime(it.CreatedAt), formatTime(it.CreatedAt),
	}

	variantCols, variantArgs, err := variantValues(*it)
	if err != nil {
		return err
	}
	cols += ", " + strings.Join(variantCols, ", ")
	args = append(args, variantArgs...)

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(args)), ", ")
	_, err = s.db.ExecContext(ctx, `INSERT INTO `+table+` (`+cols+`) VALUES (`+placeholders+`)`, args...)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domainerrors.Conflictf("%s %s already exists", it.Kind, it.ID)
		}
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// UpdateItem applies patch to an item and bumps its revision.
// When patch.BaseRevision is non-zero and differs from the stored revision the
// update is rejected with a Conflict error.
func (s *Store) UpdateItem(ctx context.Context, kind domain.Kind, id string, patch domain.Patch, now time.Time) (*domain.Item, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	current, err := getItem(ctx, tx, kind, id)
	if err != nil {
		return nil, err
	}
	if patch.BaseRevision != 0 && patch.BaseRevision != current.Revision {
		return nil, domainerrors.Conflictf("%s %s is at revision %d, not %d", kind, id, current.Revision, patch.BaseRevision).
			WithDetails(map[string]int64{"current_revision": current.Revision})
	}

	updated := patch.Apply(*current)
	updated.Revision = current.Revision + 1

	table, _ := tableFor(kind)
	sets := []string{
		"title = ?", "description = ?", "day = ?", "date = ?", "start_time = ?", "end_time = ?",
		"is_all_day = ?", "reminder_option = ?", "color = ?", "icon = ?", "revision = ?", "updated_at = ?",
	}
	args := []any{
		updated.Title, nullString(updated.Description), updated.Day, nullString(updated.Date),
		nullString(updated.StartTime), nullString(updated.EndTime), boolInt(updated.IsAllDay),
		nullString(updated.ReminderOption), nullString(updated.Color), nullString(updated.Icon),
		updated.Revision, formatTime(now),
	}

	variantCols, variantArgs, err := variantValues(updated)
	if err != nil {
		return nil, err
	}
	for _, c := range variantCols {
		sets = append(sets, c+" = ?")
	}
	args = append(args, variantArgs...)
	args = append(args, id, current.Revision)

	res, err := tx.ExecContext(ctx,
		`UPDATE `+table+` SET `+strings.Join(sets, ", ")+` WHERE id = ? AND revision = ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domainerrors.Conflictf("%s %s changed concurrently", kind, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteItem removes an item. Returns a NotFound error if it does not exist.
func (s *Store) DeleteItem(ctx context.Context, kind domain.Kind, id string) error {
	table, _ := tableFor(kind)
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.NotFoundf("%s %s not found", kind, id)
	}
	return nil
}

// variantValues returns the kind-specific columns and values of it.
func variantValues(it domain.Item) ([]string, []any, error) {
	switch it.Kind {
	case domain.KindEvent:
		ev := it.Event
		if ev == nil {
			ev = &domain.EventDetails{}
		}
		participants := ev.Participants
		if participants == nil {
			participants = []string{}
		}
		data, err := json.Marshal(participants)
		if err != nil {
			return nil, nil, fmt.Errorf("encode participants: %w", err)
		}
		return []string{"category", "location", "participants"},
			[]any{nullString(ev.Category), nullString(ev.Location), string(data)}, nil
	case domain.KindTask:
		task := it.Task
		if task == nil {
			task = &domain.TaskDetails{Priority: domain.PriorityMedium}
		}
		return []string{"priority", "completed"}, []any{string(task.Priority), boolInt(task.Completed)}, nil
	default:
		return nil, nil, domainerrors.Validationf("unknown item kind %q", it.Kind)
	}
}
