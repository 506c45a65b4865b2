package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/daybookapp/daybook/internal/calendar"
	"github.com/daybookapp/daybook/internal/domain"
)

const usage = `usage: calsync [config flags] <command> [flags]

commands:
  status                      show connectivity and cached item counts
  refresh                     reload the collection from the cache and the backend
  list [-day N] [-kind K]     list items, optionally for one day and one kind
  add-event -title T -day N   create an event
  add-task -title T -day N    create a task
  update <id> [flags]         patch an item
  toggle <id> [-done=false]   mark a task complete or open
  delete <id>                 delete an item
  export-ics [-month YYYY-MM] [-day N] [-out FILE]
                              write items as an iCalendar file
  watch                       probe on a schedule and print state changes until interrupted
  reset                       drop the offline cache, including items never sent to the backend
`

var commands = map[string]func(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error{
	"status":     cmdStatus,
	"refresh":    cmdRefresh,
	"list":       cmdList,
	"add-event":  cmdAddEvent,
	"add-task":   cmdAddTask,
	"update":     cmdUpdate,
	"toggle":     cmdToggle,
	"delete":     cmdDelete,
	"export-ics": cmdExportICS,
	"watch":      cmdWatch,
	"reset":      cmdReset,
}

// runCommand loads the calendar the way an app does on launch, then runs args[0].
func runCommand(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errors.New("no command given")
	}
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}

	cal.CheckConnection(ctx)
	cal.Refresh(ctx)

	return cmd(ctx, cal, args[1:], out)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

// takeID splits "<id> [flags]".
func takeID(name string, args []string) (string, []string, error) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return "", nil, fmt.Errorf("%s: item id required", name)
	}
	return args[0], args[1:], nil
}

func cmdStatus(_ context.Context, cal *calendar.Store, _ []string, out io.Writer) error {
	st := cal.Snapshot()
	events := len(domain.FilterByKind(st.Items, domain.KindEvent))
	tasks := len(domain.FilterByKind(st.Items, domain.KindTask))

	fmt.Fprintf(out, "online:       %t\n", st.Online)
	fmt.Fprintf(out, "selected day: %d\n", st.SelectedDay)
	fmt.Fprintf(out, "items:        %d (%d events, %d tasks)\n", len(st.Items), events, tasks)
	fmt.Fprintf(out, "today:        %d\n", len(st.DayItems))
	return nil
}

func cmdWatch(ctx context.Context, cal *calendar.Store, _ []string, out io.Writer) error {
	updates, cancel := cal.Subscribe(8)
	defer cancel()

	if err := cal.Start(ctx); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer cal.Close()

	printState(out, cal.Snapshot())
	for {
		select {
		case <-ctx.Done():
			return nil
		case st := <-updates:
			printState(out, st)
		}
	}
}

func printState(out io.Writer, st calendar.State) {
	fmt.Fprintf(out, "online=%t loading=%t items=%d day=%d day_items=%d\n",
		st.Online, st.Loading, len(st.Items), st.SelectedDay, len(st.DayItems))
}

func cmdReset(ctx context.Context, cal *calendar.Store, _ []string, out io.Writer) error {
	n := len(cal.Items())
	if !cal.Reset(ctx) {
		return errors.New("reset: could not clear the offline cache")
	}
	fmt.Fprintf(out, "cleared %d cached items\n", n)
	return nil
}

func cmdRefresh(_ context.Context, cal *calendar.Store, _ []string, out io.Writer) error {
	// runCommand already refreshed.
	st := cal.Snapshot()
	source := "cache only"
	if st.Online {
		source = "backend"
	}
	fmt.Fprintf(out, "refreshed %d items from %s\n", len(st.Items), source)
	return nil
}

func cmdList(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	fs := newFlagSet("list")
	day := fs.Int("day", 0, "only items on this day (1-31)")
	kind := fs.String("kind", "", "event or task")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("list: %w", err)
	}

	items := cal.Items()
	if *day != 0 {
		if *day < 1 || *day > 31 {
			return fmt.Errorf("list: day %d out of range", *day)
		}
		cal.SetSelectedDay(ctx, *day)
		items = cal.DayItems()
	}
	if *kind != "" {
		k := domain.Kind(*kind)
		if !k.Valid() {
			return fmt.Errorf("list: unknown kind %q", *kind)
		}
		items = domain.FilterByKind(items, k)
	}

	printItems(out, items)
	return nil
}

// draftFlags registers the fields every item has.
func draftFlags(fs *flag.FlagSet) *calendar.Draft {
	d := &calendar.Draft{}
	fs.StringVar(&d.Title, "title", "", "title")
	fs.StringVar(&d.Description, "description", "", "description")
	fs.IntVar(&d.Day, "day", 0, "day of month (1-31)")
	fs.StringVar(&d.Date, "date", "", "calendar date YYYY-MM-DD")
	fs.StringVar(&d.StartTime, "start", "", "start time HH:MM")
	fs.StringVar(&d.EndTime, "end", "", "end time HH:MM")
	fs.BoolVar(&d.IsAllDay, "all-day", false, "all-day item")
	fs.StringVar(&d.ReminderOption, "reminder", "", "reminder preset")
	fs.StringVar(&d.Color, "color", "", "display color")
	fs.StringVar(&d.Icon, "icon", "", "display icon")
	return d
}

func checkDraft(name string, d *calendar.Draft) error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%s: -title is required", name)
	}
	if d.Day < 1 || d.Day > 31 {
		return fmt.Errorf("%s: -day must be between 1 and 31", name)
	}
	return nil
}

func cmdAddEvent(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	fs := newFlagSet("add-event")
	d := draftFlags(fs)
	category := fs.String("category", "", "category tag")
	location := fs.String("location", "", "location")
	participants := fs.String("participants", "", "comma-separated participants")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("add-event: %w", err)
	}
	if err := checkDraft("add-event", d); err != nil {
		return err
	}

	it, err := cal.AddEvent(ctx, calendar.EventDraft{
		Draft:        *d,
		Category:     *category,
		Location:     *location,
		Participants: splitList(*participants),
	})
	if err != nil {
		return fmt.Errorf("add-event: %w", err)
	}
	fmt.Fprintln(out, it.ID)
	return nil
}

func cmdAddTask(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	fs := newFlagSet("add-task")
	d := draftFlags(fs)
	priority := fs.String("priority", "", "high, medium or low")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("add-task: %w", err)
	}
	if err := checkDraft("add-task", d); err != nil {
		return err
	}
	p := domain.Priority(*priority)
	if *priority != "" && !p.Valid() {
		return fmt.Errorf("add-task: unknown priority %q", *priority)
	}

	it, err := cal.AddTask(ctx, calendar.TaskDraft{Draft: *d, Priority: p})
	if err != nil {
		return fmt.Errorf("add-task: %w", err)
	}
	fmt.Fprintln(out, it.ID)
	return nil
}

func cmdUpdate(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	itemID, rest, err := takeID("update", args)
	if err != nil {
		return err
	}

	fs := newFlagSet("update")
	d := draftFlags(fs)
	category := fs.String("category", "", "category tag")
	location := fs.String("location", "", "location")
	participants := fs.String("participants", "", "comma-separated participants")
	priority := fs.String("priority", "", "high, medium or low")
	completed := fs.Bool("completed", false, "task completion")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("update: %w", err)
	}

	var patch domain.Patch
	var bad error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			patch.Title = &d.Title
		case "description":
			patch.Description = &d.Description
		case "day":
			if d.Day < 1 || d.Day > 31 {
				bad = fmt.Errorf("update: -day must be between 1 and 31")
			}
			patch.Day = &d.Day
		case "date":
			patch.Date = &d.Date
		case "start":
			patch.StartTime = &d.StartTime
		case "end":
			patch.EndTime = &d.EndTime
		case "all-day":
			patch.IsAllDay = &d.IsAllDay
		case "reminder":
			patch.ReminderOption = &d.ReminderOption
		case "color":
			patch.Color = &d.Color
		case "icon":
			patch.Icon = &d.Icon
		case "category":
			patch.Category = category
		case "location":
			patch.Location = location
		case "participants":
			patch.Participants = splitList(*participants)
		case "priority":
			p := domain.Priority(*priority)
			if !p.Valid() {
				bad = fmt.Errorf("update: unknown priority %q", *priority)
			}
			patch.Priority = &p
		case "completed":
			patch.Completed = completed
		}
	})
	if bad != nil {
		return bad
	}
	if patch.IsEmpty() {
		return errors.New("update: nothing to change")
	}

	if err := cal.UpdateEvent(ctx, itemID, patch); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	fmt.Fprintln(out, itemID)
	return nil
}

func cmdToggle(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	itemID, rest, err := takeID("toggle", args)
	if err != nil {
		return err
	}
	fs := newFlagSet("toggle")
	done := fs.Bool("done", true, "mark complete (false reopens)")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}

	if err := cal.ToggleTaskComplete(ctx, itemID, *done); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	fmt.Fprintln(out, itemID)
	return nil
}

func cmdDelete(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	itemID, _, err := takeID("delete", args)
	if err != nil {
		return err
	}
	if err := cal.DeleteEvent(ctx, itemID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	fmt.Fprintln(out, itemID)
	return nil
}

func cmdExportICS(ctx context.Context, cal *calendar.Store, args []string, out io.Writer) error {
	fs := newFlagSet("export-ics")
	monthFlag := fs.String("month", "", "month anchoring day-only items, YYYY-MM (default: current month)")
	day := fs.Int("day", 0, "only export this day")
	path := fs.String("out", "", "write to FILE instead of stdout")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("export-ics: %w", err)
	}

	month := time.Now()
	if *monthFlag != "" {
		m, err := time.Parse("2006-01", *monthFlag)
		if err != nil {
			return fmt.Errorf("export-ics: invalid month %q", *monthFlag)
		}
		month = m
	}

	items := cal.Items()
	if *day != 0 {
		cal.SetSelectedDay(ctx, *day)
		items = cal.DayItems()
	}

	ics, err := calendar.ExportICS(items, month)
	if err != nil {
		return fmt.Errorf("export-ics: %w", err)
	}

	if *path == "" {
		_, err = io.WriteString(out, ics)
		return err
	}
	if err := os.WriteFile(*path, []byte(ics), 0o600); err != nil {
		return fmt.Errorf("export-ics: %w", err)
	}
	fmt.Fprintf(out, "wrote %d items to %s\n", len(items), *path)
	return nil
}

func printItems(out io.Writer, items []domain.Item) {
	if len(items) == 0 {
		fmt.Fprintln(out, "no items")
		return
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tDAY\tTIME\tTITLE\tDETAIL")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%s\n", it.ID, it.Kind, it.Day, timeRange(it), it.Title, detail(it))
	}
	_ = tw.Flush()
}

func timeRange(it domain.Item) string {
	switch {
	case it.IsAllDay:
		return "all day"
	case it.StartTime != "" && it.EndTime != "":
		return it.StartTime + "-" + it.EndTime
	case it.StartTime != "":
		return it.StartTime
	default:
		return "-"
	}
}

func detail(it domain.Item) string {
	switch {
	case it.Event != nil:
		parts := []string{}
		if it.Event.Category != "" {
			parts = append(parts, it.Event.Category)
		}
		if it.Event.Location != "" {
			parts = append(parts, "@ "+it.Event.Location)
		}
		if len(it.Event.Participants) > 0 {
			parts = append(parts, "with "+strings.Join(it.Event.Participants, ", "))
		}
		return strings.Join(parts, " ")
	case it.Task != nil:
		state := "open"
		if it.Task.Completed {
			state = "done"
		}
		if it.Task.Priority != "" {
			return state + " (" + string(it.Task.Priority) + ")"
		}
		return state
	default:
		return ""
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
