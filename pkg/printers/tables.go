package printers

import (
	"fmt"
	"strconv"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"tableflip.dev/nexday/pkg/app"
	"tableflip.dev/nexday/pkg/glyph"
	"tableflip.dev/nexday/pkg/scheduler"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/task"
	"tableflip.dev/nexday/pkg/timeutil"
)

func newTable(header ...interface{}) *uitable.Table {
	bold := color.New(color.Bold)
	tbl := uitable.New()
	tbl.Separator = "  "
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = bold.Sprint(h)
	}
	tbl.AddRow(cells...)
	return tbl
}

// Legend prints the glyph key.
func (pp *PrettyPrint) Legend() {
	tbl := newTable("   Glyph", "Meaning")
	for _, g := range glyph.Legend() {
		tbl.AddRow(g.Symbol, g.Meaning)
	}
	tbl.RightAlign(0)
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

func (pp *PrettyPrint) Settings(s settings.Settings) {
	tbl := newTable("Setting", "Value")
	reminder := "off"
	if s.DailyReminderTime != nil {
		reminder = *s.DailyReminderTime
	}
	tbl.AddRow("rollover", onOff(s.RolloverEnabled))
	tbl.AddRow("rollover time", timeutil.FormatClock(s.RolloverHour, s.RolloverMinute))
	tbl.AddRow("notifications", onOff(s.NotificationsEnabled))
	tbl.AddRow("task reminders", onOff(s.TaskRemindersEnabled))
	tbl.AddRow("daily reminder", reminder)
	tbl.AddRow("sort", string(s.SortType))
	tbl.AddRow("reverse", onOff(s.ReverseSort))
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

func (pp *PrettyPrint) Summaries(sums []app.Summary) {
	tbl := newTable("Day", "Done", "Total")
	for _, s := range sums {
		tbl.AddRow(s.Bucket.String(), strconv.Itoa(s.Completed), strconv.Itoa(s.Total))
	}
	tbl.RightAlign(1)
	tbl.RightAlign(2)
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

func (pp *PrettyPrint) Triggers(triggers []scheduler.Trigger) {
	tbl := newTable("Trigger", "At", "Next", "Last run", "Error")
	for _, t := range triggers {
		last := "-"
		if !t.LastRun.IsZero() {
			last = task.FormatTime(t.LastRun)
		}
		tbl.AddRow(t.Name, timeutil.FormatClock(t.Hour, t.Minute), task.FormatTime(t.Next), last, t.LastError)
	}
	_, _ = fmt.Fprintln(pp.out(), tbl)
}

// Report prints completed tasks grouped by day with XP subtotals.
func (pp *PrettyPrint) Report(r app.ReportResult) {
	w := pp.out()
	f := color.New(color.Faint)
	_, _ = f.Fprintf(w, "%s .. %s\n\n", task.FormatTime(r.Since), task.FormatTime(r.Until))
	if len(r.Sections) == 0 {
		_, _ = f.Fprintln(w, "nothing completed")
		return
	}
	for _, sec := range r.Sections {
		pp.TitleWithCount(sec.Bucket.String(), len(sec.Items), len(sec.Items))
		tbl := uitable.New()
		tbl.Separator = "  "
		for _, it := range sec.Items {
			id := ""
			if pp.ShowID {
				id = shortID(it.Task.ID)
			}
			tbl.AddRow(id, glyph.Completed, it.Task.Title, fmt.Sprintf("+%d XP", it.XP), it.CompletedAt.Local().Format("Jan 2 15:04"))
		}
		tbl.RightAlign(3)
		_, _ = fmt.Fprintln(w, tbl)
		_, _ = f.Fprintf(w, "%d XP\n\n", sec.XP)
	}
	b := color.New(color.Bold)
	_, _ = b.Fprintf(w, "%d completed, %d XP\n", r.Total, r.XP)
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
