package printers

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/glyph"
	"tableflip.dev/nexday/pkg/task"
)

type PrettyPrint struct {
	ShowID bool
	// Out defaults to color.Output.
	Out io.Writer
}

const idWidth = 8

var (
	spacing = strings.Repeat(" ", idWidth+2)
)

func (pp *PrettyPrint) out() io.Writer {
	if pp.Out != nil {
		return pp.Out
	}
	return color.Output
}

func (pp *PrettyPrint) NewLine() {
	_, _ = fmt.Fprintln(pp.out(), "")
}

func (pp *PrettyPrint) Title(title string) {
	t := color.New(color.Bold, color.Underline)

	if pp.ShowID {
		_, _ = fmt.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprintln(pp.out(), title)
}

// TitleWithCount prints a bucket title with its completion count.
func (pp *PrettyPrint) TitleWithCount(title string, completed, total int) {
	t := color.New(color.Bold, color.Underline)
	c := color.New(color.Faint)

	if pp.ShowID {
		_, _ = fmt.Fprint(pp.out(), spacing)
	}
	_, _ = t.Fprint(pp.out(), title)
	_, _ = c.Fprintf(pp.out(), " - %d/%d", completed, total)

	switch total {
	case 1:
		_, _ = c.Fprintln(pp.out(), " task")
	default:
		_, _ = c.Fprintln(pp.out(), " tasks")
	}
}

// Tasks prints one line per task.
func (pp *PrettyPrint) Tasks(tasks ...*task.Task) {
	w := pp.out()
	if len(tasks) == 0 {
		f := color.New(color.Faint, color.Italic)
		if pp.ShowID {
			_, _ = fmt.Fprint(w, spacing)
		}
		_, _ = f.Fprint(w, " none\n\n")
		return
	}

	open := color.New()
	done := color.New(color.Faint, color.CrossedOut)
	y := color.New(color.FgHiYellow, color.Italic, color.Faint)
	pips := color.New(color.FgMagenta)
	at := color.New(color.FgCyan)

	for _, t := range tasks {
		if pp.ShowID {
			id := shortID(t.ID)
			_, _ = y.Fprint(w, id)
			_, _ = fmt.Fprint(w, strings.Repeat(" ", len(spacing)-len(id)))
		}
		line := open
		if t.IsCompleted {
			line = done
		}
		_, _ = line.Fprintf(w, "%s ", glyph.Status(t))
		_, _ = pips.Fprintf(w, "%s ", glyph.Difficulty(t.Difficulty))
		if t.Timed() {
			_, _ = at.Fprintf(w, "%s %s ", glyph.Timed, task.FormatClock(t.ScheduledTime))
		}
		_, _ = line.Fprintln(w, t.Title)
		if t.Description != "" {
			desc := color.New(color.Faint)
			if pp.ShowID {
				_, _ = fmt.Fprint(w, spacing)
			}
			_, _ = desc.Fprintf(w, "    %s\n", t.Description)
		}
	}
	_, _ = fmt.Fprintln(w, "")
}

// Task prints the full record of a single task.
func (pp *PrettyPrint) Task(t *task.Task) {
	w := pp.out()
	b := color.New(color.Bold)
	_, _ = b.Fprintln(w, t.Title)
	rows := [][2]string{
		{"id", t.ID},
		{"day", t.Bucket.String()},
		{"difficulty", fmt.Sprintf("%s (%d XP)", t.Difficulty.String(), t.Difficulty.XP())},
		{"status", status(t)},
		{"created", task.FormatTime(t.CreatedAt)},
	}
	if t.Description != "" {
		rows = append(rows, [2]string{"description", t.Description})
	}
	if t.Timed() {
		rows = append(rows, [2]string{"scheduled", task.FormatTime(*t.ScheduledTime)})
	}
	for _, r := range rows {
		_, _ = fmt.Fprintf(w, "  %-12s %s\n", r[0], r[1])
	}
}

func status(t *task.Task) string {
	if t.IsCompleted && t.CompletedAt != nil {
		return "completed " + task.FormatTime(*t.CompletedAt)
	}
	return "open"
}

func shortID(id string) string {
	if len(id) > idWidth {
		return id[:idWidth]
	}
	return id
}
