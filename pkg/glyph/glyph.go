// Package glyph holds the symbols used to draw tasks in the terminal.
package glyph

import (
	"fmt"
	"strings"

	"tableflip.dev/nexday/pkg/task"
)

type Glyph struct {
	Key     string
	Symbol  string
	Meaning string
}

const (
	escape        = "\x1b"
	resetCode     = 0
	boldCode      = 1
	underlineCode = 4
	strikeCode    = 9
)

const (
	Open      = "●"
	Completed = "✘"
	Timed     = "⏰"
	Pip       = "◆"
	EmptyPip  = "◇"
)

func Strike(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, strikeCode, in, escape, resetCode)
}

func Bold(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, boldCode, in, escape, resetCode)
}

func Underline(in string) string {
	return fmt.Sprintf("%s[%dm%s%s[%dm", escape, underlineCode, in, escape, resetCode)
}

// Status is the bullet for a task.
func Status(t *task.Task) string {
	if t.IsCompleted {
		return Completed
	}
	return Open
}

// Difficulty draws d as filled pips out of five.
func Difficulty(d task.Difficulty) string {
	rank := d.Rank()
	if rank < 0 {
		rank = 0
	}
	total := len(task.Difficulties())
	if rank > total {
		rank = total
	}
	return strings.Repeat(Pip, rank) + strings.Repeat(EmptyPip, total-rank)
}

// Legend lists every symbol with its meaning, task states first.
func Legend() []Glyph {
	g := []Glyph{
		{Key: "open", Symbol: Open, Meaning: "task"},
		{Key: "done", Symbol: Completed, Meaning: "task completed"},
		{Key: "timed", Symbol: Timed, Meaning: "task has a scheduled time"},
	}
	for _, d := range task.Difficulties() {
		g = append(g, Glyph{
			Key:     strings.ToLower(string(d)),
			Symbol:  Difficulty(d),
			Meaning: fmt.Sprintf("%s, %d XP", d.String(), d.XP()),
		})
	}
	return g
}
