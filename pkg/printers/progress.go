package printers

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"tableflip.dev/nexday/pkg/glyph"
	"tableflip.dev/nexday/pkg/progression"
)

const barWidth = 20

// Bar renders the fraction of the current level already earned.
func Bar(s progression.Snapshot) string {
	lo := progression.XPForLevel(s.CurrentLevel)
	hi := progression.XPForLevel(s.CurrentLevel + 1)
	filled := 0
	if hi > lo {
		filled = (s.TotalXP - lo) * barWidth / (hi - lo)
	}
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return strings.Repeat(glyph.Pip, filled) + strings.Repeat(glyph.EmptyPip, barWidth-filled)
}

// Progress prints the level line followed by the bar.
func (pp *PrettyPrint) Progress(s progression.Snapshot) {
	w := pp.out()
	b := color.New(color.Bold)
	m := color.New(color.FgMagenta)
	f := color.New(color.Faint)

	if pp.ShowID {
		_, _ = fmt.Fprint(w, spacing)
	}
	_, _ = b.Fprintf(w, "Level %d", s.CurrentLevel)
	_, _ = f.Fprintf(w, "  %d XP total\n", s.TotalXP)
	if pp.ShowID {
		_, _ = fmt.Fprint(w, spacing)
	}
	_, _ = m.Fprint(w, Bar(s))
	_, _ = f.Fprintf(w, "  %d XP to level %d\n", s.XPToNextLevel, s.CurrentLevel+1)
}
