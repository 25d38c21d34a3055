// Package progression maps cumulative experience to levels.
//
// The curve is quadratic: reaching level L takes floor(2.5 * (L-1)^2) XP in
// total, so every level costs more than the one before it.
package progression

import (
	"math"

	"tableflip.dev/nexday/pkg/task"
)

// XPForLevel is the total XP at which level begins. Levels at or below 1
// start at zero.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	// floor(2.5 * n^2) computed in integers.
	return 5 * n * n / 2
}

// LevelFromXP is the highest level whose threshold totalXP has reached,
// never less than 1. It agrees with floor(sqrt(totalXP/2.5)) + 1 except where
// truncation of XPForLevel would otherwise push a boundary value one level
// short, so LevelFromXP(XPForLevel(L)) == L holds for every L.
func LevelFromXP(totalXP int) int {
	if totalXP <= 0 {
		return 1
	}
	level := int(math.Floor(math.Sqrt(float64(totalXP)/2.5))) + 1
	for XPForLevel(level+1) <= totalXP {
		level++
	}
	for level > 1 && XPForLevel(level) > totalXP {
		level--
	}
	return level
}

// XPToNextLevel is how much more XP is needed to reach the next level.
func XPToNextLevel(totalXP int) int {
	if totalXP < 0 {
		totalXP = 0
	}
	return XPForLevel(LevelFromXP(totalXP)+1) - totalXP
}

// XPDelta is the XP a completed task of difficulty d is worth.
func XPDelta(d task.Difficulty) int {
	return d.XP()
}

// Snapshot is the derived view of a total.
type Snapshot struct {
	TotalXP       int `json:"totalXP" yaml:"totalXP"`
	CurrentLevel  int `json:"currentLevel" yaml:"currentLevel"`
	XPToNextLevel int `json:"xpToNextLevel" yaml:"xpToNextLevel"`
}

// At computes the snapshot for a total, clamping negative totals to zero.
func At(totalXP int) Snapshot {
	if totalXP < 0 {
		totalXP = 0
	}
	return Snapshot{
		TotalXP:       totalXP,
		CurrentLevel:  LevelFromXP(totalXP),
		XPToNextLevel: XPToNextLevel(totalXP),
	}
}

// Consistent reports whether the level fields agree with the total.
func (s Snapshot) Consistent() bool {
	return s.TotalXP >= 0 && s == At(s.TotalXP)
}
