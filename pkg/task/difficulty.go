package task

import (
	"fmt"
	"strings"
)

// Difficulty rates how hard a task is. Each level awards a fixed amount of XP.
type Difficulty string

const (
	VeryEasy Difficulty = "VERY_EASY"
	Easy     Difficulty = "EASY"
	Medium   Difficulty = "MEDIUM"
	Hard     Difficulty = "HARD"
	VeryHard Difficulty = "VERY_HARD"
)

type difficultyInfo struct {
	xp      int
	rank    int
	display string
}

var difficulties = map[Difficulty]difficultyInfo{
	VeryEasy: {xp: 1, rank: 1, display: "Very Easy"},
	Easy:     {xp: 2, rank: 2, display: "Easy"},
	Medium:   {xp: 3, rank: 3, display: "Medium"},
	Hard:     {xp: 5, rank: 4, display: "Hard"},
	VeryHard: {xp: 8, rank: 5, display: "Very Hard"},
}

// Difficulties returns every difficulty from easiest to hardest.
func Difficulties() []Difficulty {
	return []Difficulty{VeryEasy, Easy, Medium, Hard, VeryHard}
}

// XP is the experience awarded for completing a task of this difficulty.
// Unknown values award nothing.
func (d Difficulty) XP() int {
	return difficulties[d].xp
}

// Rank orders difficulties, 1 for VeryEasy up to 5 for VeryHard. Unknown
// values rank 0.
func (d Difficulty) Rank() int {
	return difficulties[d].rank
}

func (d Difficulty) Valid() bool {
	_, ok := difficulties[d]
	return ok
}

func (d Difficulty) String() string {
	if info, ok := difficulties[d]; ok {
		return info.display
	}
	return string(d)
}

// ParseDifficulty accepts the enum name ("very_easy", "VERY-EASY") or the
// display name ("Very Easy"), case-insensitively.
func ParseDifficulty(raw string) (Difficulty, error) {
	norm := strings.ToUpper(strings.TrimSpace(raw))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	d := Difficulty(norm)
	if !d.Valid() {
		return "", fmt.Errorf("task: unknown difficulty %q", raw)
	}
	return d, nil
}
