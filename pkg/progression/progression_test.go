package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/task"
)

func TestXPForLevel(t *testing.T) {
	cases := map[int]int{
		-3: 0,
		0:  0,
		1:  0,
		2:  2,
		3:  10,
		4:  22,
		5:  40,
		11: 250,
	}
	for level, want := range cases {
		assert.Equal(t, want, XPForLevel(level), "level %d", level)
	}
}

func TestXPForLevelStrictlyIncreasing(t *testing.T) {
	prevCost := -1
	for level := 2; level <= 1000; level++ {
		cost := XPForLevel(level) - XPForLevel(level-1)
		require.Greater(t, cost, prevCost, "level %d must cost more than level %d", level, level-1)
		prevCost = cost
	}
}

func TestLevelFromXPInverse(t *testing.T) {
	for level := 1; level <= 1000; level++ {
		require.Equal(t, level, LevelFromXP(XPForLevel(level)), "threshold of level %d", level)
		if level > 1 {
			require.Equal(t, level-1, LevelFromXP(XPForLevel(level)-1), "just below level %d", level)
		}
	}
}

func TestLevelAndRemainingNeverNegative(t *testing.T) {
	for xp := 0; xp <= 20000; xp++ {
		require.GreaterOrEqual(t, LevelFromXP(xp), 1, "xp %d", xp)
		require.GreaterOrEqual(t, XPToNextLevel(xp), 0, "xp %d", xp)
		require.LessOrEqual(t, XPForLevel(LevelFromXP(xp)), xp, "xp %d", xp)
	}
}

func TestLevelFromXPMatchesFormulaAwayFromBoundaries(t *testing.T) {
	// Mid-level totals agree with floor(sqrt(xp/2.5))+1.
	assert.Equal(t, 1, LevelFromXP(1))
	assert.Equal(t, 2, LevelFromXP(5))
	assert.Equal(t, 3, LevelFromXP(15))
	assert.Equal(t, 4, LevelFromXP(30))
	assert.Equal(t, 1, LevelFromXP(-10))
}

func TestMediumFromZeroLevelsUp(t *testing.T) {
	s := At(0 + XPDelta(task.Medium))
	assert.Equal(t, Snapshot{TotalXP: 3, CurrentLevel: 2, XPToNextLevel: 7}, s)
	assert.True(t, s.Consistent())
}

func TestXPDelta(t *testing.T) {
	got := make([]int, 0, 5)
	for _, d := range task.Difficulties() {
		got = append(got, XPDelta(d))
	}
	assert.Equal(t, []int{1, 2, 3, 5, 8}, got)
}

func TestSnapshotClampsNegative(t *testing.T) {
	assert.Equal(t, Snapshot{TotalXP: 0, CurrentLevel: 1, XPToNextLevel: 2}, At(-4))
	assert.False(t, Snapshot{TotalXP: 3, CurrentLevel: 1, XPToNextLevel: 0}.Consistent())
}
