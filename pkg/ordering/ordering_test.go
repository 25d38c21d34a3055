package ordering

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tableflip.dev/nexday/pkg/task"
)

var base = time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)

func mk(id string, d task.Difficulty, created int, order int64, at *int) *task.Task {
	tk := &task.Task{
		ID:         id,
		Title:      id,
		Difficulty: d,
		Bucket:     task.Today,
		CreatedAt:  base.Add(time.Duration(created) * time.Minute),
		OrderKey:   order,
	}
	if at != nil {
		v := base.Add(time.Duration(*at) * time.Hour)
		tk.ScheduledTime = &v
	}
	return tk
}

func hour(h int) *int { return &h }

func ids(tasks []*task.Task) []string {
	out := make([]string, len(tasks))
	for i, tk := range tasks {
		out[i] = tk.ID
	}
	return out
}

func fixture() []*task.Task {
	return []*task.Task{
		mk("a", task.Easy, 1, 3, hour(5)),
		mk("b", task.VeryHard, 2, 1, nil),
		mk("c", task.Medium, 3, 2, hour(2)),
		mk("d", task.Easy, 4, 4, nil),
		mk("e", task.VeryEasy, 5, 5, hour(9)),
	}
}

func TestSortModes(t *testing.T) {
	cases := []struct {
		mode    Mode
		reverse bool
		want    []string
	}{
		{Manual, false, []string{"b", "c", "a", "d", "e"}},
		{Manual, true, []string{"e", "d", "a", "c", "b"}},
		{Difficulty, false, []string{"b", "c", "a", "d", "e"}},
		{Difficulty, true, []string{"e", "a", "d", "c", "b"}},
		{Time, false, []string{"c", "a", "e", "b", "d"}},
		{Time, true, []string{"e", "a", "c", "b", "d"}},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			tasks := fixture()
			Sort(tasks, tc.mode, tc.reverse)
			assert.Equal(t, tc.want, ids(tasks), "reverse=%v", tc.reverse)
		})
	}
}

func TestSortIgnoresInputOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, mode := range Modes() {
		for _, reverse := range []bool{false, true} {
			want := fixture()
			Sort(want, mode, reverse)
			for i := 0; i < 20; i++ {
				got := fixture()
				rng.Shuffle(len(got), func(a, b int) { got[a], got[b] = got[b], got[a] })
				Sort(got, mode, reverse)
				require.Equal(t, ids(want), ids(got), "%s reverse=%v", mode, reverse)
			}
		}
	}
}

func TestUnknownModeFallsBackToManual(t *testing.T) {
	tasks := fixture()
	Sort(tasks, Mode("BOGUS"), false)
	assert.Equal(t, []string{"b", "c", "a", "d", "e"}, ids(tasks))

	m, err := ParseMode("time")
	require.NoError(t, err)
	assert.Equal(t, Time, m)
	_, err = ParseMode("alphabetical")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys, err := Keys([]string{"a", "b", "c"}, []string{"c", "a", "b"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"c": 1, "a": 2, "b": 3}, keys)

	_, err = Keys([]string{"a", "b"}, []string{"a"})
	assert.ErrorIs(t, err, ErrNotPermutation)
	_, err = Keys([]string{"a", "b"}, []string{"a", "a"})
	assert.ErrorIs(t, err, ErrNotPermutation)
	_, err = Keys([]string{"a", "b"}, []string{"a", "z"})
	assert.ErrorIs(t, err, ErrNotPermutation)
}
