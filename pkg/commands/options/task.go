package options

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/task"
	"tableflip.dev/nexday/pkg/timeutil"
)

// TaskOptions
type TaskOptions struct {
	Description string
	Difficulty  string
	Day         string
	Today       bool
	At          string
	In          string
}

func AddTaskArgs(cmd *cobra.Command, o *TaskOptions) {
	cmd.Flags().StringVarP(&o.Description, "description", "d", "",
		"Longer description of the task.")
	cmd.Flags().StringVarP(&o.Difficulty, "difficulty", "x", "",
		"One of very_easy, easy, medium, hard or very_hard.")
	cmd.Flags().StringVarP(&o.At, "at", "a", "",
		`Scheduled time, example: --at=14:30 or --at="2020-02-28 09:00".`)
	cmd.Flags().StringVar(&o.In, "in", "",
		`Schedule relative to now, example: --in=90m.`)
}

func AddDayArgs(cmd *cobra.Command, o *TaskOptions) {
	cmd.Flags().StringVar(&o.Day, "day", "",
		"Day to plan for, today or tomorrow (default tomorrow).")
	cmd.Flags().BoolVarP(&o.Today, "today", "t", false,
		"Plan for today. Shorthand for --day=today.")
}

// GetDifficulty returns the parsed difficulty, or nil when unset.
func (o *TaskOptions) GetDifficulty() (*task.Difficulty, error) {
	if strings.TrimSpace(o.Difficulty) == "" {
		return nil, nil
	}
	d, err := task.ParseDifficulty(o.Difficulty)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// GetDay returns the chosen bucket, or "" to let the store default it.
func (o *TaskOptions) GetDay() (task.Bucket, error) {
	if o.Today {
		if o.Day != "" && !strings.EqualFold(o.Day, string(task.Today)) {
			return "", errors.New("--today conflicts with --day")
		}
		return task.Today, nil
	}
	if o.Day == "" {
		return "", nil
	}
	return task.ParseBucket(o.Day)
}

// GetAt resolves --at or --in against now. It returns nil when neither is set.
// unset is true for --at=none.
func (o *TaskOptions) GetAt(now time.Time) (at *time.Time, unset bool, err error) {
	if o.At != "" && o.In != "" {
		return nil, false, errors.New("--at and --in are mutually exclusive")
	}
	switch {
	case strings.EqualFold(strings.TrimSpace(o.At), "none"):
		return nil, true, nil
	case o.At != "":
		t, err := task.ParseTime(o.At, now)
		if err != nil {
			return nil, false, err
		}
		return &t, false, nil
	case o.In != "":
		d, _, err := timeutil.ParseOffset(o.In)
		if err != nil {
			return nil, false, err
		}
		t := now.Add(d)
		return &t, false, nil
	}
	return nil, false, nil
}
