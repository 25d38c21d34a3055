package commands

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/ordering"
	runner "tableflip.dev/nexday/pkg/runner/settings"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/timeutil"
)

func addSettings(topLevel *cobra.Command) {
	var (
		rollover      bool
		rolloverAt    string
		notifications bool
		reminders     bool
		dailyAt       string
		sort          string
		reverse       bool
		triggers      bool
	)

	cmd := &cobra.Command{
		Use:     "settings",
		Aliases: []string{"config", "prefs"},
		Short:   "Show or change preferences",
		Example: `
nexday settings
nexday settings --rollover-at 04:30
nexday settings --daily-reminder 08:00 --sort difficulty
nexday settings --daily-reminder off --triggers
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			var changes []func(*settings.Settings) error
			flags := cmd.Flags()

			if flags.Changed("rollover") {
				changes = append(changes, func(s *settings.Settings) error {
					s.RolloverEnabled = rollover
					return nil
				})
			}
			if flags.Changed("rollover-at") {
				h, m, err := timeutil.ParseClock(rolloverAt)
				if err != nil {
					return output.HandleError(err)
				}
				changes = append(changes, func(s *settings.Settings) error {
					s.RolloverHour, s.RolloverMinute = h, m
					return nil
				})
			}
			if flags.Changed("notifications") {
				changes = append(changes, func(s *settings.Settings) error {
					s.NotificationsEnabled = notifications
					return nil
				})
			}
			if flags.Changed("task-reminders") {
				changes = append(changes, func(s *settings.Settings) error {
					s.TaskRemindersEnabled = reminders
					return nil
				})
			}
			if flags.Changed("daily-reminder") {
				var at *string
				switch strings.ToLower(strings.TrimSpace(dailyAt)) {
				case "", "off", "none":
				default:
					v, err := settings.ParseReminderTime(dailyAt)
					if err != nil {
						return output.HandleError(err)
					}
					at = &v
				}
				changes = append(changes, func(s *settings.Settings) error {
					s.DailyReminderTime = at
					return nil
				})
			}
			if flags.Changed("sort") {
				mode, err := ordering.ParseMode(sort)
				if err != nil {
					return output.HandleError(err)
				}
				changes = append(changes, func(s *settings.Settings) error {
					s.SortType = mode
					return nil
				})
			}
			if flags.Changed("reverse") {
				changes = append(changes, func(s *settings.Settings) error {
					s.ReverseSort = reverse
					return nil
				})
			}

			e, err := load()
			if err != nil {
				return output.HandleError(err)
			}
			defer e.Close()

			s := runner.Settings{
				Changes: changes,
				Service: e.Service,
				Output:  e.Format,
				Out:     cmd.OutOrStdout(),
			}
			if triggers {
				s.Triggers = e.Triggers
			}
			err = s.Do(context.Background())
			return output.HandleError(err)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&rollover, "rollover", true, "Enable the daily rollover.")
	flags.StringVar(&rolloverAt, "rollover-at", "", "Daily rollover time, HH:MM.")
	flags.BoolVar(&notifications, "notifications", true, "Enable notifications.")
	flags.BoolVar(&reminders, "task-reminders", true, "Remind at each task's scheduled time.")
	flags.StringVar(&dailyAt, "daily-reminder", "", `Daily planning reminder time, HH:MM, or "off".`)
	flags.StringVar(&sort, "sort", "", "Default sort: manual, difficulty or time.")
	flags.BoolVar(&reverse, "reverse", false, "Reverse the default sort.")
	flags.BoolVar(&triggers, "triggers", false, "Also list the scheduled triggers.")

	topLevel.AddCommand(cmd)
}
