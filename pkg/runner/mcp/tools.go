package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/nexday/pkg/ordering"
	"tableflip.dev/nexday/pkg/settings"
	"tableflip.dev/nexday/pkg/task"
	"tableflip.dev/nexday/pkg/timeutil"
)

var (
	dayEnum        = []string{"YESTERDAY", "TODAY", "TOMORROW"}
	difficultyEnum = []string{"VERY_EASY", "EASY", "MEDIUM", "HARD", "VERY_HARD"}
	sortEnum       = []string{"MANUAL", "DIFFICULTY", "TIME"}
)

func registerTools(srv *server.MCPServer, svc *Service) {
	registerCreateTaskTool(srv, svc)
	registerUpdateTaskTool(srv, svc)
	registerDeleteTaskTool(srv, svc)
	registerCompleteTaskTool(srv, svc, true)
	registerCompleteTaskTool(srv, svc, false)
	registerMoveTaskTool(srv, svc)
	registerReorderTool(srv, svc)
	registerListTasksTool(srv, svc)
	registerGetTaskTool(srv, svc)
	registerProgressTool(srv, svc)
	registerUpdateSettingsTool(srv, svc)
	registerRolloverTool(srv, svc)
	registerReportTool(srv, svc)
}

func registerCreateTaskTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"create_task",
		mcp.WithDescription("Create a task for today or tomorrow."),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Task title, at most 100 characters."),
		),
		mcp.WithString("description",
			mcp.Description("Optional longer description."),
		),
		mcp.WithString("difficulty",
			mcp.Description("Difficulty, which sets the XP awarded on completion (default MEDIUM)."),
			mcp.Enum(difficultyEnum...),
		),
		mcp.WithString("day",
			mcp.Description("Day to plan the task for (default TOMORROW)."),
			mcp.Enum("TODAY", "TOMORROW"),
		),
		mcp.WithString("scheduled",
			mcp.Description("Optional RFC3339 timestamp or HH:MM for a reminder."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Difficulty  string `json:"difficulty"`
			Day         string `json:"day"`
			Scheduled   string `json:"scheduled"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		opts := CreateTaskOptions{
			Title:       args.Title,
			Description: args.Description,
		}
		if args.Difficulty != "" {
			d, err := task.ParseDifficulty(args.Difficulty)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Difficulty = d
		}
		if args.Day != "" {
			b, err := task.ParseBucket(args.Day)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Bucket = b
		}
		if strings.TrimSpace(args.Scheduled) != "" {
			when, err := task.ParseTime(args.Scheduled, time.Now())
			if err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("invalid scheduled value: %v", err)), nil
			}
			opts.Scheduled = &when
		}

		dto, err := svc.CreateTask(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerUpdateTaskTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"update_task",
		mcp.WithDescription("Edit a task's title, description, difficulty or scheduled time."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task identifier or unique prefix."),
		),
		mcp.WithString("title", mcp.Description("New title.")),
		mcp.WithString("description", mcp.Description("New description; empty clears it.")),
		mcp.WithString("difficulty",
			mcp.Description("New difficulty."),
			mcp.Enum(difficultyEnum...),
		),
		mcp.WithString("scheduled",
			mcp.Description("New RFC3339 timestamp or HH:MM; \"none\" clears it."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			ID          string  `json:"id"`
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Difficulty  *string `json:"difficulty"`
			Scheduled   *string `json:"scheduled"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		if args.ID == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		opts := UpdateTaskOptions{
			ID:          args.ID,
			Title:       args.Title,
			Description: args.Description,
		}
		if args.Difficulty != nil {
			d, err := task.ParseDifficulty(*args.Difficulty)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			opts.Difficulty = &d
		}
		if args.Scheduled != nil {
			switch v := strings.TrimSpace(*args.Scheduled); strings.ToLower(v) {
			case "", "none":
				opts.ClearScheduled = true
			default:
				when, err := task.ParseTime(v, time.Now())
				if err != nil {
					return mcp.NewToolResultError(fmt.Sprintf("invalid scheduled value: %v", err)), nil
				}
				opts.Scheduled = &when
			}
		}

		dto, err := svc.UpdateTask(ctx, opts)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerDeleteTaskTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"delete_task",
		mcp.WithDescription("Delete a task. XP already earned is kept."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task identifier or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		deleted, err := svc.DeleteTask(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{"deleted": deleted})
	})
}

func registerCompleteTaskTool(srv *server.MCPServer, svc *Service, done bool) {
	name, desc := "complete_task", "Mark a task completed and award its XP."
	if !done {
		name, desc = "uncomplete_task", "Reopen a completed task and take back its XP."
	}
	tool := mcp.NewTool(
		name,
		mcp.WithDescription(desc),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task identifier or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.SetCompleted(ctx, id, done)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerMoveTaskTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"move_task",
		mcp.WithDescription("Move a task to another day, or one day left or right."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task identifier or unique prefix."),
		),
		mcp.WithString("day",
			mcp.Description("Destination day."),
			mcp.Enum(dayEnum...),
		),
		mcp.WithString("direction",
			mcp.Description("Swipe direction, used when day is not given."),
			mcp.Enum("LEFT", "RIGHT"),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, moved, err := svc.MoveTask(ctx, id, request.GetString("day", ""), request.GetString("direction", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"task":  dto,
			"moved": moved,
		})
	})
}

func registerReorderTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"reorder_tasks",
		mcp.WithDescription("Set the manual order of a day. Every task of the day must be listed once."),
		mcp.WithString("day",
			mcp.Required(),
			mcp.Enum(dayEnum...),
		),
		mcp.WithArray("ids",
			mcp.Required(),
			mcp.Description("Full task identifiers in the desired order."),
			mcp.Items(map[string]any{"type": "string"}),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Day string   `json:"day"`
			IDs []string `json:"ids"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		b, err := task.ParseBucket(args.Day)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tasks, err := svc.Reorder(ctx, b, args.IDs)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"day":   b,
			"tasks": tasks,
		})
	})
}

func registerListTasksTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"list_tasks",
		mcp.WithDescription("List the tasks of a day."),
		mcp.WithString("day",
			mcp.Required(),
			mcp.Enum(dayEnum...),
		),
		mcp.WithString("sort",
			mcp.Description("Sort mode; the stored preference is used when omitted."),
			mcp.Enum(sortEnum...),
		),
		mcp.WithBoolean("reverse",
			mcp.Description("Reverse the sort direction."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Day     string `json:"day"`
			Sort    string `json:"sort"`
			Reverse bool   `json:"reverse"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		b, err := task.ParseBucket(args.Day)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		tasks, err := svc.ListTasks(ctx, b, args.Sort, args.Reverse)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(map[string]any{
			"day":   b,
			"tasks": tasks,
			"count": len(tasks),
		})
	})
}

func registerGetTaskTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_task",
		mcp.WithDescription("Fetch a single task by identifier."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Task identifier or unique prefix."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		dto, err := svc.TaskByID(ctx, id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(dto)
	})
}

func registerProgressTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"get_progress",
		mcp.WithDescription("Current level, total XP and XP to the next level."),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		p, err := svc.Progress(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(p)
	})
}

func registerUpdateSettingsTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"update_settings",
		mcp.WithDescription("Change preferences. Omitted fields are left unchanged."),
		mcp.WithBoolean("rolloverEnabled"),
		mcp.WithString("rolloverTime", mcp.Description("Daily rollover time as HH:MM.")),
		mcp.WithBoolean("notificationsEnabled"),
		mcp.WithBoolean("taskRemindersEnabled"),
		mcp.WithString("dailyReminderTime", mcp.Description("HH:MM, or \"off\" to disable.")),
		mcp.WithString("sort", mcp.Enum(sortEnum...)),
		mcp.WithBoolean("reverse"),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			RolloverEnabled      *bool   `json:"rolloverEnabled"`
			RolloverTime         *string `json:"rolloverTime"`
			NotificationsEnabled *bool   `json:"notificationsEnabled"`
			TaskRemindersEnabled *bool   `json:"taskRemindersEnabled"`
			DailyReminderTime    *string `json:"dailyReminderTime"`
			Sort                 *string `json:"sort"`
			Reverse              *bool   `json:"reverse"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		set, err := svc.UpdateSettings(ctx, func(s *settings.Settings) error {
			if args.RolloverEnabled != nil {
				s.RolloverEnabled = *args.RolloverEnabled
			}
			if args.RolloverTime != nil {
				h, m, err := timeutil.ParseClock(*args.RolloverTime)
				if err != nil {
					return err
				}
				s.RolloverHour, s.RolloverMinute = h, m
			}
			if args.NotificationsEnabled != nil {
				s.NotificationsEnabled = *args.NotificationsEnabled
			}
			if args.TaskRemindersEnabled != nil {
				s.TaskRemindersEnabled = *args.TaskRemindersEnabled
			}
			if args.DailyReminderTime != nil {
				switch v := strings.TrimSpace(*args.DailyReminderTime); strings.ToLower(v) {
				case "", "off", "none":
					s.DailyReminderTime = nil
				default:
					at, err := settings.ParseReminderTime(v)
					if err != nil {
						return err
					}
					s.DailyReminderTime = &at
				}
			}
			if args.Sort != nil {
				mode, err := ordering.ParseMode(*args.Sort)
				if err != nil {
					return err
				}
				s.SortType = mode
			}
			if args.Reverse != nil {
				s.ReverseSort = *args.Reverse
			}
			return nil
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(set)
	})
}

func registerRolloverTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"run_rollover",
		mcp.WithDescription("Shift the window now: today's tasks become yesterday's and tomorrow's become today's."),
		mcp.WithBoolean("force",
			mcp.Description("Run even if this period already rolled over."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args struct {
			Force bool `json:"force"`
		}
		if err := request.BindArguments(&args); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		res, err := svc.Rollover(ctx, args.Force)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(res)
	})
}

func registerReportTool(srv *server.MCPServer, svc *Service) {
	tool := mcp.NewTool(
		"completed_report",
		mcp.WithDescription("Tasks completed recently, grouped by day with XP earned."),
		mcp.WithString("window",
			mcp.Description("How far back to look, such as 24h or 2d (default 1d)."),
		),
	)

	srv.AddTool(tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, _, err := timeutil.ParseOffset(request.GetString("window", "1d"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res, err := svc.Report(ctx, window)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toJSONResult(res)
	})
}

func toJSONResult(data any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal error: %v", err)), nil
	}
	return result, nil
}
