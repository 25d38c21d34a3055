package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"tableflip.dev/nexday/pkg/task"
)

func registerResources(srv *server.MCPServer, svc *Service) {
	registerDaysResource(srv, svc)
	registerProgressResource(srv, svc)
	registerSettingsResource(srv, svc)
	registerDayTemplate(srv, svc)
	registerTaskTemplate(srv, svc)
}

func registerDaysResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"nexday://days",
		"Days",
		mcp.WithResourceDescription("Yesterday, today and tomorrow with task counts."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		days, err := svc.Days(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{
			"days": days,
		})
	})
}

func registerProgressResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"nexday://progress",
		"Progress",
		mcp.WithResourceDescription("Level and XP totals."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		p, err := svc.Progress(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, p)
	})
}

func registerSettingsResource(srv *server.MCPServer, svc *Service) {
	resource := mcp.NewResource(
		"nexday://settings",
		"Settings",
		mcp.WithResourceDescription("Rollover, reminder and sort preferences."),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(resource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		s, err := svc.Settings(ctx)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, s)
	})
}

func registerDayTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"nexday://days/{day}",
		"Day Tasks",
		mcp.WithTemplateDescription("Tasks planned for a day, in the stored sort order."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		raw := argument(request, "day")
		if raw == "" {
			return nil, fmt.Errorf("day is required")
		}
		b, err := task.ParseBucket(raw)
		if err != nil {
			return nil, err
		}
		tasks, err := svc.ListTasks(ctx, b, "", false)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{
			"day":   b,
			"count": len(tasks),
			"tasks": tasks,
		})
	})
}

func registerTaskTemplate(srv *server.MCPServer, svc *Service) {
	template := mcp.NewResourceTemplate(
		"nexday://tasks/{id}",
		"Task Details",
		mcp.WithTemplateDescription("Detailed information about a single task."),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(template, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id := argument(request, "id")
		if id == "" {
			return nil, fmt.Errorf("task id is required")
		}
		dto, err := svc.TaskByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return encodeResourceJSON(request.Params.URI, map[string]any{
			"task": dto,
		})
	})
}

// argument reads a template variable, which arrives as a string or a
// single-element slice depending on the matcher.
func argument(request mcp.ReadResourceRequest, name string) string {
	switch v := request.Params.Arguments[name].(type) {
	case string:
		return v
	case []string:
		if len(v) > 0 {
			return v[0]
		}
	}
	return ""
}

func encodeResourceJSON(uri string, payload any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
