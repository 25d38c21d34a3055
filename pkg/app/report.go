package app

import (
	"context"
	"sort"
	"time"

	"tableflip.dev/nexday/pkg/progression"
	"tableflip.dev/nexday/pkg/store"
	"tableflip.dev/nexday/pkg/task"
)

// ReportItem captures a completed task and the XP it earned.
type ReportItem struct {
	Task        *task.Task `json:"task"`
	CompletedAt time.Time  `json:"completedAt"`
	XP          int        `json:"xp"`
}

// ReportSection groups completed tasks by bucket.
type ReportSection struct {
	Bucket task.Bucket  `json:"dayCategory"`
	Items  []ReportItem `json:"items"`
	XP     int          `json:"xp"`
}

// ReportResult is a completed-tasks report for a time window.
type ReportResult struct {
	Since    time.Time       `json:"since"`
	Until    time.Time       `json:"until"`
	Sections []ReportSection `json:"sections,omitempty"`
	Total    int             `json:"total"`
	XP       int             `json:"xp"`
}

// Report returns tasks completed between since and until, grouped by bucket
// from left to right and ordered by completion time.
func (s *Service) Report(ctx context.Context, since, until time.Time) (ReportResult, error) {
	if since.After(until) {
		since, until = until, since
	}
	res := ReportResult{Since: since, Until: until}
	err := s.view(ctx, func(tx store.Tx) error {
		for _, b := range task.Buckets() {
			tasks, err := tx.Bucket(b)
			if err != nil {
				return err
			}
			section := ReportSection{Bucket: b}
			for _, t := range tasks {
				if !t.IsCompleted || t.CompletedAt == nil {
					continue
				}
				at := *t.CompletedAt
				if at.Before(since) || at.After(until) {
					continue
				}
				xp := progression.XPDelta(t.Difficulty)
				section.Items = append(section.Items, ReportItem{Task: t, CompletedAt: at, XP: xp})
				section.XP += xp
			}
			if len(section.Items) == 0 {
				continue
			}
			sortByCompletion(section.Items)
			res.Sections = append(res.Sections, section)
			res.Total += len(section.Items)
			res.XP += section.XP
		}
		return nil
	})
	return res, err
}

func sortByCompletion(items []ReportItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CompletedAt.Before(items[j].CompletedAt)
	})
}
