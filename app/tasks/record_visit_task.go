package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/eyes-on-docs/app/usage"
)

type RecordVisitTask struct {
	Task
	Visit     usage.Visit
	visitRepo usage.VisitRepository
}

// NewRecordVisitTask fixes the visit id up front so that retries do not
// store the same visit twice.
func NewRecordVisitTask(visit usage.Visit, visitRepo usage.VisitRepository) *RecordVisitTask {
	task := NewTask(TaskTypeRecordVisit, visit.UserName)
	if visit.ID == "" {
		visit.ID = task.ID
	}

	return &RecordVisitTask{
		Task:      task,
		Visit:     visit,
		visitRepo: visitRepo,
	}
}

func (t *RecordVisitTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.visitRepo.RecordVisit(ctx, t.Visit); err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}

	slog.Debug("Task completed",
		"type", "RecordVisit",
		"user", t.Visit.UserName,
		"path", t.Visit.Path,
		"duration", t.GetDuration())

	return nil
}
