package service

import (
	"context"
	"errors"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/importer"
	"github.com/alexanderramin/journey/internal/progress"
)

// ErrTaskNotFound is returned when a toggle names a task that is inactive,
// unknown, or not visible to the participant's cohort.
var ErrTaskNotFound = errors.New("task not found")

// CatalogService reads the admin-authored stage catalog.
type CatalogService interface {
	Stages(ctx context.Context) ([]*domain.Stage, error)
	TasksForCohort(ctx context.Context, cohort domain.CohortType) (map[domain.StageKey][]*domain.Task, error)
	ChecklistForCohort(ctx context.Context, cohort domain.CohortType) (map[string][]*domain.ChecklistItem, error)
}

// ChecklistBridge keeps a linked checklist category in step with the task
// that points at it.
type ChecklistBridge interface {
	MirrorTask(ctx context.Context, userID string, cohort domain.CohortType, category string, completed bool) (int, error)
	ToggleItem(ctx context.Context, userID, itemID string, checked bool) (bool, error)
	CategoryProgress(ctx context.Context, userID string, cohort domain.CohortType) (map[string]progress.CategoryProgress, error)
	CheckedItems(ctx context.Context, userID string) (map[string]bool, error)
}

// SkipReason explains why a toggle request wrote nothing.
type SkipReason string

const (
	SkipNone          SkipReason = ""
	SkipAutoCompleted SkipReason = "auto_completed"
)

// ToggleRequest is one completion change for one participant.
type ToggleRequest struct {
	UserID    string
	Cohort    domain.CohortType
	TaskID    string
	Completed bool
	Snapshot  progress.Snapshot
}

// ToggleResult reports what a toggle wrote. TaskChanged is false for an
// idempotent repeat; Mirrored counts checklist rows the bridge changed.
type ToggleResult struct {
	Skipped     SkipReason
	TaskChanged bool
	Mirrored    int
}

type LedgerService interface {
	Toggle(ctx context.Context, req ToggleRequest) (*ToggleResult, error)
	ManualCompletions(ctx context.Context, userID string) (map[string]bool, error)
	Snapshot(ctx context.Context, userID string, cohort domain.CohortType, facts domain.ProfileFacts) (progress.Snapshot, error)
}

// ImportResult holds the outcome of a catalog import.
type ImportResult struct {
	Stages         int
	Tasks          int
	ChecklistItems int
	Triggers       int
	Announcements  int
	Editions       int
	Participants   int
	Sessions       int
}

type ImportService interface {
	Import(ctx context.Context, filePath string) (*ImportResult, error)
	ImportFromSchema(ctx context.Context, schema *importer.CatalogSchema) (*ImportResult, error)
}
