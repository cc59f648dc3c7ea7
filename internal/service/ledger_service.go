package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/repository"
)

type ledgerService struct {
	tasks    repository.TaskRepo
	progress repository.TaskProgressRepo
	bridge   ChecklistBridge
	timeout  time.Duration
	now      func() time.Time
	observer UseCaseObserver
}

func NewLedgerService(
	tasks repository.TaskRepo,
	taskProgress repository.TaskProgressRepo,
	bridge ChecklistBridge,
	timeout time.Duration,
	observers ...UseCaseObserver,
) LedgerService {
	return &ledgerService{
		tasks:    tasks,
		progress: taskProgress,
		bridge:   bridge,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		observer: useCaseObserverOrNoop(observers),
	}
}

// Toggle records a manual completion change. Completing upserts the progress
// row and uncompleting deletes it, so repeats are harmless. A task already
// satisfied by a profile fact is skipped without a write. For a task linked
// to a checklist category the row is written first and then every item in
// the category is mirrored. Because the row is already written, any mirror
// failure is reported as a *PartialSyncError.
func (s *ledgerService) Toggle(ctx context.Context, req ToggleRequest) (result *ToggleResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"user":      req.UserID,
		"task":      req.TaskID,
		"completed": req.Completed,
	}
	defer func() {
		if result != nil {
			fields["skipped"] = string(result.Skipped)
			fields["mirrored"] = result.Mirrored
		}
		observe(ctx, s.observer, "toggle-task", startedAt, fields, &err)
	}()

	cohort := req.Cohort.Normalize()
	task, err := withTimeout(ctx, s.timeout, func(ctx context.Context) (*domain.Task, error) {
		return s.tasks.GetByID(ctx, req.TaskID)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, req.TaskID)
		}
		return nil, fmt.Errorf("loading task %s: %w", req.TaskID, err)
	}
	if !task.IsActive || !task.VisibleTo(cohort) {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, req.TaskID)
	}

	if !progress.IsManuallyToggleable(task, req.Snapshot) {
		return &ToggleResult{Skipped: SkipAutoCompleted}, nil
	}

	result = &ToggleResult{}
	result.TaskChanged, err = withTimeout(ctx, s.timeout, func(ctx context.Context) (bool, error) {
		if req.Completed {
			return s.progress.Upsert(ctx, domain.TaskProgress{
				UserID:      req.UserID,
				TaskID:      task.ID,
				Status:      domain.ProgressCompleted,
				CompletedAt: s.now(),
			})
		}
		return s.progress.Delete(ctx, req.UserID, task.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("writing task progress: %w", err)
	}

	if category := task.LinkedCategory(); category != "" {
		result.Mirrored, err = s.bridge.MirrorTask(ctx, req.UserID, cohort, category, req.Completed)
		var mirrorErr *MirrorError
		if errors.As(err, &mirrorErr) {
			// The task row already landed, so the store is part-way done.
			err = &PartialSyncError{Category: mirrorErr.Category, Failed: mirrorErr.Failed, TaskWritten: true}
			warn(ctx, s.observer, "checklist-mirror", err, map[string]any{
				"user":     req.UserID,
				"category": category,
				"failed":   len(mirrorErr.Failed),
			})
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

// ManualCompletions returns the task ids with a completed progress row.
func (s *ledgerService) ManualCompletions(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := withTimeout(ctx, s.timeout, func(ctx context.Context) ([]domain.TaskProgress, error) {
		return s.progress.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("listing task progress: %w", err)
	}
	return progress.ManualFromRows(rows), nil
}

// Snapshot reads everything completion depends on for the user.
func (s *ledgerService) Snapshot(ctx context.Context, userID string, cohort domain.CohortType, facts domain.ProfileFacts) (progress.Snapshot, error) {
	manual, err := s.ManualCompletions(ctx, userID)
	if err != nil {
		return progress.Snapshot{}, err
	}
	checklist, err := s.bridge.CategoryProgress(ctx, userID, cohort)
	if err != nil {
		return progress.Snapshot{}, err
	}
	return progress.Snapshot{Manual: manual, Facts: facts, Checklist: checklist}, nil
}
