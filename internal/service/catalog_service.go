package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/repository"
)

type catalogService struct {
	stages  repository.StageRepo
	tasks   repository.TaskRepo
	items   repository.ChecklistItemRepo
	timeout time.Duration
}

func NewCatalogService(stages repository.StageRepo, tasks repository.TaskRepo, items repository.ChecklistItemRepo, timeout time.Duration) CatalogService {
	return &catalogService{stages: stages, tasks: tasks, items: items, timeout: timeout}
}

func (s *catalogService) Stages(ctx context.Context) ([]*domain.Stage, error) {
	stages, err := withTimeout(ctx, s.timeout, s.stages.ListActive)
	if err != nil {
		return nil, fmt.Errorf("listing stages: %w", err)
	}
	return stages, nil
}

// TasksForCohort groups the cohort's active tasks by stage, each group in
// order_index order.
func (s *catalogService) TasksForCohort(ctx context.Context, cohort domain.CohortType) (map[domain.StageKey][]*domain.Task, error) {
	cohort = cohort.Normalize()
	tasks, err := withTimeout(ctx, s.timeout, func(ctx context.Context) ([]*domain.Task, error) {
		return s.tasks.ListActiveByCohort(ctx, cohort)
	})
	if err != nil {
		return nil, fmt.Errorf("listing tasks for %s: %w", cohort, err)
	}

	out := make(map[domain.StageKey][]*domain.Task)
	for _, t := range tasks {
		if !t.IsActive || !t.VisibleTo(cohort) {
			continue
		}
		out[t.StageKey] = append(out[t.StageKey], t)
	}
	for _, group := range out {
		slices.SortStableFunc(group, func(a, b *domain.Task) int { return a.OrderIndex - b.OrderIndex })
	}
	return out, nil
}

func (s *catalogService) ChecklistForCohort(ctx context.Context, cohort domain.CohortType) (map[string][]*domain.ChecklistItem, error) {
	cohort = cohort.Normalize()
	items, err := withTimeout(ctx, s.timeout, func(ctx context.Context) ([]*domain.ChecklistItem, error) {
		return s.items.ListByCohort(ctx, cohort)
	})
	if err != nil {
		return nil, fmt.Errorf("listing checklist for %s: %w", cohort, err)
	}
	out := make(map[string][]*domain.ChecklistItem)
	for _, item := range items {
		out[item.Category] = append(out[item.Category], item)
	}
	for _, group := range out {
		slices.SortStableFunc(group, func(a, b *domain.ChecklistItem) int { return a.OrderIndex - b.OrderIndex })
	}
	return out, nil
}
