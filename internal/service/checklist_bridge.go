package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/repository"
)

// defaultFanOut bounds concurrent checklist writes for one category.
const defaultFanOut = 4

// ItemFailure is one checklist row the bridge could not write.
type ItemFailure struct {
	ItemID string
	Err    error
}

// PartialSyncError reports a fan-out in which some item writes landed and
// others did not. Nothing is rolled back; the next authoritative read shows
// the true category state.
//
// TaskWritten is set by the ledger when the linked task row landed before
// the mirror failed, so even a mirror with no successful item is partial.
type PartialSyncError struct {
	Category    string
	Succeeded   int
	Failed      []ItemFailure
	TaskWritten bool
}

func (e *PartialSyncError) Error() string {
	if e.Succeeded == 0 && e.TaskWritten {
		return fmt.Sprintf("task progress written but checklist %q not synced: %d failed (%s)",
			e.Category, len(e.Failed), failedIDs(e.Failed))
	}
	return fmt.Sprintf("checklist %q partially synced: %d written, %d failed (%s)",
		e.Category, e.Succeeded, len(e.Failed), failedIDs(e.Failed))
}

func (e *PartialSyncError) Unwrap() []error { return failureErrs(e.Failed) }

// MirrorError reports a fan-out in which no item write landed.
type MirrorError struct {
	Category string
	Failed   []ItemFailure
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("mirroring checklist %q: %v", e.Category, errors.Join(e.Unwrap()...))
}

func (e *MirrorError) Unwrap() []error { return failureErrs(e.Failed) }

func failedIDs(failed []ItemFailure) string {
	ids := make([]string, 0, len(failed))
	for _, f := range failed {
		ids = append(ids, f.ItemID)
	}
	return strings.Join(ids, ", ")
}

func failureErrs(failed []ItemFailure) []error {
	errs := make([]error, 0, len(failed))
	for _, f := range failed {
		errs = append(errs, fmt.Errorf("item %s: %w", f.ItemID, f.Err))
	}
	return errs
}

// IsPartialSync reports whether err carries a PartialSyncError.
func IsPartialSync(err error) bool {
	var p *PartialSyncError
	return errors.As(err, &p)
}

type checklistBridge struct {
	items    repository.ChecklistItemRepo
	progress repository.ChecklistProgressRepo
	timeout  time.Duration
	limit    int
	now      func() time.Time
	observer UseCaseObserver
}

func NewChecklistBridge(
	items repository.ChecklistItemRepo,
	progress repository.ChecklistProgressRepo,
	timeout time.Duration,
	observers ...UseCaseObserver,
) ChecklistBridge {
	return &checklistBridge{
		items:    items,
		progress: progress,
		timeout:  timeout,
		limit:    defaultFanOut,
		now:      func() time.Time { return time.Now().UTC() },
		observer: useCaseObserverOrNoop(observers),
	}
}

// MirrorTask checks or unchecks every item of the category for the user and
// returns how many rows actually changed. Existing rows are left alone on
// check, so repeats are no-ops. When every write fails the error is the
// item errors as a *MirrorError; when only some fail it is a
// *PartialSyncError.
func (b *checklistBridge) MirrorTask(ctx context.Context, userID string, cohort domain.CohortType, category string, completed bool) (int, error) {
	items, err := withTimeout(ctx, b.timeout, func(ctx context.Context) ([]*domain.ChecklistItem, error) {
		return b.items.ListByCategory(ctx, category, cohort.Normalize())
	})
	if err != nil {
		return 0, fmt.Errorf("listing checklist %q: %w", category, err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	var (
		mu        sync.Mutex
		changed   int
		succeeded int
		failed    []ItemFailure
	)
	checkedAt := b.now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.limit)
	for _, item := range items {
		g.Go(func() error {
			did, err := b.setItem(gctx, userID, item.ID, completed, checkedAt)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = append(failed, ItemFailure{ItemID: item.ID, Err: err})
				return nil
			}
			succeeded++
			if did {
				changed++
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) == 0 {
		return changed, nil
	}
	if succeeded == 0 {
		return 0, &MirrorError{Category: category, Failed: failed}
	}

	partial := &PartialSyncError{Category: category, Succeeded: succeeded, Failed: failed}
	warn(ctx, b.observer, "checklist-mirror", partial, map[string]any{
		"user":      userID,
		"category":  category,
		"succeeded": succeeded,
		"failed":    len(failed),
	})
	return changed, partial
}

func (b *checklistBridge) setItem(ctx context.Context, userID, itemID string, checked bool, at time.Time) (bool, error) {
	return withTimeout(ctx, b.timeout, func(ctx context.Context) (bool, error) {
		if checked {
			return b.progress.Upsert(ctx, domain.ChecklistProgress{UserID: userID, ChecklistItemID: itemID, CheckedAt: at})
		}
		return b.progress.Delete(ctx, userID, itemID)
	})
}

// ToggleItem is the standalone checklist path. It never writes task
// progress; a linked task picks up the change on the next read.
func (b *checklistBridge) ToggleItem(ctx context.Context, userID, itemID string, checked bool) (bool, error) {
	if _, err := withTimeout(ctx, b.timeout, func(ctx context.Context) (*domain.ChecklistItem, error) {
		return b.items.GetByID(ctx, itemID)
	}); err != nil {
		return false, fmt.Errorf("loading checklist item: %w", err)
	}
	changed, err := b.setItem(ctx, userID, itemID, checked, b.now())
	if err != nil {
		return false, fmt.Errorf("toggling checklist item %s: %w", itemID, err)
	}
	return changed, nil
}

func (b *checklistBridge) CategoryProgress(ctx context.Context, userID string, cohort domain.CohortType) (map[string]progress.CategoryProgress, error) {
	items, err := withTimeout(ctx, b.timeout, func(ctx context.Context) ([]*domain.ChecklistItem, error) {
		return b.items.ListByCohort(ctx, cohort.Normalize())
	})
	if err != nil {
		return nil, fmt.Errorf("listing checklist: %w", err)
	}
	checked, err := b.CheckedItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.CategoryProgressFor(items, checked), nil
}

// CheckedItems returns the ids of every item the user has checked.
func (b *checklistBridge) CheckedItems(ctx context.Context, userID string) (map[string]bool, error) {
	rows, err := withTimeout(ctx, b.timeout, func(ctx context.Context) ([]domain.ChecklistProgress, error) {
		return b.progress.ListByUser(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("listing checklist progress: %w", err)
	}
	return checkedSet(rows), nil
}

func checkedSet(rows []domain.ChecklistProgress) map[string]bool {
	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		out[r.ChecklistItemID] = true
	}
	return out
}
