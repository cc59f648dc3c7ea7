package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type checklistItemRow struct {
	ID         string `db:"id"`
	Category   string `db:"category"`
	CohortType string `db:"cohort_type"`
	Title      string `db:"title"`
	OrderIndex int    `db:"order_index"`
}

func (r checklistItemRow) toDomain() *domain.ChecklistItem {
	return &domain.ChecklistItem{
		ID:         r.ID,
		Category:   r.Category,
		CohortType: domain.CohortType(r.CohortType),
		Title:      r.Title,
		OrderIndex: r.OrderIndex,
	}
}

func toChecklistItems(rows []checklistItemRow) []*domain.ChecklistItem {
	items := make([]*domain.ChecklistItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toDomain())
	}
	return items
}

// SQLChecklistItemRepo implements ChecklistItemRepo.
type SQLChecklistItemRepo struct {
	db db.DBTX
}

func NewSQLChecklistItemRepo(conn db.DBTX) *SQLChecklistItemRepo {
	return &SQLChecklistItemRepo{db: conn}
}

func (r *SQLChecklistItemRepo) ListByCohort(ctx context.Context, cohort domain.CohortType) ([]*domain.ChecklistItem, error) {
	var rows []checklistItemRow
	query := `SELECT id, category, cohort_type, title, order_index
		FROM checklist_items WHERE cohort_type = ? ORDER BY category, order_index, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), string(cohort)); err != nil {
		return nil, fmt.Errorf("listing checklist items: %w", Classify(err))
	}
	return toChecklistItems(rows), nil
}

func (r *SQLChecklistItemRepo) ListByCategory(ctx context.Context, category string, cohort domain.CohortType) ([]*domain.ChecklistItem, error) {
	var rows []checklistItemRow
	query := `SELECT id, category, cohort_type, title, order_index
		FROM checklist_items WHERE category = ? AND cohort_type = ? ORDER BY order_index, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), category, string(cohort)); err != nil {
		return nil, fmt.Errorf("listing checklist category: %w", Classify(err))
	}
	return toChecklistItems(rows), nil
}

func (r *SQLChecklistItemRepo) GetByID(ctx context.Context, id string) (*domain.ChecklistItem, error) {
	var row checklistItemRow
	query := `SELECT id, category, cohort_type, title, order_index FROM checklist_items WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("checklist item %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting checklist item: %w", Classify(err))
	}
	return row.toDomain(), nil
}

func (r *SQLChecklistItemRepo) Upsert(ctx context.Context, item *domain.ChecklistItem) error {
	query := `INSERT INTO checklist_items (id, category, cohort_type, title, order_index)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			category = excluded.category,
			cohort_type = excluded.cohort_type,
			title = excluded.title,
			order_index = excluded.order_index`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		item.ID, item.Category, string(item.CohortType), item.Title, item.OrderIndex)
	if err != nil {
		return fmt.Errorf("upserting checklist item: %w", Classify(err))
	}
	return nil
}

type checklistProgressRow struct {
	UserID          string `db:"user_id"`
	ChecklistItemID string `db:"checklist_item_id"`
	CheckedAt       string `db:"checked_at"`
}

// SQLChecklistProgressRepo implements ChecklistProgressRepo and publishes
// every effective write on the change feed.
type SQLChecklistProgressRepo struct {
	db   db.DBTX
	feed *ChangeFeed
}

func NewSQLChecklistProgressRepo(conn db.DBTX, feed *ChangeFeed) *SQLChecklistProgressRepo {
	return &SQLChecklistProgressRepo{db: conn, feed: feed}
}

func (r *SQLChecklistProgressRepo) ListByUser(ctx context.Context, userID string) ([]domain.ChecklistProgress, error) {
	var rows []checklistProgressRow
	query := `SELECT user_id, checklist_item_id, checked_at FROM checklist_progress WHERE user_id = ? ORDER BY checklist_item_id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("listing checklist progress: %w", Classify(err))
	}
	out := make([]domain.ChecklistProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.ChecklistProgress{
			UserID:          row.UserID,
			ChecklistItemID: row.ChecklistItemID,
			CheckedAt:       parseTime(row.CheckedAt),
		})
	}
	return out, nil
}

// Upsert inserts a checked row, ignoring an existing one.
func (r *SQLChecklistProgressRepo) Upsert(ctx context.Context, p domain.ChecklistProgress) (bool, error) {
	query := `INSERT INTO checklist_progress (user_id, checklist_item_id, checked_at)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id, checklist_item_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), p.UserID, p.ChecklistItemID, formatTime(p.CheckedAt))
	if err != nil {
		return false, fmt.Errorf("upserting checklist progress: %w", Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading upsert result: %w", err)
	}
	if n > 0 {
		r.feed.Publish(ChangeEvent{Collection: CollectionChecklistProgress, Op: OpInsert, UserID: p.UserID, Key: p.ChecklistItemID})
	}
	return n > 0, nil
}

func (r *SQLChecklistProgressRepo) Delete(ctx context.Context, userID, itemID string) (bool, error) {
	query := `DELETE FROM checklist_progress WHERE user_id = ? AND checklist_item_id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, itemID)
	if err != nil {
		return false, fmt.Errorf("deleting checklist progress: %w", Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading delete result: %w", err)
	}
	if n > 0 {
		r.feed.Publish(ChangeEvent{Collection: CollectionChecklistProgress, Op: OpDelete, UserID: userID, Key: itemID})
	}
	return n > 0, nil
}
