package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type taskProgressRow struct {
	UserID      string `db:"user_id"`
	TaskID      string `db:"task_id"`
	Status      string `db:"status"`
	CompletedAt string `db:"completed_at"`
}

// SQLTaskProgressRepo implements TaskProgressRepo and publishes every
// effective write on the change feed.
type SQLTaskProgressRepo struct {
	db   db.DBTX
	feed *ChangeFeed
}

func NewSQLTaskProgressRepo(conn db.DBTX, feed *ChangeFeed) *SQLTaskProgressRepo {
	return &SQLTaskProgressRepo{db: conn, feed: feed}
}

func (r *SQLTaskProgressRepo) ListByUser(ctx context.Context, userID string) ([]domain.TaskProgress, error) {
	var rows []taskProgressRow
	query := `SELECT user_id, task_id, status, completed_at FROM task_progress WHERE user_id = ? ORDER BY task_id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), userID); err != nil {
		return nil, fmt.Errorf("listing task progress: %w", Classify(err))
	}
	out := make([]domain.TaskProgress, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.TaskProgress{
			UserID:      row.UserID,
			TaskID:      row.TaskID,
			Status:      domain.ProgressStatus(row.Status),
			CompletedAt: parseTime(row.CompletedAt),
		})
	}
	return out, nil
}

// Upsert inserts a completion row. An existing row for the same
// (user, task) is left untouched, so the first completed_at wins.
func (r *SQLTaskProgressRepo) Upsert(ctx context.Context, p domain.TaskProgress) (bool, error) {
	status := p.Status
	if status == "" {
		status = domain.ProgressCompleted
	}
	query := `INSERT INTO task_progress (user_id, task_id, status, completed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, task_id) DO NOTHING`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), p.UserID, p.TaskID, string(status), formatTime(p.CompletedAt))
	if err != nil {
		return false, fmt.Errorf("upserting task progress: %w", Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading upsert result: %w", err)
	}
	if n > 0 {
		r.feed.Publish(ChangeEvent{Collection: CollectionTaskProgress, Op: OpInsert, UserID: p.UserID, Key: p.TaskID})
	}
	return n > 0, nil
}

func (r *SQLTaskProgressRepo) Delete(ctx context.Context, userID, taskID string) (bool, error) {
	query := `DELETE FROM task_progress WHERE user_id = ? AND task_id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), userID, taskID)
	if err != nil {
		return false, fmt.Errorf("deleting task progress: %w", Classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading delete result: %w", err)
	}
	if n > 0 {
		r.feed.Publish(ChangeEvent{Collection: CollectionTaskProgress, Op: OpDelete, UserID: userID, Key: taskID})
	}
	return n > 0, nil
}
