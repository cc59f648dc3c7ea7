package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type stageRow struct {
	Key             string `db:"stage_key"`
	Title           string `db:"title"`
	OrderIndex      int    `db:"order_index"`
	DaysBeforeStart int    `db:"days_before_start"`
	DaysAfterStart  int    `db:"days_after_start"`
	IsActive        int    `db:"is_active"`
}

func (r stageRow) toDomain() *domain.Stage {
	return &domain.Stage{
		Key:             domain.StageKey(r.Key),
		Title:           r.Title,
		OrderIndex:      r.OrderIndex,
		DaysBeforeStart: r.DaysBeforeStart,
		DaysAfterStart:  r.DaysAfterStart,
		IsActive:        intToBool(r.IsActive),
	}
}

// SQLStageRepo implements StageRepo.
type SQLStageRepo struct {
	db db.DBTX
}

func NewSQLStageRepo(conn db.DBTX) *SQLStageRepo {
	return &SQLStageRepo{db: conn}
}

func (r *SQLStageRepo) ListActive(ctx context.Context) ([]*domain.Stage, error) {
	var rows []stageRow
	query := `SELECT stage_key, title, order_index, days_before_start, days_after_start, is_active
		FROM stages WHERE is_active = 1 ORDER BY order_index, stage_key`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query)); err != nil {
		return nil, fmt.Errorf("listing stages: %w", Classify(err))
	}
	stages := make([]*domain.Stage, 0, len(rows))
	for _, row := range rows {
		stages = append(stages, row.toDomain())
	}
	return stages, nil
}

func (r *SQLStageRepo) Upsert(ctx context.Context, s *domain.Stage) error {
	query := `INSERT INTO stages (stage_key, title, order_index, days_before_start, days_after_start, is_active)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (stage_key) DO UPDATE SET
			title = excluded.title,
			order_index = excluded.order_index,
			days_before_start = excluded.days_before_start,
			days_after_start = excluded.days_after_start,
			is_active = excluded.is_active`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		string(s.Key), s.Title, s.OrderIndex, s.DaysBeforeStart, s.DaysAfterStart, boolToInt(s.IsActive),
	)
	if err != nil {
		return fmt.Errorf("upserting stage: %w", Classify(err))
	}
	return nil
}
