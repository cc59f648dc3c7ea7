package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type editionRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	CohortType string         `db:"cohort_type"`
	StartDate  sql.NullString `db:"start_date"`
	EndDate    sql.NullString `db:"end_date"`
	Timezone   string         `db:"timezone"`
	CreatedAt  string         `db:"created_at"`
}

// SQLEditionRepo implements EditionRepo.
type SQLEditionRepo struct {
	db db.DBTX
}

func NewSQLEditionRepo(conn db.DBTX) *SQLEditionRepo {
	return &SQLEditionRepo{db: conn}
}

func (r *SQLEditionRepo) GetByID(ctx context.Context, id string) (*domain.Edition, error) {
	var row editionRow
	query := `SELECT id, name, cohort_type, start_date, end_date, timezone, created_at FROM editions WHERE id = ?`
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("edition %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting edition: %w", Classify(err))
	}
	return &domain.Edition{
		ID:         row.ID,
		Name:       row.Name,
		CohortType: domain.CohortType(row.CohortType),
		StartDate:  parseNullableTime(row.StartDate, dateLayout),
		EndDate:    parseNullableTime(row.EndDate, dateLayout),
		Timezone:   row.Timezone,
		CreatedAt:  parseTime(row.CreatedAt),
	}, nil
}

func (r *SQLEditionRepo) Upsert(ctx context.Context, e *domain.Edition) error {
	createdAt := nowUTC()
	if !e.CreatedAt.IsZero() {
		createdAt = formatTime(e.CreatedAt)
	}
	query := `INSERT INTO editions (id, name, cohort_type, start_date, end_date, timezone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			cohort_type = excluded.cohort_type,
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			timezone = excluded.timezone`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		e.ID, e.Name, string(e.CohortType),
		nullableDate(e.StartDate), nullableDate(e.EndDate), e.Timezone, createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting edition: %w", Classify(err))
	}
	return nil
}

// nullableDate stores a calendar date without shifting it through UTC.
func nullableDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}
