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

const taskColumns = `t.id, t.stage_key, t.title, t.description, t.auto_complete_field,
	t.linked_checklist_category, t.is_required, t.is_active, t.due_days_offset,
	t.order_index, t.created_at, t.updated_at`

type taskRow struct {
	ID                      string         `db:"id"`
	StageKey                string         `db:"stage_key"`
	Title                   string         `db:"title"`
	Description             string         `db:"description"`
	AutoCompleteField       sql.NullString `db:"auto_complete_field"`
	LinkedChecklistCategory sql.NullString `db:"linked_checklist_category"`
	IsRequired              int            `db:"is_required"`
	IsActive                int            `db:"is_active"`
	DueDaysOffset           sql.NullInt64  `db:"due_days_offset"`
	OrderIndex              int            `db:"order_index"`
	CreatedAt               string         `db:"created_at"`
	UpdatedAt               string         `db:"updated_at"`
}

// toDomain keeps an unrecognised auto-complete field as-is; the evaluator
// treats unknown facts as unsatisfied.
func (r taskRow) toDomain() *domain.Task {
	t := &domain.Task{
		ID:                      r.ID,
		StageKey:                domain.StageKey(r.StageKey),
		Title:                   r.Title,
		Description:             r.Description,
		LinkedChecklistCategory: nullStringPtr(r.LinkedChecklistCategory),
		IsRequired:              intToBool(r.IsRequired),
		IsActive:                intToBool(r.IsActive),
		DueDaysOffset:           nullIntPtr(r.DueDaysOffset),
		OrderIndex:              r.OrderIndex,
		CreatedAt:               parseTime(r.CreatedAt),
		UpdatedAt:               parseTime(r.UpdatedAt),
	}
	if r.AutoCompleteField.Valid && r.AutoCompleteField.String != "" {
		f := domain.FactRef(r.AutoCompleteField.String)
		t.AutoCompleteFact = &f
	}
	return t
}

type taskCohortRow struct {
	TaskID     string `db:"task_id"`
	CohortType string `db:"cohort_type"`
}

// SQLTaskRepo implements TaskRepo. Cohort visibility lives in task_cohorts.
type SQLTaskRepo struct {
	db db.DBTX
}

func NewSQLTaskRepo(conn db.DBTX) *SQLTaskRepo {
	return &SQLTaskRepo{db: conn}
}

func (r *SQLTaskRepo) ListActiveByCohort(ctx context.Context, cohort domain.CohortType) ([]*domain.Task, error) {
	var rows []taskRow
	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN task_cohorts c ON c.task_id = t.id
		WHERE c.cohort_type = ? AND t.is_active = 1
		ORDER BY t.stage_key, t.order_index, t.id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), string(cohort)); err != nil {
		return nil, fmt.Errorf("listing tasks by cohort: %w", Classify(err))
	}
	tasks := make([]*domain.Task, 0, len(rows))
	for _, row := range rows {
		tasks = append(tasks, row.toDomain())
	}
	if err := r.attachCohorts(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *SQLTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var row taskRow
	query := `SELECT ` + taskColumns + ` FROM tasks t WHERE t.id = ?`
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting task: %w", Classify(err))
	}
	task := row.toDomain()
	if err := r.attachCohorts(ctx, []*domain.Task{task}); err != nil {
		return nil, err
	}
	return task, nil
}

// Upsert writes the task row and replaces its cohort set. Callers that need
// both writes to land together run it inside a unit of work.
func (r *SQLTaskRepo) Upsert(ctx context.Context, t *domain.Task) error {
	now := nowUTC()
	createdAt := now
	if !t.CreatedAt.IsZero() {
		createdAt = formatTime(t.CreatedAt)
	}
	var fact any
	if t.AutoCompleteFact != nil {
		fact = string(*t.AutoCompleteFact)
	}
	query := `INSERT INTO tasks (id, stage_key, title, description, auto_complete_field,
			linked_checklist_category, is_required, is_active, due_days_offset, order_index,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			stage_key = excluded.stage_key,
			title = excluded.title,
			description = excluded.description,
			auto_complete_field = excluded.auto_complete_field,
			linked_checklist_category = excluded.linked_checklist_category,
			is_required = excluded.is_required,
			is_active = excluded.is_active,
			due_days_offset = excluded.due_days_offset,
			order_index = excluded.order_index,
			updated_at = excluded.updated_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		t.ID, string(t.StageKey), t.Title, t.Description, fact,
		nullableStringToValue(t.LinkedChecklistCategory), boolToInt(t.IsRequired), boolToInt(t.IsActive),
		nullableIntToValue(t.DueDaysOffset), t.OrderIndex, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upserting task: %w", Classify(err))
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM task_cohorts WHERE task_id = ?`), t.ID); err != nil {
		return fmt.Errorf("clearing task cohorts: %w", Classify(err))
	}
	for _, c := range t.CohortTypes {
		_, err := r.db.ExecContext(ctx,
			r.db.Rebind(`INSERT INTO task_cohorts (task_id, cohort_type) VALUES (?, ?) ON CONFLICT (task_id, cohort_type) DO NOTHING`),
			t.ID, string(c))
		if err != nil {
			return fmt.Errorf("inserting task cohort: %w", Classify(err))
		}
	}
	return nil
}

func (r *SQLTaskRepo) attachCohorts(ctx context.Context, tasks []*domain.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tasks))
	byID := make(map[string]*domain.Task, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}
	query, args, err := sqlx.In(`SELECT task_id, cohort_type FROM task_cohorts WHERE task_id IN (?) ORDER BY task_id, cohort_type`, ids)
	if err != nil {
		return fmt.Errorf("building task cohort query: %w", err)
	}
	var rows []taskCohortRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("listing task cohorts: %w", Classify(err))
	}
	for _, row := range rows {
		if t, ok := byID[row.TaskID]; ok {
			t.CohortTypes = append(t.CohortTypes, domain.CohortType(row.CohortType))
		}
	}
	return nil
}
