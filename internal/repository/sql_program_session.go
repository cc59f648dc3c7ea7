package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type programSessionRow struct {
	ID        string `db:"id"`
	EditionID string `db:"edition_id"`
	Title     string `db:"title"`
	StartsAt  string `db:"starts_at"`
	EndsAt    string `db:"ends_at"`
	Status    string `db:"status"`
}

// SQLProgramSessionRepo implements ProgramSessionRepo.
type SQLProgramSessionRepo struct {
	db db.DBTX
}

func NewSQLProgramSessionRepo(conn db.DBTX) *SQLProgramSessionRepo {
	return &SQLProgramSessionRepo{db: conn}
}

func (r *SQLProgramSessionRepo) ListByEdition(ctx context.Context, editionID string) ([]*domain.ProgramSession, error) {
	var rows []programSessionRow
	query := `SELECT id, edition_id, title, starts_at, ends_at, status
		FROM program_sessions WHERE edition_id = ? ORDER BY starts_at, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), editionID); err != nil {
		return nil, fmt.Errorf("listing program sessions: %w", Classify(err))
	}
	out := make([]*domain.ProgramSession, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.ProgramSession{
			ID:        row.ID,
			EditionID: row.EditionID,
			Title:     row.Title,
			StartsAt:  parseTime(row.StartsAt),
			EndsAt:    parseTime(row.EndsAt),
			Status:    domain.SessionStatus(row.Status),
		})
	}
	return out, nil
}

func (r *SQLProgramSessionRepo) Upsert(ctx context.Context, s *domain.ProgramSession) error {
	status := s.Status
	if status == "" {
		status = domain.SessionScheduled
	}
	query := `INSERT INTO program_sessions (id, edition_id, title, starts_at, ends_at, status)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			edition_id = excluded.edition_id,
			title = excluded.title,
			starts_at = excluded.starts_at,
			ends_at = excluded.ends_at,
			status = excluded.status`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		s.ID, s.EditionID, s.Title, formatTime(s.StartsAt), formatTime(s.EndsAt), string(status))
	if err != nil {
		return fmt.Errorf("upserting program session: %w", Classify(err))
	}
	return nil
}
