package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/jmoiron/sqlx"
)

type triggerRow struct {
	ID              string `db:"id"`
	TriggerType     string `db:"trigger_type"`
	TitleTemplate   string `db:"title_template"`
	MessageTemplate string `db:"message_template"`
	DeepLink        string `db:"deep_link"`
	Icon            string `db:"icon"`
	Priority        int    `db:"priority"`
	IsActive        int    `db:"is_active"`
	Config          string `db:"config"`
}

// SQLTriggerRepo implements TriggerRepo. Trigger configs are stored as JSON
// objects and handed to the evaluator undecoded.
type SQLTriggerRepo struct {
	db db.DBTX
}

func NewSQLTriggerRepo(conn db.DBTX) *SQLTriggerRepo {
	return &SQLTriggerRepo{db: conn}
}

func (r *SQLTriggerRepo) ListActive(ctx context.Context) ([]*domain.AnnouncementTrigger, error) {
	var rows []triggerRow
	query := `SELECT id, trigger_type, title_template, message_template, deep_link, icon, priority, is_active, config
		FROM announcement_triggers WHERE is_active = 1 ORDER BY priority DESC, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query)); err != nil {
		return nil, fmt.Errorf("listing announcement triggers: %w", Classify(err))
	}
	triggers := make([]*domain.AnnouncementTrigger, 0, len(rows))
	for _, row := range rows {
		cfg := map[string]any{}
		// A malformed config decodes to an empty map; the evaluator then
		// finds its required keys missing and skips the trigger.
		_ = json.Unmarshal([]byte(row.Config), &cfg)
		triggers = append(triggers, &domain.AnnouncementTrigger{
			ID:              row.ID,
			Type:            domain.TriggerType(row.TriggerType),
			TitleTemplate:   row.TitleTemplate,
			MessageTemplate: row.MessageTemplate,
			DeepLink:        row.DeepLink,
			Icon:            row.Icon,
			Priority:        row.Priority,
			IsActive:        intToBool(row.IsActive),
			Config:          cfg,
		})
	}
	return triggers, nil
}

func (r *SQLTriggerRepo) Upsert(ctx context.Context, t *domain.AnnouncementTrigger) error {
	cfg := t.Config
	if cfg == nil {
		cfg = map[string]any{}
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding trigger config: %w", err)
	}
	query := `INSERT INTO announcement_triggers (id, trigger_type, title_template, message_template,
			deep_link, icon, priority, is_active, config)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			trigger_type = excluded.trigger_type,
			title_template = excluded.title_template,
			message_template = excluded.message_template,
			deep_link = excluded.deep_link,
			icon = excluded.icon,
			priority = excluded.priority,
			is_active = excluded.is_active,
			config = excluded.config`
	_, err = r.db.ExecContext(ctx, r.db.Rebind(query),
		t.ID, string(t.Type), t.TitleTemplate, t.MessageTemplate,
		t.DeepLink, t.Icon, t.Priority, boolToInt(t.IsActive), string(raw),
	)
	if err != nil {
		return fmt.Errorf("upserting announcement trigger: %w", Classify(err))
	}
	return nil
}

type manualAnnouncementRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Body      string         `db:"body"`
	DeepLink  string         `db:"deep_link"`
	Icon      string         `db:"icon"`
	Priority  int            `db:"priority"`
	ExpiryAt  sql.NullString `db:"expiry_at"`
	CreatedAt string         `db:"created_at"`
}

// SQLManualAnnouncementRepo implements ManualAnnouncementRepo.
type SQLManualAnnouncementRepo struct {
	db db.DBTX
}

func NewSQLManualAnnouncementRepo(conn db.DBTX) *SQLManualAnnouncementRepo {
	return &SQLManualAnnouncementRepo{db: conn}
}

func (r *SQLManualAnnouncementRepo) ListActive(ctx context.Context, now time.Time) ([]*domain.ManualAnnouncement, error) {
	var rows []manualAnnouncementRow
	query := `SELECT id, title, body, deep_link, icon, priority, expiry_at, created_at
		FROM manual_announcements
		WHERE expiry_at IS NULL OR expiry_at > ?
		ORDER BY priority DESC, created_at, id`
	if err := sqlx.SelectContext(ctx, r.db, &rows, r.db.Rebind(query), formatTime(now)); err != nil {
		return nil, fmt.Errorf("listing manual announcements: %w", Classify(err))
	}
	out := make([]*domain.ManualAnnouncement, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.ManualAnnouncement{
			ID:        row.ID,
			Title:     row.Title,
			Body:      row.Body,
			DeepLink:  row.DeepLink,
			Icon:      row.Icon,
			Priority:  row.Priority,
			ExpiryAt:  parseNullableTime(row.ExpiryAt, time.RFC3339),
			CreatedAt: parseTime(row.CreatedAt),
		})
	}
	return out, nil
}

func (r *SQLManualAnnouncementRepo) Upsert(ctx context.Context, m *domain.ManualAnnouncement) error {
	createdAt := nowUTC()
	if !m.CreatedAt.IsZero() {
		createdAt = formatTime(m.CreatedAt)
	}
	query := `INSERT INTO manual_announcements (id, title, body, deep_link, icon, priority, expiry_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			body = excluded.body,
			deep_link = excluded.deep_link,
			icon = excluded.icon,
			priority = excluded.priority,
			expiry_at = excluded.expiry_at`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		m.ID, m.Title, m.Body, m.DeepLink, m.Icon, m.Priority,
		nullableTimeToString(m.ExpiryAt, time.RFC3339), createdAt,
	)
	if err != nil {
		return fmt.Errorf("upserting manual announcement: %w", Classify(err))
	}
	return nil
}
