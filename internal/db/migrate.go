package db

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// full list is replayed on each open.
func Migrate(db *sqlx.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate re-adding a column that an earlier run already added.
			if isDuplicateColumn(err) {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

func isDuplicateColumn(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "duplicate column name") ||
		(strings.Contains(msg, "column") && strings.Contains(msg, "already exists"))
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS editions (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		cohort_type TEXT NOT NULL DEFAULT 'standard',
		start_date  TEXT,
		end_date    TEXT,
		timezone    TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS participants (
		user_id                TEXT PRIMARY KEY,
		edition_id             TEXT NOT NULL REFERENCES editions(id) ON DELETE CASCADE,
		display_name           TEXT NOT NULL DEFAULT '',
		waiver_signed          INTEGER NOT NULL DEFAULT 0,
		medical_form_submitted INTEGER NOT NULL DEFAULT 0,
		travel_form_submitted  INTEGER NOT NULL DEFAULT 0,
		profile_complete       INTEGER NOT NULL DEFAULT 0,
		payment_milestone      TEXT NOT NULL DEFAULT 'none'
		                       CHECK(payment_milestone IN ('none','deposit','paid_in_full')),
		social_handle          TEXT NOT NULL DEFAULT '',
		created_at             TEXT NOT NULL,
		updated_at             TEXT NOT NULL
	)`,

	`ALTER TABLE participants ADD COLUMN streak_days INTEGER NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS community_posts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS stages (
		stage_key         TEXT PRIMARY KEY
		                  CHECK(stage_key IN ('pre_registration','pre_travel','final_prep','online_program','in_person_program','post_program')),
		title             TEXT NOT NULL,
		order_index       INTEGER NOT NULL DEFAULT 0,
		days_before_start INTEGER NOT NULL DEFAULT 0,
		days_after_start  INTEGER NOT NULL DEFAULT 0,
		is_active         INTEGER NOT NULL DEFAULT 1
	)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id                        TEXT PRIMARY KEY,
		stage_key                 TEXT NOT NULL REFERENCES stages(stage_key),
		title                     TEXT NOT NULL,
		description               TEXT NOT NULL DEFAULT '',
		auto_complete_field       TEXT,
		linked_checklist_category TEXT,
		is_required               INTEGER NOT NULL DEFAULT 0,
		is_active                 INTEGER NOT NULL DEFAULT 1,
		due_days_offset           INTEGER,
		order_index               INTEGER NOT NULL DEFAULT 0,
		created_at                TEXT NOT NULL,
		updated_at                TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS task_cohorts (
		task_id     TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		cohort_type TEXT NOT NULL,
		PRIMARY KEY (task_id, cohort_type)
	)`,

	`CREATE TABLE IF NOT EXISTS task_progress (
		user_id      TEXT NOT NULL,
		task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		status       TEXT NOT NULL DEFAULT 'completed'
		             CHECK(status IN ('completed','pending')),
		completed_at TEXT NOT NULL,
		PRIMARY KEY (user_id, task_id)
	)`,

	`CREATE TABLE IF NOT EXISTS checklist_items (
		id          TEXT PRIMARY KEY,
		category    TEXT NOT NULL,
		cohort_type TEXT NOT NULL DEFAULT 'standard',
		title       TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS checklist_progress (
		user_id           TEXT NOT NULL,
		checklist_item_id TEXT NOT NULL REFERENCES checklist_items(id) ON DELETE CASCADE,
		checked_at        TEXT NOT NULL,
		PRIMARY KEY (user_id, checklist_item_id)
	)`,

	`CREATE TABLE IF NOT EXISTS announcement_triggers (
		id               TEXT PRIMARY KEY,
		trigger_type     TEXT NOT NULL,
		title_template   TEXT NOT NULL DEFAULT '',
		message_template TEXT NOT NULL DEFAULT '',
		deep_link        TEXT NOT NULL DEFAULT '',
		icon             TEXT NOT NULL DEFAULT '',
		priority         INTEGER NOT NULL DEFAULT 0,
		is_active        INTEGER NOT NULL DEFAULT 1,
		config           TEXT NOT NULL DEFAULT '{}'
	)`,

	`CREATE TABLE IF NOT EXISTS manual_announcements (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '',
		deep_link  TEXT NOT NULL DEFAULT '',
		icon       TEXT NOT NULL DEFAULT '',
		priority   INTEGER NOT NULL DEFAULT 0,
		expiry_at  TEXT,
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS program_sessions (
		id         TEXT PRIMARY KEY,
		edition_id TEXT NOT NULL REFERENCES editions(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		starts_at  TEXT NOT NULL,
		ends_at    TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'scheduled'
		           CHECK(status IN ('scheduled','live','ended'))
	)`,

	`CREATE INDEX IF NOT EXISTS idx_participants_edition ON participants(edition_id)`,
	`CREATE INDEX IF NOT EXISTS idx_community_posts_user ON community_posts(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_stage ON tasks(stage_key)`,
	`CREATE INDEX IF NOT EXISTS idx_task_cohorts_cohort ON task_cohorts(cohort_type)`,
	`CREATE INDEX IF NOT EXISTS idx_task_progress_user ON task_progress(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_checklist_items_category ON checklist_items(category, cohort_type)`,
	`CREATE INDEX IF NOT EXISTS idx_checklist_progress_user ON checklist_progress(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_program_sessions_edition ON program_sessions(edition_id)`,
}
