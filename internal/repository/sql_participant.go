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

type participantRow struct {
	UserID               string `db:"user_id"`
	EditionID            string `db:"edition_id"`
	DisplayName          string `db:"display_name"`
	WaiverSigned         int    `db:"waiver_signed"`
	MedicalFormSubmitted int    `db:"medical_form_submitted"`
	TravelFormSubmitted  int    `db:"travel_form_submitted"`
	ProfileComplete      int    `db:"profile_complete"`
	PaymentMilestone     string `db:"payment_milestone"`
	SocialHandle         string `db:"social_handle"`
	StreakDays           int    `db:"streak_days"`
	CommunityPosts       int    `db:"community_posts"`
	CreatedAt            string `db:"created_at"`
	UpdatedAt            string `db:"updated_at"`
}

// SQLParticipantRepo implements ParticipantRepo.
type SQLParticipantRepo struct {
	db db.DBTX
}

func NewSQLParticipantRepo(conn db.DBTX) *SQLParticipantRepo {
	return &SQLParticipantRepo{db: conn}
}

func (r *SQLParticipantRepo) GetByUserID(ctx context.Context, userID string) (*domain.Participant, error) {
	var row participantRow
	query := `SELECT p.user_id, p.edition_id, p.display_name, p.waiver_signed, p.medical_form_submitted,
			p.travel_form_submitted, p.profile_complete, p.payment_milestone, p.social_handle,
			p.streak_days, p.created_at, p.updated_at,
			(SELECT COUNT(*) FROM community_posts c WHERE c.user_id = p.user_id) AS community_posts
		FROM participants p WHERE p.user_id = ?`
	if err := sqlx.GetContext(ctx, r.db, &row, r.db.Rebind(query), userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("participant %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("getting participant: %w", Classify(err))
	}
	return &domain.Participant{
		UserID:      row.UserID,
		EditionID:   row.EditionID,
		DisplayName: row.DisplayName,
		Facts: domain.ProfileFacts{
			WaiverSigned:         intToBool(row.WaiverSigned),
			MedicalFormSubmitted: intToBool(row.MedicalFormSubmitted),
			TravelFormSubmitted:  intToBool(row.TravelFormSubmitted),
			ProfileComplete:      intToBool(row.ProfileComplete),
			Payment:              domain.PaymentMilestone(row.PaymentMilestone),
			SocialHandle:         row.SocialHandle,
			CommunityPosts:       row.CommunityPosts,
			StreakDays:           row.StreakDays,
		},
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}, nil
}

// Upsert writes the participant and its stored facts. CommunityPosts is
// derived from community_posts and is not written here.
func (r *SQLParticipantRepo) Upsert(ctx context.Context, p *domain.Participant) error {
	now := nowUTC()
	createdAt := now
	if !p.CreatedAt.IsZero() {
		createdAt = formatTime(p.CreatedAt)
	}
	payment := p.Facts.Payment
	if payment == "" {
		payment = domain.PaymentNone
	}
	query := `INSERT INTO participants (user_id, edition_id, display_name, waiver_signed,
			medical_form_submitted, travel_form_submitted, profile_complete, payment_milestone,
			social_handle, streak_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			edition_id = excluded.edition_id,
			display_name = excluded.display_name,
			waiver_signed = excluded.waiver_signed,
			medical_form_submitted = excluded.medical_form_submitted,
			travel_form_submitted = excluded.travel_form_submitted,
			profile_complete = excluded.profile_complete,
			payment_milestone = excluded.payment_milestone,
			social_handle = excluded.social_handle,
			streak_days = excluded.streak_days,
			updated_at = excluded.updated_at`
	f := p.Facts
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		p.UserID, p.EditionID, p.DisplayName,
		boolToInt(f.WaiverSigned), boolToInt(f.MedicalFormSubmitted), boolToInt(f.TravelFormSubmitted),
		boolToInt(f.ProfileComplete), string(payment), f.SocialHandle, f.StreakDays,
		createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upserting participant: %w", Classify(err))
	}
	return nil
}
