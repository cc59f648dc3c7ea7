package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEditionRepo_RoundTripsCalendarDates(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLEditionRepo(database)

	ed := testutil.NewTestEdition("Lisbon 2026",
		testutil.WithCohort(domain.CohortImmersion),
		testutil.WithDates(testutil.Date(2026, time.May, 4), testutil.Date(2026, time.May, 10)))
	ed.Timezone = "Europe/Lisbon"
	require.NoError(t, repo.Upsert(ctx, ed))

	got, err := repo.GetByID(ctx, ed.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CohortImmersion, got.CohortType)
	require.NotNil(t, got.StartDate)
	assert.Equal(t, "2026-05-04", got.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2026-05-10", got.EndDate.Format("2006-01-02"))
	assert.Equal(t, "Europe/Lisbon", got.Timezone)
}

func TestEditionRepo_NullDates(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLEditionRepo(database)

	ed := testutil.NewTestEdition("TBD", testutil.WithoutDates())
	require.NoError(t, repo.Upsert(ctx, ed))

	got, err := repo.GetByID(ctx, ed.ID)
	require.NoError(t, err)
	assert.Nil(t, got.StartDate)
	assert.Nil(t, got.EndDate)
}

func TestParticipantRepo_FactsIncludeCommunityPosts(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	ed := testutil.NewTestEdition("Spring")
	require.NoError(t, NewSQLEditionRepo(database).Upsert(ctx, ed))

	repo := NewSQLParticipantRepo(database)
	posts := NewSQLCommunityPostRepo(database)

	p := testutil.NewTestParticipant("u1", ed.ID, testutil.WithFacts(domain.ProfileFacts{
		WaiverSigned: true,
		Payment:      domain.PaymentDeposit,
		SocialHandle: "@ana",
		StreakDays:   7,
	}))
	require.NoError(t, repo.Upsert(ctx, p))
	require.NoError(t, posts.Create(ctx, &domain.CommunityPost{UserID: "u1", Body: "Hello all"}))
	require.NoError(t, posts.Create(ctx, &domain.CommunityPost{UserID: "u2", Body: "Not mine"}))

	got, err := repo.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, ed.ID, got.EditionID)
	assert.True(t, got.Facts.WaiverSigned)
	assert.False(t, got.Facts.MedicalFormSubmitted)
	assert.Equal(t, domain.PaymentDeposit, got.Facts.Payment)
	assert.Equal(t, "@ana", got.Facts.SocialHandle)
	assert.Equal(t, 7, got.Facts.StreakDays)
	assert.Equal(t, 1, got.Facts.CommunityPosts)

	n, err := posts.CountByUser(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestParticipantRepo_GetByUserID_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	_, err := NewSQLParticipantRepo(database).GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTriggerRepo_ConfigRoundTrip(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLTriggerRepo(database)

	tr := testutil.NewTestTrigger(domain.TriggerCountdownMilestone,
		map[string]any{"days": []int{30, 7, 0}, "starts_today_title": "Today!"},
		testutil.WithPriority(5))
	require.NoError(t, repo.Upsert(ctx, tr))
	off := testutil.NewTestTrigger(domain.TriggerStreakMilestone, nil)
	off.IsActive = false
	require.NoError(t, repo.Upsert(ctx, off))

	got, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.TriggerCountdownMilestone, got[0].Type)
	assert.Equal(t, 5, got[0].Priority)
	assert.Equal(t, "Today!", got[0].Config["starts_today_title"])
	assert.Equal(t, []any{float64(30), float64(7), float64(0)}, got[0].Config["days"])
}

func TestManualAnnouncementRepo_ListActive_DropsExpired(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLManualAnnouncementRepo(database)
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestManualAnnouncement("expired", 1, &past)))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestManualAnnouncement("later", 1, &future)))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestManualAnnouncement("forever", 2, nil)))

	got, err := repo.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "forever", got[0].Title)
	assert.Equal(t, "later", got[1].Title)
	require.NotNil(t, got[1].ExpiryAt)
	assert.True(t, got[1].ExpiryAt.Equal(future))
}

func TestProgramSessionRepo_ListByEdition(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	ed := testutil.NewTestEdition("Spring")
	require.NoError(t, NewSQLEditionRepo(database).Upsert(ctx, ed))
	repo := NewSQLProgramSessionRepo(database)

	start := time.Date(2026, 6, 1, 15, 0, 0, 0, time.UTC)
	second := testutil.NewTestSession(ed.ID, "Day 2", start.Add(24*time.Hour), domain.SessionScheduled)
	first := testutil.NewTestSession(ed.ID, "Kickoff", start, domain.SessionLive)
	require.NoError(t, repo.Upsert(ctx, second))
	require.NoError(t, repo.Upsert(ctx, first))

	got, err := repo.ListByEdition(ctx, ed.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Kickoff", got[0].Title)
	assert.Equal(t, domain.SessionLive, got[0].Status)
	assert.True(t, got[0].StartsAt.Equal(start))
}
