package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/journey/internal/domain"
)

const sampleCatalog = `
defaults:
  cohorts: [standard, executive]
  timezone: Europe/Lisbon
stages:
  - key: final_prep
    title: Final prep
    order: 2
tasks:
  - id: pack
    stage: final_prep
    title: Pack your bags
    linked_checklist_category: packing
    required: true
  - id: waiver
    stage: pre_travel
    title: Sign the waiver
    auto_complete_fact: waiver_signed
    cohorts: [immersion]
    active: false
checklist_items:
  - id: passport
    category: packing
    title: Passport
  - id: adapter
    category: packing
    cohort: immersion
    title: Plug adapter
    order: 1
triggers:
  - id: countdown
    type: countdown_milestone
    title: "{days} days to go"
    priority: 10
    config:
      days: [30, 7, 0]
      starts_today_title: Starts today!
announcements:
  - id: welcome
    title: Welcome
    priority: 3
    expiry_at: "2026-07-01T12:00:00+01:00"
editions:
  - id: ed-1
    name: Summer
    cohort: standard
    start_date: "2026-06-01"
  - id: ed-2
    name: Unscheduled
    cohort: immersion
    timezone: Asia/Tokyo
participants:
  - user_id: u1
    edition_id: ed-1
    facts:
      payment: deposit
      streak_days: 4
    posts:
      - id: p1
        body: Hi all
sessions:
  - id: s1
    edition_id: ed-1
    title: Kickoff
    starts_at: "2026-06-01T09:00:00Z"
    ends_at: "2026-06-01T10:00:00Z"
`

func convertSample(t *testing.T) *Catalog {
	t.Helper()
	schema, err := ParseCatalogSchema([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Empty(t, errorStrings(ValidateCatalogSchema(schema)))
	cat, err := Convert(schema)
	require.NoError(t, err)
	return cat
}

func TestConvert_TasksApplyDefaultsCascade(t *testing.T) {
	cat := convertSample(t)
	require.Len(t, cat.Tasks, 2)

	pack := cat.Tasks[0]
	assert.Equal(t, domain.StageFinalPrep, pack.StageKey)
	assert.Equal(t, []domain.CohortType{domain.CohortStandard, domain.CohortExecutive}, pack.CohortTypes)
	assert.Equal(t, "packing", pack.LinkedCategory())
	assert.True(t, pack.IsRequired)
	assert.True(t, pack.IsActive)
	assert.Nil(t, pack.AutoCompleteFact)

	waiver := cat.Tasks[1]
	require.NotNil(t, waiver.AutoCompleteFact)
	assert.Equal(t, domain.FactWaiverSigned, *waiver.AutoCompleteFact)
	assert.Equal(t, []domain.CohortType{domain.CohortImmersion}, waiver.CohortTypes)
	assert.False(t, waiver.IsActive)
	assert.False(t, waiver.IsRequired)
}

func TestConvert_ChecklistCohortFallsBackToDefaults(t *testing.T) {
	cat := convertSample(t)
	require.Len(t, cat.ChecklistItems, 2)
	assert.Equal(t, domain.CohortStandard, cat.ChecklistItems[0].CohortType)
	assert.Equal(t, domain.CohortImmersion, cat.ChecklistItems[1].CohortType)
}

func TestConvert_EditionsAndTimes(t *testing.T) {
	cat := convertSample(t)
	require.Len(t, cat.Editions, 2)

	summer := cat.Editions[0]
	require.NotNil(t, summer.StartDate)
	assert.Equal(t, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), *summer.StartDate)
	assert.Nil(t, summer.EndDate)
	assert.Equal(t, "Europe/Lisbon", summer.Timezone)

	unscheduled := cat.Editions[1]
	assert.Nil(t, unscheduled.StartDate)
	assert.Equal(t, "Asia/Tokyo", unscheduled.Timezone)

	require.Len(t, cat.Announcements, 1)
	require.NotNil(t, cat.Announcements[0].ExpiryAt)
	assert.Equal(t, time.Date(2026, 7, 1, 11, 0, 0, 0, time.UTC), *cat.Announcements[0].ExpiryAt)

	require.Len(t, cat.Sessions, 1)
	assert.Equal(t, domain.SessionScheduled, cat.Sessions[0].Status)
}

func TestConvert_ParticipantsAndPosts(t *testing.T) {
	cat := convertSample(t)
	require.Len(t, cat.Participants, 1)
	p := cat.Participants[0]
	assert.Equal(t, "u1", p.DisplayName)
	assert.Equal(t, domain.PaymentDeposit, p.Facts.Payment)
	assert.Equal(t, 4, p.Facts.StreakDays)

	require.Len(t, cat.Posts, 1)
	assert.Equal(t, "u1", cat.Posts[0].UserID)
}

func TestConvert_TriggerConfigPreserved(t *testing.T) {
	cat := convertSample(t)
	require.Len(t, cat.Triggers, 1)
	tr := cat.Triggers[0]
	assert.True(t, tr.IsActive)
	assert.Equal(t, 10, tr.Priority)
	assert.Equal(t, "Starts today!", tr.Config["starts_today_title"])
}
