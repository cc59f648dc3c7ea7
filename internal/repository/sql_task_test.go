package repository

import (
	"context"
	"testing"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/testutil"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStages(t *testing.T, database *sqlx.DB) {
	t.Helper()
	repo := NewSQLStageRepo(database)
	for i, key := range domain.AllStageKeys() {
		require.NoError(t, repo.Upsert(context.Background(), testutil.NewTestStage(key, i)))
	}
}

func TestStageRepo_ListActive_Ordered(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLStageRepo(database)

	require.NoError(t, repo.Upsert(ctx, testutil.NewTestStage(domain.StagePreTravel, 2)))
	require.NoError(t, repo.Upsert(ctx, testutil.NewTestStage(domain.StagePreRegistration, 1)))
	inactive := testutil.NewTestStage(domain.StagePostProgram, 9)
	inactive.IsActive = false
	require.NoError(t, repo.Upsert(ctx, inactive))

	stages, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, domain.StagePreRegistration, stages[0].Key)
	assert.Equal(t, domain.StagePreTravel, stages[1].Key)
}

func TestStageRepo_Upsert_UpdatesTitle(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLStageRepo(database)

	s := testutil.NewTestStage(domain.StageFinalPrep, 3)
	require.NoError(t, repo.Upsert(ctx, s))
	s.Title = "Final preparations"
	require.NoError(t, repo.Upsert(ctx, s))

	stages, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, stages, 1)
	assert.Equal(t, "Final preparations", stages[0].Title)
}

func TestTaskRepo_UpsertAndGetByID(t *testing.T) {
	database := testutil.NewTestDB(t)
	seedStages(t, database)
	ctx := context.Background()
	repo := NewSQLTaskRepo(database)

	task := testutil.NewTestTask(domain.StagePreTravel, "Sign waiver",
		testutil.WithAutoComplete(domain.FactWaiverSigned),
		testutil.WithRequired(true),
		testutil.WithDueDaysOffset(-20),
		testutil.WithCohorts(domain.CohortStandard, domain.CohortImmersion),
	)
	require.NoError(t, repo.Upsert(ctx, task))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sign waiver", got.Title)
	require.NotNil(t, got.AutoCompleteFact)
	assert.Equal(t, domain.FactWaiverSigned, *got.AutoCompleteFact)
	assert.Nil(t, got.LinkedChecklistCategory)
	assert.True(t, got.IsRequired)
	require.NotNil(t, got.DueDaysOffset)
	assert.Equal(t, -20, *got.DueDaysOffset)
	assert.ElementsMatch(t, []domain.CohortType{domain.CohortStandard, domain.CohortImmersion}, got.CohortTypes)
}

func TestTaskRepo_GetByID_NotFound(t *testing.T) {
	database := testutil.NewTestDB(t)
	repo := NewSQLTaskRepo(database)

	_, err := repo.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepo_ListActiveByCohort_FiltersCohortAndInactive(t *testing.T) {
	database := testutil.NewTestDB(t)
	seedStages(t, database)
	ctx := context.Background()
	repo := NewSQLTaskRepo(database)

	everyone := testutil.NewTestTask(domain.StagePreTravel, "Everyone")
	immersionOnly := testutil.NewTestTask(domain.StagePreTravel, "Immersion only",
		testutil.WithCohorts(domain.CohortImmersion))
	retired := testutil.NewTestTask(domain.StagePreTravel, "Retired", testutil.WithInactive())
	for _, task := range []*domain.Task{everyone, immersionOnly, retired} {
		require.NoError(t, repo.Upsert(ctx, task))
	}

	standard, err := repo.ListActiveByCohort(ctx, domain.CohortStandard)
	require.NoError(t, err)
	require.Len(t, standard, 1)
	assert.Equal(t, "Everyone", standard[0].Title)

	immersion, err := repo.ListActiveByCohort(ctx, domain.CohortImmersion)
	require.NoError(t, err)
	assert.Len(t, immersion, 2)
}

func TestTaskRepo_Upsert_ReplacesCohorts(t *testing.T) {
	database := testutil.NewTestDB(t)
	seedStages(t, database)
	ctx := context.Background()
	repo := NewSQLTaskRepo(database)

	task := testutil.NewTestTask(domain.StageFinalPrep, "Pack", testutil.WithCohorts(domain.CohortStandard))
	require.NoError(t, repo.Upsert(ctx, task))
	task.CohortTypes = []domain.CohortType{domain.CohortExecutive}
	require.NoError(t, repo.Upsert(ctx, task))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.CohortType{domain.CohortExecutive}, got.CohortTypes)
}

func TestTaskRepo_UnknownFactKeptVerbatim(t *testing.T) {
	database := testutil.NewTestDB(t)
	seedStages(t, database)
	ctx := context.Background()
	repo := NewSQLTaskRepo(database)

	task := testutil.NewTestTask(domain.StagePreTravel, "Legacy", testutil.WithAutoComplete(domain.FactRef("passport_scanned")))
	require.NoError(t, repo.Upsert(ctx, task))

	got, err := repo.GetByID(ctx, task.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AutoCompleteFact)
	assert.False(t, got.AutoCompleteFact.Valid())
}
