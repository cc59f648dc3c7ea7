package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/testutil"
)

func TestCatalogTasksForCohort_GroupsAndOrders(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	second := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Second"))
	first := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "First"))
	first.OrderIndex, second.OrderIndex = 1, 2
	e.seedTask(t, first)
	e.seedTask(t, second)
	e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Visa"))
	e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Retired", testutil.WithInactive()))
	e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Immersion only", testutil.WithCohorts(domain.CohortImmersion)))

	grouped, err := e.catalog.TasksForCohort(ctx, domain.CohortStandard)
	require.NoError(t, err)
	require.Len(t, grouped[domain.StageFinalPrep], 2)
	assert.Equal(t, "First", grouped[domain.StageFinalPrep][0].Title)
	assert.Equal(t, "Second", grouped[domain.StageFinalPrep][1].Title)
	require.Len(t, grouped[domain.StagePreTravel], 1)
	assert.Equal(t, "Visa", grouped[domain.StagePreTravel][0].Title)
}

func TestCatalogTasksForCohort_UnknownCohortFallsBack(t *testing.T) {
	e := newTestEnv(t)
	e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Standard", testutil.WithCohorts(domain.CohortStandard)))

	grouped, err := e.catalog.TasksForCohort(context.Background(), domain.CohortType("retreat"))
	require.NoError(t, err)
	assert.Len(t, grouped[domain.StageFinalPrep], 1)
}

func TestCatalogChecklistForCohort(t *testing.T) {
	e := newTestEnv(t)
	e.seedItems(t, testutil.NewTestChecklistItems("packing", domain.CohortStandard, 3)...)
	e.seedItems(t, testutil.NewTestChecklistItems("documents", domain.CohortStandard, 1)...)
	e.seedItems(t, testutil.NewTestChecklistItems("packing", domain.CohortImmersion, 2)...)

	grouped, err := e.catalog.ChecklistForCohort(context.Background(), domain.CohortStandard)
	require.NoError(t, err)
	assert.Len(t, grouped, 2)
	require.Len(t, grouped["packing"], 3)
	assert.Equal(t, "packing 1", grouped["packing"][0].Title)
	assert.Equal(t, "packing 3", grouped["packing"][2].Title)
	assert.Len(t, grouped["documents"], 1)
}

func TestCatalogStages(t *testing.T) {
	e := newTestEnv(t)
	stages, err := e.catalog.Stages(context.Background())
	require.NoError(t, err)
	require.Len(t, stages, len(domain.AllStageKeys()))
	assert.Equal(t, domain.AllStageKeys()[0], stages[0].Key)
}
