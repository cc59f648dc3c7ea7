package service

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/optimistic"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/repository"
	"github.com/alexanderramin/journey/internal/testutil"
)

func openJourney(t *testing.T, e *testEnv, sim domain.SimulationContext) *Journey {
	t.Helper()
	j, err := e.journeys.Open(context.Background(), e.participantID, sim)
	require.NoError(t, err)
	return j
}

func settle(t *testing.T, m *optimistic.Mutation[viewKey, bool]) optimistic.State {
	t.Helper()
	require.NotNil(t, m)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	state, _ := m.Wait(ctx)
	require.NoError(t, ctx.Err())
	return state
}

type failingLedger struct {
	LedgerService
}

func (failingLedger) Toggle(context.Context, ToggleRequest) (*ToggleResult, error) {
	return nil, errInjected
}

func TestJourneyOpen_UnknownParticipant(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.journeys.Open(context.Background(), "nobody", domain.SimulationContext{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestJourneyCurrentStage(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	j := openJourney(t, e, domain.SimulationContext{})

	// 2026-05-25 is seven days before the 2026-06-01 start.
	assert.Equal(t, domain.StageFinalPrep, j.CurrentStage())
	require.NotNil(t, j.DaysUntilStart())
	assert.Equal(t, 7, *j.DaysUntilStart())

	e.clock.Set(time.Date(2026, time.June, 2, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, domain.StageOnlineProgram, j.CurrentStage())

	e.clock.Set(time.Date(2026, time.June, 15, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, domain.StagePostProgram, j.CurrentStage())
}

func TestJourneyCurrentStage_Simulation(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer", testutil.WithCohort(domain.CohortImmersion)))

	stage := domain.StagePreTravel
	j := openJourney(t, e, domain.SimulationContext{Stage: &stage})
	assert.Equal(t, domain.StagePreTravel, j.CurrentStage())

	j = openJourney(t, e, domain.SimulationContext{DayOffset: testutil.IntPtr(1)})
	assert.Equal(t, domain.StageInPersonProgram, j.CurrentStage())
	assert.Equal(t, -1, *j.DaysUntilStart())
}

func TestJourneyCurrentStage_EditionTimezone(t *testing.T) {
	e := newTestEnv(t)
	edition := testutil.NewTestEdition("Tokyo")
	edition.Timezone = "Asia/Tokyo"
	e.seedParticipant(t, "u1", edition)

	// 15:30 UTC on May 31 is already June 1 in Tokyo.
	e.clock.Set(time.Date(2026, time.May, 31, 15, 30, 0, 0, time.UTC))
	j := openJourney(t, e, domain.SimulationContext{})
	assert.Equal(t, domain.StageOnlineProgram, j.CurrentStage())
}

func TestJourneyToggleTask_PredictsThenConfirms(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Print tickets", testutil.WithRequired(true)))
	j := openJourney(t, e, domain.SimulationContext{})

	assert.False(t, j.IsTaskCompleted(task.ID))
	m, err := j.ToggleTask(context.Background(), task.ID, true)
	require.NoError(t, err)
	assert.True(t, j.IsTaskCompleted(task.ID), "prediction is visible before the write lands")

	assert.Equal(t, optimistic.Confirmed, settle(t, m))
	rows, err := e.taskProgress.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	stats := j.StageStats(domain.StageFinalPrep)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.RequiredCompleted)
}

func TestJourneyToggleTask_RollbackRestoresView(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	items := e.seedItems(t, testutil.NewTestChecklistItems("packing", domain.CohortStandard, 2)...)
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Pack", testutil.WithLinkedCategory("packing")))

	_, err := e.bridge.ToggleItem(context.Background(), "u1", items[0].ID, true)
	require.NoError(t, err)

	deps := e.journeys.deps
	deps.Ledger = failingLedger{e.ledger}
	j, err := NewJourneyService(deps).Open(context.Background(), "u1", domain.SimulationContext{})
	require.NoError(t, err)
	before := j.view.Snapshot()

	m, err := j.ToggleTask(context.Background(), task.ID, true)
	require.NoError(t, err)
	assert.True(t, j.IsTaskCompleted(task.ID))

	assert.Equal(t, optimistic.RolledBack, settle(t, m))
	assert.ErrorIs(t, m.Err(), errInjected)
	assert.Equal(t, before, j.view.Snapshot())
	assert.False(t, j.IsTaskCompleted(task.ID))
}

func TestJourneyToggleTask_AutoCompletedIsNoop(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"),
		testutil.WithFacts(domain.ProfileFacts{Payment: domain.PaymentPaidInFull}))
	task := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Pay deposit", testutil.WithAutoComplete(domain.FactDepositPaid)))
	j := openJourney(t, e, domain.SimulationContext{})

	assert.True(t, j.IsTaskAutoCompleted(task.ID))
	assert.False(t, j.IsTaskToggleable(task.ID))
	m, err := j.ToggleTask(context.Background(), task.ID, false)
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.True(t, j.IsTaskCompleted(task.ID))
}

func TestJourneyToggleTask_UnknownTask(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	j := openJourney(t, e, domain.SimulationContext{})

	_, err := j.ToggleTask(context.Background(), "ghost", true)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestJourneyChecklist_ItemsDriveLinkedTask(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	items := e.seedItems(t, testutil.NewTestChecklistItems("packing", domain.CohortStandard, 2)...)
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Pack", testutil.WithLinkedCategory("packing")))
	j := openJourney(t, e, domain.SimulationContext{})
	ctx := context.Background()

	m, err := j.ToggleChecklistItem(ctx, items[0].ID, true)
	require.NoError(t, err)
	settle(t, m)
	assert.False(t, j.IsTaskCompleted(task.ID))

	m, err = j.ToggleChecklistItem(ctx, items[1].ID, true)
	require.NoError(t, err)
	settle(t, m)
	assert.True(t, j.IsTaskCompleted(task.ID))
	assert.True(t, j.IsTaskAutoCompleted(task.ID))

	categories := j.Checklist()
	require.Len(t, categories, 1)
	assert.Equal(t, "packing", categories[0].Category)
	assert.True(t, categories[0].Progress.Complete())

	rows, err := e.taskProgress.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, rows, "checking items never writes the task row")
}

func TestJourneyToggleTask_PartialFailureReconciles(t *testing.T) {
	items := testutil.NewTestChecklistItems("packing", domain.CohortStandard, 3)
	e := newTestEnv(t, withFlakyChecklist(map[string]bool{items[1].ID: true}))
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	e.seedItems(t, items...)
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Pack", testutil.WithLinkedCategory("packing")))
	j := openJourney(t, e, domain.SimulationContext{})

	m, err := j.ToggleTask(context.Background(), task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Reconciling, settle(t, m))
	assert.True(t, IsPartialSync(m.Err()))

	assert.Eventually(t, func() bool {
		return !j.IsTaskCompleted(task.ID)
	}, 2*time.Second, 10*time.Millisecond, "the background refresh shows the true category state")

	categories := j.Checklist()
	require.Len(t, categories, 1)
	assert.Equal(t, 2, categories[0].Progress.Checked)
}

func TestJourneyRefresh_PicksUpFactChanges(t *testing.T) {
	e := newTestEnv(t)
	edition := testutil.NewTestEdition("Summer")
	e.seedParticipant(t, "u1", edition)
	task := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Waiver", testutil.WithAutoComplete(domain.FactWaiverSigned)))
	j := openJourney(t, e, domain.SimulationContext{})
	assert.False(t, j.IsTaskCompleted(task.ID))

	require.NoError(t, e.participants.Upsert(context.Background(), testutil.NewTestParticipant("u1", edition.ID,
		testutil.WithFacts(domain.ProfileFacts{WaiverSigned: true}))))
	require.NoError(t, j.Refresh(context.Background()))
	assert.True(t, j.IsTaskCompleted(task.ID))
}

func TestJourneyAnnouncements(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"), testutil.WithDisplayName("Ana"))

	countdown := testutil.NewTestTrigger(domain.TriggerCountdownMilestone, map[string]any{"days": []any{7, 0}},
		testutil.WithTriggerID("countdown"), testutil.WithTemplates("{days} days to go, {name}", "Get ready"), testutil.WithPriority(5))
	deadline := testutil.NewTestTrigger(domain.TriggerDeadlineApproaching, map[string]any{"days_before": []any{7}, "fact": "waiver_signed"},
		testutil.WithTriggerID("waiver"), testutil.WithPriority(9))
	require.NoError(t, e.triggers.Upsert(ctx, countdown))
	require.NoError(t, e.triggers.Upsert(ctx, deadline))
	require.NoError(t, e.manual.Upsert(ctx, testutil.NewTestManualAnnouncement("Welcome", 0, nil)))

	j := openJourney(t, e, domain.SimulationContext{})
	list, err := j.Announcements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].Manual)
	assert.Equal(t, "deadline_approaching:waiver:7", list[1].ID)
	assert.Equal(t, "countdown_milestone:countdown:7", list[2].ID)
	assert.Equal(t, "7 days to go, Ana", list[2].Title)

	require.NoError(t, j.DismissAnnouncement("countdown_milestone:countdown:7"))
	list, err = j.Announcements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, a := range list {
		assert.NotEqual(t, "countdown_milestone:countdown:7", a.ID)
	}
}

func TestJourneyAnnouncements_SessionTriggersOnlyWhileLive(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	edition := testutil.NewTestEdition("Summer")
	e.seedParticipant(t, "u1", edition)

	startsAt := time.Date(2026, time.June, 2, 9, 0, 0, 0, time.UTC)
	require.NoError(t, e.sessions.Upsert(ctx, testutil.NewTestSession(edition.ID, "Kickoff", startsAt, domain.SessionScheduled)))
	soon := testutil.NewTestTrigger(domain.TriggerSessionStartingSoon, map[string]any{"minutes_before": []any{15}},
		testutil.WithTriggerID("soon"), testutil.WithTemplates("{session} in {minutes} min", ""))
	require.NoError(t, e.triggers.Upsert(ctx, soon))

	e.clock.Set(startsAt.Add(-12 * time.Minute))
	j := openJourney(t, e, domain.SimulationContext{})
	list, err := j.Announcements(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Kickoff in 12 min", list[0].Title)

	stage := domain.StageFinalPrep
	j = openJourney(t, e, domain.SimulationContext{Stage: &stage})
	list, err = j.Announcements(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "session reminders need a live program window")
}

func TestJourneyWatch_ReceivesOwnChanges(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Print tickets"))
	j := openJourney(t, e, domain.SimulationContext{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := j.Watch(ctx)

	m, err := j.ToggleTask(ctx, task.ID, true)
	require.NoError(t, err)
	settle(t, m)

	select {
	case ev := <-events:
		assert.Equal(t, repository.CollectionTaskProgress, ev.Collection)
		assert.Equal(t, task.ID, ev.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-events:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}

func TestJourneyPost_CompletesIntroductionTask(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	task := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Introduce yourself",
		testutil.WithAutoComplete(domain.FactCommunityIntroduction)))
	j := openJourney(t, e, domain.SimulationContext{})
	require.False(t, j.IsTaskCompleted(task.ID))

	require.NoError(t, j.Post(context.Background(), "  Hi, I'm joining from Lisbon  "))

	assert.Equal(t, 1, j.Facts().CommunityPosts)
	assert.True(t, j.IsTaskAutoCompleted(task.ID))

	n, err := e.posts.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestJourneyPost_EmptyBody(t *testing.T) {
	e := newTestEnv(t)
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	j := openJourney(t, e, domain.SimulationContext{})

	err := j.Post(context.Background(), "   ")
	assert.ErrorContains(t, err, "post body is required")
}

func TestJourneyToggleTask_MirrorFailureAfterTaskRowReconciles(t *testing.T) {
	items := testutil.NewTestChecklistItems("packing", domain.CohortStandard, 2)
	e := newTestEnv(t, withFlakyChecklist(map[string]bool{items[0].ID: true, items[1].ID: true}))
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	e.seedItems(t, items...)
	task := e.seedTask(t, testutil.NewTestTask(domain.StageFinalPrep, "Pack", testutil.WithLinkedCategory("packing")))
	j := openJourney(t, e, domain.SimulationContext{})

	m, err := j.ToggleTask(context.Background(), task.ID, true)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Reconciling, settle(t, m))

	rows, err := e.taskProgress.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Eventually(t, func() bool {
		return j.snapshot().Manual[task.ID] && !j.IsTaskCompleted(task.ID)
	}, 2*time.Second, 10*time.Millisecond, "the view keeps the stored task row and shows the unchecked category")
}

func TestJourneyToggleTask_ConfirmedWriteRefreshesView(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
	mine := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Book flights"))
	other := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Renew passport"))
	j := openJourney(t, e, domain.SimulationContext{})

	// Written by another device; this session has not read it yet.
	_, err := e.taskProgress.Upsert(ctx, domain.TaskProgress{
		UserID: "u1", TaskID: other.ID, Status: domain.ProgressCompleted, CompletedAt: e.clock.Now(),
	})
	require.NoError(t, err)
	require.False(t, j.IsTaskCompleted(other.ID))

	m, err := j.ToggleTask(ctx, mine.ID, true)
	require.NoError(t, err)
	assert.Equal(t, optimistic.Confirmed, settle(t, m))

	assert.Eventually(t, func() bool {
		return j.IsTaskCompleted(other.ID)
	}, 2*time.Second, 10*time.Millisecond, "a confirmed write re-reads progress from the store")
	assert.True(t, j.IsTaskCompleted(mine.ID))
}

// Task toggles and item toggles fired back to back, without waiting on any
// write, leave the local view equal to the store once every write settles.
func TestJourneyToggle_InterleavedWritesMatchStore(t *testing.T) {
	for seed := uint64(1); seed <= 10; seed++ {
		e := newTestEnv(t)
		ctx := context.Background()
		rng := rand.New(rand.NewPCG(seed, seed*17))
		e.seedParticipant(t, "u1", testutil.NewTestEdition("Summer"))
		n := 1 + rng.IntN(4)
		items := e.seedItems(t, testutil.NewTestChecklistItems("docs", domain.CohortStandard, n)...)
		task := e.seedTask(t, testutil.NewTestTask(domain.StagePreTravel, "Documents", testutil.WithLinkedCategory("docs")))
		j := openJourney(t, e, domain.SimulationContext{})

		for step := 0; step < 25; step++ {
			on := rng.IntN(2) == 0
			if rng.IntN(2) == 0 {
				_, err := j.ToggleTask(ctx, task.ID, on)
				require.NoError(t, err)
			} else {
				_, err := j.ToggleChecklistItem(ctx, items[rng.IntN(n)].ID, on)
				require.NoError(t, err)
			}
		}
		require.Eventually(t, func() bool { return j.Pending() == 0 },
			2*time.Second, 5*time.Millisecond, "seed %d", seed)

		local := j.snapshot()
		stored, err := e.ledger.Snapshot(ctx, "u1", domain.CohortStandard, domain.ProfileFacts{})
		require.NoError(t, err)
		assert.Equal(t, stored.Manual[task.ID], local.Manual[task.ID], "seed %d", seed)
		assert.Equal(t, stored.Checklist["docs"], local.Checklist["docs"], "seed %d", seed)
		assert.Equal(t, progress.IsComplete(task, stored), progress.IsComplete(task, local), "seed %d", seed)
		assert.Equal(t, local.Checklist["docs"].Complete(), progress.IsComplete(task, local), "seed %d", seed)
	}
}
