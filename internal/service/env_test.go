package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/journey/internal/announce"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/repository"
	"github.com/alexanderramin/journey/internal/testutil"
)

var errInjected = errors.New("injected store failure")

// testEnv is a fully wired service stack over an in-memory database.
type testEnv struct {
	db            *sqlx.DB
	feed          *repository.ChangeFeed
	stages        *repository.SQLStageRepo
	tasks         *repository.SQLTaskRepo
	taskProgress  *repository.SQLTaskProgressRepo
	items         *repository.SQLChecklistItemRepo
	itemProgress  repository.ChecklistProgressRepo
	triggers      *repository.SQLTriggerRepo
	manual        *repository.SQLManualAnnouncementRepo
	editions      *repository.SQLEditionRepo
	participants  *repository.SQLParticipantRepo
	sessions      *repository.SQLProgramSessionRepo
	posts         *repository.SQLCommunityPostRepo
	catalog       CatalogService
	bridge        ChecklistBridge
	ledger        LedgerService
	dismissals    *announce.MemoryDismissals
	observer      UseCaseObserver
	clock         *fakeClock
	journeys      *JourneyService
	edition       *domain.Edition
	participantID string
}

type envOption func(*testEnv)

func withObserver(o UseCaseObserver) envOption {
	return func(e *testEnv) { e.observer = o }
}

// withFlakyChecklist makes checklist writes fail for the given item ids.
func withFlakyChecklist(failFor map[string]bool) envOption {
	return func(e *testEnv) {
		e.itemProgress = &flakyChecklistProgress{ChecklistProgressRepo: e.itemProgress, failFor: failFor}
	}
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	database := testutil.NewTestDB(t)
	feed := repository.NewChangeFeed()
	e := &testEnv{
		db:           database,
		feed:         feed,
		stages:       repository.NewSQLStageRepo(database),
		tasks:        repository.NewSQLTaskRepo(database),
		taskProgress: repository.NewSQLTaskProgressRepo(database, feed),
		items:        repository.NewSQLChecklistItemRepo(database),
		itemProgress: repository.NewSQLChecklistProgressRepo(database, feed),
		triggers:     repository.NewSQLTriggerRepo(database),
		manual:       repository.NewSQLManualAnnouncementRepo(database),
		editions:     repository.NewSQLEditionRepo(database),
		participants: repository.NewSQLParticipantRepo(database),
		sessions:     repository.NewSQLProgramSessionRepo(database),
		posts:        repository.NewSQLCommunityPostRepo(database),
		dismissals:   announce.NewMemoryDismissals(announce.DefaultRetention),
		clock:        &fakeClock{now: time.Date(2026, time.May, 25, 10, 0, 0, 0, time.UTC)},
	}
	for _, opt := range opts {
		opt(e)
	}

	ctx := context.Background()
	for i, key := range domain.AllStageKeys() {
		require.NoError(t, e.stages.Upsert(ctx, testutil.NewTestStage(key, i)))
	}

	e.catalog = NewCatalogService(e.stages, e.tasks, e.items, time.Second)
	e.bridge = NewChecklistBridge(e.items, e.itemProgress, time.Second)
	e.ledger = NewLedgerService(e.tasks, e.taskProgress, e.bridge, time.Second)
	e.journeys = NewJourneyService(JourneyDeps{
		Editions:      e.editions,
		Participants:  e.participants,
		Sessions:      e.sessions,
		Triggers:      e.triggers,
		Announcements: e.manual,
		Posts:         e.posts,
		Catalog:       e.catalog,
		Ledger:        e.ledger,
		Bridge:        e.bridge,
		Dismissals:    e.dismissals,
		Feed:          feed,
		Timeout:       time.Second,
		WriteTimeout:  time.Second,
		Clock:         e.clock.Now,
		Observer:      e.observer,
	})
	return e
}

// seedParticipant stores an edition and a participant enrolled in it.
func (e *testEnv) seedParticipant(t *testing.T, userID string, edition *domain.Edition, opts ...testutil.ParticipantOption) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.editions.Upsert(ctx, edition))
	require.NoError(t, e.participants.Upsert(ctx, testutil.NewTestParticipant(userID, edition.ID, opts...)))
	e.edition = edition
	e.participantID = userID
}

func (e *testEnv) seedTask(t *testing.T, task *domain.Task) *domain.Task {
	t.Helper()
	require.NoError(t, e.tasks.Upsert(context.Background(), task))
	return task
}

func (e *testEnv) seedItems(t *testing.T, items ...*domain.ChecklistItem) []*domain.ChecklistItem {
	t.Helper()
	for _, item := range items {
		require.NoError(t, e.items.Upsert(context.Background(), item))
	}
	return items
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type flakyChecklistProgress struct {
	repository.ChecklistProgressRepo
	mu      sync.Mutex
	failFor map[string]bool
}

func (f *flakyChecklistProgress) fails(itemID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failFor[itemID]
}

func (f *flakyChecklistProgress) Upsert(ctx context.Context, p domain.ChecklistProgress) (bool, error) {
	if f.fails(p.ChecklistItemID) {
		return false, errInjected
	}
	return f.ChecklistProgressRepo.Upsert(ctx, p)
}

func (f *flakyChecklistProgress) Delete(ctx context.Context, userID, itemID string) (bool, error) {
	if f.fails(itemID) {
		return false, errInjected
	}
	return f.ChecklistProgressRepo.Delete(ctx, userID, itemID)
}
