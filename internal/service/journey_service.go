package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/journey/internal/announce"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/optimistic"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/repository"
)

// JourneyDeps wires a JourneyService. Clock, Shuffler, Location and Observer
// are optional.
type JourneyDeps struct {
	Editions      repository.EditionRepo
	Participants  repository.ParticipantRepo
	Sessions      repository.ProgramSessionRepo
	Triggers      repository.TriggerRepo
	Announcements repository.ManualAnnouncementRepo
	Posts         repository.CommunityPostRepo
	Catalog       CatalogService
	Ledger        LedgerService
	Bridge        ChecklistBridge
	Dismissals    announce.DismissalStore
	Feed          *repository.ChangeFeed

	Timeout      time.Duration
	WriteTimeout time.Duration
	Clock        func() time.Time
	Shuffler     announce.Shuffler
	// Location overrides the edition time zone for calendar-day math.
	Location *time.Location
	Observer UseCaseObserver
}

type JourneyService struct {
	deps JourneyDeps
}

func NewJourneyService(deps JourneyDeps) *JourneyService {
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Observer == nil {
		deps.Observer = NoopUseCaseObserver{}
	}
	return &JourneyService{deps: deps}
}

type viewKind uint8

const (
	viewTask viewKind = iota
	viewChecklist
)

// viewKey addresses one locally held progress row: a manual task completion
// or a checked checklist item.
type viewKey struct {
	Kind viewKind
	ID   string
}

// Journey is one participant's session: the catalog and profile facts are
// resolved once on Open, and progress is held in an optimistic view.
type Journey struct {
	svc     *JourneyService
	userID  string
	sim     domain.SimulationContext
	edition *domain.Edition
	cohort  domain.CohortType

	stages   []*domain.Stage
	tasks    map[domain.StageKey][]*domain.Task
	taskByID map[string]*domain.Task
	items    map[string][]*domain.ChecklistItem
	itemByID map[string]*domain.ChecklistItem

	mu    sync.RWMutex
	facts domain.ProfileFacts
	name  string

	view *optimistic.Controller[viewKey, bool]
}

// Open loads the participant, their edition and the cohort's catalog, then
// performs the first authoritative progress read.
func (s *JourneyService) Open(ctx context.Context, userID string, sim domain.SimulationContext) (j *Journey, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"user": userID, "simulated": sim.Active()}
	defer observe(ctx, s.deps.Observer, "open-journey", startedAt, fields, &err)

	participant, err := withTimeout(ctx, s.deps.Timeout, func(ctx context.Context) (*domain.Participant, error) {
		return s.deps.Participants.GetByUserID(ctx, userID)
	})
	if err != nil {
		return nil, fmt.Errorf("loading participant %s: %w", userID, err)
	}
	edition, err := withTimeout(ctx, s.deps.Timeout, func(ctx context.Context) (*domain.Edition, error) {
		return s.deps.Editions.GetByID(ctx, participant.EditionID)
	})
	if err != nil {
		return nil, fmt.Errorf("loading edition %s: %w", participant.EditionID, err)
	}
	cohort := edition.CohortType.Normalize()
	fields["cohort"] = string(cohort)

	stages, err := s.deps.Catalog.Stages(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := s.deps.Catalog.TasksForCohort(ctx, cohort)
	if err != nil {
		return nil, err
	}
	items, err := s.deps.Catalog.ChecklistForCohort(ctx, cohort)
	if err != nil {
		return nil, err
	}

	j = &Journey{
		svc:      s,
		userID:   userID,
		sim:      sim,
		edition:  edition,
		cohort:   cohort,
		stages:   stages,
		tasks:    tasks,
		taskByID: make(map[string]*domain.Task),
		items:    items,
		itemByID: make(map[string]*domain.ChecklistItem),
		facts:    participant.Facts,
		name:     participant.DisplayName,
	}
	for _, group := range tasks {
		for _, t := range group {
			j.taskByID[t.ID] = t
			if f := t.AutoCompleteFact; f != nil && !f.Valid() && t.LinkedCategory() == "" {
				warn(ctx, s.deps.Observer, "unknown-auto-complete-fact",
					fmt.Errorf("task %s: unknown auto-complete fact %q never completes it", t.ID, *f),
					map[string]any{"task": t.ID, "fact": string(*f)})
			}
		}
	}
	for _, group := range items {
		for _, item := range group {
			j.itemByID[item.ID] = item
		}
	}
	j.view = optimistic.New[viewKey, bool](optimistic.Options{
		WriteTimeout: s.deps.WriteTimeout,
		IsPartial:    IsPartialSync,
		OnSettled:    j.onSettled,
	})

	if err := j.syncProgress(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journey) UserID() string { return j.userID }

func (j *Journey) Edition() *domain.Edition { return j.edition }

func (j *Journey) Cohort() domain.CohortType { return j.cohort }

func (j *Journey) Simulation() domain.SimulationContext { return j.sim }

func (j *Journey) DisplayName() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.name
}

// Stages returns the active catalog stages in lifecycle order.
func (j *Journey) Stages() []*domain.Stage { return slices.Clone(j.stages) }

// Stage returns the catalog row for key, if the stage is active.
func (j *Journey) Stage(key domain.StageKey) (*domain.Stage, bool) {
	for _, st := range j.stages {
		if st.Key == key {
			return st, true
		}
	}
	return nil, false
}

func (j *Journey) location() *time.Location {
	if j.svc.deps.Location != nil {
		return j.svc.deps.Location
	}
	return j.edition.Location()
}

// Now is the current instant in the journey's calendar time zone.
func (j *Journey) Now() time.Time {
	return j.svc.deps.Clock().In(j.location())
}

func (j *Journey) CurrentStage() domain.StageKey {
	return progress.ResolveStage(j.Now(), j.cohort, j.edition.StartDate, j.edition.EndDate, j.sim)
}

// DaysUntilStart is the countdown the announcement evaluator sees, with the
// simulation override applied.
func (j *Journey) DaysUntilStart() *int {
	return progress.SimulatedDaysUntilStart(j.Now(), j.edition.StartDate, j.sim)
}

// TasksForStage returns the cohort's active tasks for the stage in display
// order.
func (j *Journey) TasksForStage(stage domain.StageKey) []*domain.Task {
	return slices.Clone(j.tasks[stage])
}

// DueDate places a task's due offset on the edition calendar. It is nil when
// the task has no offset or the edition has no start date.
func (j *Journey) DueDate(t *domain.Task) *time.Time {
	if t.DueDaysOffset == nil || j.edition.StartDate == nil {
		return nil
	}
	due := j.edition.StartDate.AddDate(0, 0, *t.DueDaysOffset)
	return &due
}

// Task looks a task up by id among the cohort's visible tasks.
func (j *Journey) Task(taskID string) (*domain.Task, bool) {
	t, ok := j.taskByID[taskID]
	return t, ok
}

func (j *Journey) Facts() domain.ProfileFacts {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.facts
}

// snapshot reads the local view, predictions included.
func (j *Journey) snapshot() progress.Snapshot {
	view := j.view.Snapshot()
	manual := make(map[string]bool)
	checked := make(map[string]bool)
	for k, v := range view {
		if !v {
			continue
		}
		switch k.Kind {
		case viewTask:
			manual[k.ID] = true
		case viewChecklist:
			checked[k.ID] = true
		}
	}
	var all []*domain.ChecklistItem
	for _, group := range j.items {
		all = append(all, group...)
	}
	return progress.Snapshot{
		Manual:    manual,
		Facts:     j.Facts(),
		Checklist: progress.CategoryProgressFor(all, checked),
	}
}

func (j *Journey) IsTaskCompleted(taskID string) bool {
	t, ok := j.taskByID[taskID]
	if !ok {
		return false
	}
	return progress.IsComplete(t, j.snapshot())
}

func (j *Journey) IsTaskAutoCompleted(taskID string) bool {
	t, ok := j.taskByID[taskID]
	if !ok {
		return false
	}
	return progress.IsAutoCompleted(t, j.snapshot())
}

func (j *Journey) IsTaskToggleable(taskID string) bool {
	t, ok := j.taskByID[taskID]
	if !ok {
		return false
	}
	return progress.IsManuallyToggleable(t, j.snapshot())
}

func (j *Journey) StageStats(stage domain.StageKey) progress.Stats {
	return progress.StageStats(j.tasks[stage], j.snapshot())
}

// ToggleTask predicts the new completion state locally and writes it in the
// background. It returns a nil mutation when the task is auto-completed by a
// profile fact and so cannot be toggled by hand.
func (j *Journey) ToggleTask(ctx context.Context, taskID string, completed bool) (*optimistic.Mutation[viewKey, bool], error) {
	task, ok := j.taskByID[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	snap := j.snapshot()
	if !progress.IsManuallyToggleable(task, snap) {
		return nil, nil
	}

	patch := map[viewKey]optimistic.Op[bool]{
		{Kind: viewTask, ID: task.ID}: opFor(completed),
	}
	for _, item := range j.items[task.LinkedCategory()] {
		patch[viewKey{Kind: viewChecklist, ID: item.ID}] = opFor(completed)
	}

	req := ToggleRequest{
		UserID:    j.userID,
		Cohort:    j.cohort,
		TaskID:    task.ID,
		Completed: completed,
		Snapshot:  snap,
	}
	return j.view.Mutate(ctx, patch, func(ctx context.Context) error {
		_, err := j.svc.deps.Ledger.Toggle(ctx, req)
		return err
	}), nil
}

// ToggleChecklistItem changes one checklist item. A linked task reflects
// the change through its category; no task row is written.
func (j *Journey) ToggleChecklistItem(ctx context.Context, itemID string, checked bool) (*optimistic.Mutation[viewKey, bool], error) {
	if _, ok := j.itemByID[itemID]; !ok {
		return nil, fmt.Errorf("checklist item %s: %w", itemID, repository.ErrNotFound)
	}
	patch := map[viewKey]optimistic.Op[bool]{
		{Kind: viewChecklist, ID: itemID}: opFor(checked),
	}
	return j.view.Mutate(ctx, patch, func(ctx context.Context) error {
		_, err := j.svc.deps.Bridge.ToggleItem(ctx, j.userID, itemID, checked)
		return err
	}), nil
}

func opFor(on bool) optimistic.Op[bool] {
	if on {
		return optimistic.Put(true)
	}
	return optimistic.Remove[bool]()
}

// Pending reports writes that have not settled yet.
func (j *Journey) Pending() int { return j.view.Pending() }

// ChecklistEntry is one item with its local checked state.
type ChecklistEntry struct {
	Item    *domain.ChecklistItem
	Checked bool
}

// ChecklistCategory is one category of the participant's checklist.
type ChecklistCategory struct {
	Category string
	Entries  []ChecklistEntry
	Progress progress.CategoryProgress
}

// Checklist returns every category for the cohort, sorted by name.
func (j *Journey) Checklist() []ChecklistCategory {
	snap := j.snapshot()
	view := j.view.Snapshot()
	out := make([]ChecklistCategory, 0, len(j.items))
	for category, items := range j.items {
		c := ChecklistCategory{Category: category, Progress: snap.Checklist[category]}
		for _, item := range items {
			c.Entries = append(c.Entries, ChecklistEntry{Item: item, Checked: view[viewKey{Kind: viewChecklist, ID: item.ID}]})
		}
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b ChecklistCategory) int {
		switch {
		case a.Category < b.Category:
			return -1
		case a.Category > b.Category:
			return 1
		}
		return 0
	})
	return out
}

// Announcements evaluates every trigger against the current state and
// merges the manual announcements, with dismissed ids removed.
func (j *Journey) Announcements(ctx context.Context) ([]domain.Announcement, error) {
	deps := j.svc.deps
	now := j.Now()

	triggers, err := withTimeout(ctx, deps.Timeout, deps.Triggers.ListActive)
	if err != nil {
		return nil, fmt.Errorf("listing triggers: %w", err)
	}
	manual, err := withTimeout(ctx, deps.Timeout, func(ctx context.Context) ([]*domain.ManualAnnouncement, error) {
		return deps.Announcements.ListActive(ctx, now)
	})
	if err != nil {
		return nil, fmt.Errorf("listing announcements: %w", err)
	}
	sessions, err := withTimeout(ctx, deps.Timeout, func(ctx context.Context) ([]*domain.ProgramSession, error) {
		return deps.Sessions.ListByEdition(ctx, j.edition.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}

	dismissed := map[string]bool{}
	if deps.Dismissals != nil {
		if dismissed, err = deps.Dismissals.Active(now); err != nil {
			return nil, fmt.Errorf("reading dismissals: %w", err)
		}
	}

	j.mu.RLock()
	facts, name := j.facts, j.name
	j.mu.RUnlock()

	state := announce.EvalState{
		Now:            now,
		DaysUntilStart: j.DaysUntilStart(),
		InLiveWindow:   j.CurrentStage().IsLive(),
		Streak:         facts.StreakDays,
		Sessions:       sessions,
		Facts:          facts,
		Name:           name,
	}
	return announce.Evaluate(triggers, manual, state, announce.Options{
		Dismissed: dismissed,
		Shuffler:  deps.Shuffler,
		Warn: func(triggerID string, err error) {
			warn(ctx, deps.Observer, "evaluate-trigger", err, map[string]any{"trigger": triggerID})
		},
	}), nil
}

func (j *Journey) DismissAnnouncement(id string) error {
	if j.svc.deps.Dismissals == nil {
		return nil
	}
	if err := j.svc.deps.Dismissals.Dismiss(id, j.svc.deps.Clock()); err != nil {
		return fmt.Errorf("dismissing %s: %w", id, err)
	}
	return nil
}

// Post records a community post for the participant and re-reads the
// profile facts, so tasks completed by an introduction post flip at once.
func (j *Journey) Post(ctx context.Context, body string) (err error) {
	deps := j.svc.deps
	startedAt := time.Now().UTC()
	defer observe(ctx, deps.Observer, "community-post", startedAt, map[string]any{"user": j.userID}, &err)

	if deps.Posts == nil {
		return fmt.Errorf("community posts are not configured")
	}
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("post body is required")
	}
	_, err = withTimeout(ctx, deps.Timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, deps.Posts.Create(ctx, &domain.CommunityPost{
			UserID:    j.userID,
			Body:      strings.TrimSpace(body),
			CreatedAt: deps.Clock().UTC(),
		})
	})
	if err != nil {
		return err
	}
	return j.Refresh(ctx)
}

// Refresh re-reads the profile facts and replaces the local progress view
// with the store's state. Keys with a newer local prediction are kept.
func (j *Journey) Refresh(ctx context.Context) error {
	deps := j.svc.deps
	participant, err := withTimeout(ctx, deps.Timeout, func(ctx context.Context) (*domain.Participant, error) {
		return deps.Participants.GetByUserID(ctx, j.userID)
	})
	if err != nil {
		return fmt.Errorf("reloading participant: %w", err)
	}
	j.mu.Lock()
	j.facts = participant.Facts
	j.name = participant.DisplayName
	j.mu.Unlock()
	return j.syncProgress(ctx)
}

func (j *Journey) syncProgress(ctx context.Context) error {
	return j.view.Sync(ctx, func(ctx context.Context) (map[viewKey]bool, error) {
		manual, err := j.svc.deps.Ledger.ManualCompletions(ctx, j.userID)
		if err != nil {
			return nil, err
		}
		checked, err := j.svc.deps.Bridge.CheckedItems(ctx, j.userID)
		if err != nil {
			return nil, err
		}
		out := make(map[viewKey]bool, len(manual)+len(checked))
		for id := range manual {
			out[viewKey{Kind: viewTask, ID: id}] = true
		}
		for id := range checked {
			out[viewKey{Kind: viewChecklist, ID: id}] = true
		}
		return out, nil
	})
}

// onSettled re-reads progress after a write lands. A partial write always
// resyncs; a confirmed one resyncs only when it was the last queued write.
func (j *Journey) onSettled(state optimistic.State, err error) {
	switch state {
	case optimistic.Reconciling:
	case optimistic.Confirmed:
		if j.view.Pending() > 0 {
			return
		}
	default:
		return
	}
	ctx := context.Background()
	if rerr := j.syncProgress(ctx); rerr != nil {
		warn(ctx, j.svc.deps.Observer, "refresh-progress", rerr, map[string]any{"user": j.userID})
	}
}

// Watch merges the user's task and checklist change events into one
// channel, closed when ctx is done.
func (j *Journey) Watch(ctx context.Context) <-chan repository.ChangeEvent {
	out := make(chan repository.ChangeEvent)
	feed := j.svc.deps.Feed
	if feed == nil {
		close(out)
		return out
	}
	filter := repository.ChangeFilter{UserID: j.userID}
	tasks, cancelTasks := feed.Subscribe(repository.CollectionTaskProgress, filter)
	items, cancelItems := feed.Subscribe(repository.CollectionChecklistProgress, filter)

	go func() {
		defer close(out)
		defer cancelTasks()
		defer cancelItems()
		for {
			var ev repository.ChangeEvent
			var ok bool
			select {
			case <-ctx.Done():
				return
			case ev, ok = <-tasks:
			case ev, ok = <-items:
			}
			if !ok {
				return
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
