package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/google/uuid"
)

var testOrderCounter atomic.Int64

// Date returns midnight UTC on the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func IntPtr(v int) *int { return &v }

func StrPtr(v string) *string { return &v }

// Edition options
type EditionOption func(*domain.Edition)

func WithCohort(c domain.CohortType) EditionOption {
	return func(e *domain.Edition) {
		e.CohortType = c
	}
}

func WithDates(start, end time.Time) EditionOption {
	return func(e *domain.Edition) {
		e.StartDate = &start
		e.EndDate = &end
	}
}

func WithoutDates() EditionOption {
	return func(e *domain.Edition) {
		e.StartDate = nil
		e.EndDate = nil
	}
}

func NewTestEdition(name string, opts ...EditionOption) *domain.Edition {
	start := Date(2026, time.June, 1)
	end := Date(2026, time.June, 14)
	e := &domain.Edition{
		ID:         uuid.New().String(),
		Name:       name,
		CohortType: domain.CohortStandard,
		StartDate:  &start,
		EndDate:    &end,
		CreatedAt:  time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Participant options
type ParticipantOption func(*domain.Participant)

func WithFacts(f domain.ProfileFacts) ParticipantOption {
	return func(p *domain.Participant) {
		p.Facts = f
	}
}

func WithDisplayName(name string) ParticipantOption {
	return func(p *domain.Participant) {
		p.DisplayName = name
	}
}

func NewTestParticipant(userID, editionID string, opts ...ParticipantOption) *domain.Participant {
	now := time.Now().UTC()
	p := &domain.Participant{
		UserID:      userID,
		EditionID:   editionID,
		DisplayName: userID,
		Facts:       domain.ProfileFacts{Payment: domain.PaymentNone},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func NewTestStage(key domain.StageKey, order int) *domain.Stage {
	return &domain.Stage{
		Key:        key,
		Title:      string(key),
		OrderIndex: order,
		IsActive:   true,
	}
}

// Task options
type TaskOption func(*domain.Task)

func WithCohorts(cs ...domain.CohortType) TaskOption {
	return func(t *domain.Task) {
		t.CohortTypes = cs
	}
}

func WithAutoComplete(f domain.FactRef) TaskOption {
	return func(t *domain.Task) {
		t.AutoCompleteFact = &f
	}
}

func WithLinkedCategory(category string) TaskOption {
	return func(t *domain.Task) {
		t.LinkedChecklistCategory = &category
	}
}

func WithRequired(required bool) TaskOption {
	return func(t *domain.Task) {
		t.IsRequired = required
	}
}

func WithInactive() TaskOption {
	return func(t *domain.Task) {
		t.IsActive = false
	}
}

func WithTaskID(id string) TaskOption {
	return func(t *domain.Task) {
		t.ID = id
	}
}

func WithDueDaysOffset(d int) TaskOption {
	return func(t *domain.Task) {
		t.DueDaysOffset = &d
	}
}

func NewTestTask(stage domain.StageKey, title string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.New().String(),
		StageKey:    stage,
		Title:       title,
		CohortTypes: []domain.CohortType{domain.CohortStandard, domain.CohortExecutive, domain.CohortImmersion},
		IsActive:    true,
		OrderIndex:  int(testOrderCounter.Add(1)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func NewTestChecklistItem(category string, cohort domain.CohortType, title string) *domain.ChecklistItem {
	return &domain.ChecklistItem{
		ID:         uuid.New().String(),
		Category:   category,
		CohortType: cohort,
		Title:      title,
		OrderIndex: int(testOrderCounter.Add(1)),
	}
}

// NewTestChecklistItems builds n items in one category, titled "<category> 1..n".
func NewTestChecklistItems(category string, cohort domain.CohortType, n int) []*domain.ChecklistItem {
	items := make([]*domain.ChecklistItem, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, NewTestChecklistItem(category, cohort, fmt.Sprintf("%s %d", category, i)))
	}
	return items
}

// Trigger options
type TriggerOption func(*domain.AnnouncementTrigger)

func WithPriority(p int) TriggerOption {
	return func(tr *domain.AnnouncementTrigger) {
		tr.Priority = p
	}
}

func WithTemplates(title, message string) TriggerOption {
	return func(tr *domain.AnnouncementTrigger) {
		tr.TitleTemplate = title
		tr.MessageTemplate = message
	}
}

func WithTriggerID(id string) TriggerOption {
	return func(tr *domain.AnnouncementTrigger) {
		tr.ID = id
	}
}

func NewTestTrigger(typ domain.TriggerType, cfg map[string]any, opts ...TriggerOption) *domain.AnnouncementTrigger {
	tr := &domain.AnnouncementTrigger{
		ID:              uuid.New().String(),
		Type:            typ,
		TitleTemplate:   string(typ),
		MessageTemplate: string(typ),
		IsActive:        true,
		Config:          cfg,
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}

func NewTestManualAnnouncement(title string, priority int, expiry *time.Time) *domain.ManualAnnouncement {
	return &domain.ManualAnnouncement{
		ID:        uuid.New().String(),
		Title:     title,
		Body:      title,
		Priority:  priority,
		ExpiryAt:  expiry,
		CreatedAt: time.Now().UTC(),
	}
}

func NewTestSession(editionID, title string, startsAt time.Time, status domain.SessionStatus) *domain.ProgramSession {
	return &domain.ProgramSession{
		ID:        uuid.New().String(),
		EditionID: editionID,
		Title:     title,
		StartsAt:  startsAt,
		EndsAt:    startsAt.Add(90 * time.Minute),
		Status:    status,
	}
}
