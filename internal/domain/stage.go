package domain

import "time"

type Stage struct {
	Key             StageKey
	Title           string
	OrderIndex      int
	DaysBeforeStart int
	DaysAfterStart  int
	IsActive        bool
}

type Task struct {
	ID                      string
	StageKey                StageKey
	Title                   string
	Description             string
	CohortTypes             []CohortType
	AutoCompleteFact        *FactRef
	LinkedChecklistCategory *string
	IsRequired              bool
	IsActive                bool
	DueDaysOffset           *int
	OrderIndex              int
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// VisibleTo reports whether the task applies to participants of the cohort.
func (t *Task) VisibleTo(cohort CohortType) bool {
	for _, c := range t.CohortTypes {
		if c == cohort {
			return true
		}
	}
	return false
}

// LinkedCategory returns the linked checklist category, or "" when unlinked.
func (t *Task) LinkedCategory() string {
	if t.LinkedChecklistCategory == nil {
		return ""
	}
	return *t.LinkedChecklistCategory
}

type TaskProgress struct {
	UserID      string
	TaskID      string
	Status      ProgressStatus
	CompletedAt time.Time
}

type ChecklistItem struct {
	ID         string
	Category   string
	CohortType CohortType
	Title      string
	OrderIndex int
}

type ChecklistProgress struct {
	UserID          string
	ChecklistItemID string
	CheckedAt       time.Time
}
