package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
)

type StageRepo interface {
	ListActive(ctx context.Context) ([]*domain.Stage, error)
	Upsert(ctx context.Context, s *domain.Stage) error
}

type TaskRepo interface {
	ListActiveByCohort(ctx context.Context, cohort domain.CohortType) ([]*domain.Task, error)
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	Upsert(ctx context.Context, t *domain.Task) error
}

// TaskProgressRepo stores manual completion rows. Upsert and Delete report
// whether a row actually changed so callers can tell idempotent repeats apart.
type TaskProgressRepo interface {
	ListByUser(ctx context.Context, userID string) ([]domain.TaskProgress, error)
	Upsert(ctx context.Context, p domain.TaskProgress) (bool, error)
	Delete(ctx context.Context, userID, taskID string) (bool, error)
}

type ChecklistItemRepo interface {
	ListByCohort(ctx context.Context, cohort domain.CohortType) ([]*domain.ChecklistItem, error)
	ListByCategory(ctx context.Context, category string, cohort domain.CohortType) ([]*domain.ChecklistItem, error)
	GetByID(ctx context.Context, id string) (*domain.ChecklistItem, error)
	Upsert(ctx context.Context, item *domain.ChecklistItem) error
}

type ChecklistProgressRepo interface {
	ListByUser(ctx context.Context, userID string) ([]domain.ChecklistProgress, error)
	Upsert(ctx context.Context, p domain.ChecklistProgress) (bool, error)
	Delete(ctx context.Context, userID, itemID string) (bool, error)
}

type TriggerRepo interface {
	ListActive(ctx context.Context) ([]*domain.AnnouncementTrigger, error)
	Upsert(ctx context.Context, t *domain.AnnouncementTrigger) error
}

type ManualAnnouncementRepo interface {
	// ListActive returns announcements whose expiry is unset or after now.
	ListActive(ctx context.Context, now time.Time) ([]*domain.ManualAnnouncement, error)
	Upsert(ctx context.Context, m *domain.ManualAnnouncement) error
}

type EditionRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Edition, error)
	Upsert(ctx context.Context, e *domain.Edition) error
}

// ParticipantRepo resolves the participant and the profile facts the engine
// evaluates, including the community post count.
type ParticipantRepo interface {
	GetByUserID(ctx context.Context, userID string) (*domain.Participant, error)
	Upsert(ctx context.Context, p *domain.Participant) error
}

type CommunityPostRepo interface {
	Create(ctx context.Context, p *domain.CommunityPost) error
	CountByUser(ctx context.Context, userID string) (int, error)
}

type ProgramSessionRepo interface {
	ListByEdition(ctx context.Context, editionID string) ([]*domain.ProgramSession, error)
	Upsert(ctx context.Context, s *domain.ProgramSession) error
}
