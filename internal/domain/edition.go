package domain

import (
	"time"
	_ "time/tzdata"
)

// Edition is one scheduled instance of a cohort program. StartDate and
// EndDate are calendar dates (midnight UTC) and may be unset while an
// edition is still being planned.
type Edition struct {
	ID         string
	Name       string
	CohortType CohortType
	StartDate  *time.Time
	EndDate    *time.Time
	Timezone   string
	CreatedAt  time.Time
}

// Location returns the edition's time zone, falling back to UTC when the
// zone name is empty or unknown.
func (e *Edition) Location() *time.Location {
	if e.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(e.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type Participant struct {
	UserID      string
	EditionID   string
	DisplayName string
	Facts       ProfileFacts
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProgramSession struct {
	ID        string
	EditionID string
	Title     string
	StartsAt  time.Time
	EndsAt    time.Time
	Status    SessionStatus
}

type CommunityPost struct {
	ID        string
	UserID    string
	Body      string
	CreatedAt time.Time
}
