package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
)

const dateLayout = "2006-01-02"

// Catalog is a converted import file, ready for persistence.
type Catalog struct {
	Stages         []*domain.Stage
	Tasks          []*domain.Task
	ChecklistItems []*domain.ChecklistItem
	Triggers       []*domain.AnnouncementTrigger
	Announcements  []*domain.ManualAnnouncement
	Editions       []*domain.Edition
	Participants   []*domain.Participant
	Posts          []*domain.CommunityPost
	Sessions       []*domain.ProgramSession
}

// Convert transforms a validated CatalogSchema into domain objects.
// Call ValidateCatalogSchema first; Convert assumes the schema is valid.
func Convert(schema *CatalogSchema) (*Catalog, error) {
	now := time.Now().UTC()
	out := &Catalog{}

	defaults := schema.Defaults
	if defaults == nil {
		defaults = &DefaultsImport{}
	}

	for _, s := range schema.Stages {
		out.Stages = append(out.Stages, &domain.Stage{
			Key:             domain.StageKey(s.Key),
			Title:           s.Title,
			OrderIndex:      s.Order,
			DaysBeforeStart: domain.IntFromPtrWithDefault(0, s.DaysBeforeStart),
			DaysAfterStart:  domain.IntFromPtrWithDefault(0, s.DaysAfterStart),
			IsActive:        domain.BoolFromPtrWithDefault(true, s.Active),
		})
	}

	for _, t := range schema.Tasks {
		task := &domain.Task{
			ID:            t.ID,
			StageKey:      domain.StageKey(t.Stage),
			Title:         t.Title,
			Description:   t.Description,
			CohortTypes:   cohortsOrDefault(t.Cohorts, defaults.Cohorts),
			IsRequired:    domain.BoolFromPtrWithDefault(false, t.Required, defaults.Required),
			IsActive:      domain.BoolFromPtrWithDefault(true, t.Active),
			DueDaysOffset: t.DueDaysOffset,
			OrderIndex:    t.Order,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if t.AutoCompleteFact != "" {
			fact, err := domain.ParseFactRef(t.AutoCompleteFact)
			if err != nil {
				return nil, fmt.Errorf("task %q: %w", t.ID, err)
			}
			task.AutoCompleteFact = &fact
		}
		if t.LinkedChecklistCategory != "" {
			category := t.LinkedChecklistCategory
			task.LinkedChecklistCategory = &category
		}
		out.Tasks = append(out.Tasks, task)
	}

	for _, c := range schema.ChecklistItems {
		out.ChecklistItems = append(out.ChecklistItems, &domain.ChecklistItem{
			ID:         c.ID,
			Category:   c.Category,
			CohortType: domain.CohortType(domain.CoalesceStr(c.Cohort, firstOf(defaults.Cohorts), string(domain.CohortStandard))),
			Title:      c.Title,
			OrderIndex: c.Order,
		})
	}

	for _, t := range schema.Triggers {
		cfg := t.Config
		if cfg == nil {
			cfg = map[string]any{}
		}
		out.Triggers = append(out.Triggers, &domain.AnnouncementTrigger{
			ID:              t.ID,
			Type:            domain.TriggerType(t.Type),
			TitleTemplate:   t.Title,
			MessageTemplate: t.Message,
			DeepLink:        t.DeepLink,
			Icon:            t.Icon,
			Priority:        t.Priority,
			IsActive:        domain.BoolFromPtrWithDefault(true, t.Active),
			Config:          cfg,
		})
	}

	for _, a := range schema.Announcements {
		m := &domain.ManualAnnouncement{
			ID:        a.ID,
			Title:     a.Title,
			Body:      a.Body,
			DeepLink:  a.DeepLink,
			Icon:      a.Icon,
			Priority:  a.Priority,
			CreatedAt: now,
		}
		if a.ExpiryAt != nil && *a.ExpiryAt != "" {
			at, err := time.Parse(time.RFC3339, *a.ExpiryAt)
			if err != nil {
				return nil, fmt.Errorf("announcement %q expiry_at: %w", a.ID, err)
			}
			at = at.UTC()
			m.ExpiryAt = &at
		}
		out.Announcements = append(out.Announcements, m)
	}

	for _, e := range schema.Editions {
		out.Editions = append(out.Editions, &domain.Edition{
			ID:         e.ID,
			Name:       e.Name,
			CohortType: domain.CohortType(e.Cohort),
			StartDate:  parseOptionalDate(e.StartDate),
			EndDate:    parseOptionalDate(e.EndDate),
			Timezone:   domain.CoalesceStr(e.Timezone, defaults.Timezone),
			CreatedAt:  now,
		})
	}

	for _, p := range schema.Participants {
		out.Participants = append(out.Participants, &domain.Participant{
			UserID:      p.UserID,
			EditionID:   p.EditionID,
			DisplayName: domain.CoalesceStr(p.DisplayName, p.UserID),
			Facts: domain.ProfileFacts{
				WaiverSigned:         p.Facts.WaiverSigned,
				MedicalFormSubmitted: p.Facts.MedicalFormSubmitted,
				TravelFormSubmitted:  p.Facts.TravelFormSubmitted,
				ProfileComplete:      p.Facts.ProfileComplete,
				Payment:              domain.PaymentMilestone(domain.CoalesceStr(p.Facts.Payment, string(domain.PaymentNone))),
				SocialHandle:         p.Facts.SocialHandle,
				StreakDays:           p.Facts.StreakDays,
			},
			CreatedAt: now,
			UpdatedAt: now,
		})
		for _, post := range p.Posts {
			out.Posts = append(out.Posts, &domain.CommunityPost{
				ID:        post.ID,
				UserID:    p.UserID,
				Body:      post.Body,
				CreatedAt: now,
			})
		}
	}

	for _, s := range schema.Sessions {
		startsAt, err := time.Parse(time.RFC3339, s.StartsAt)
		if err != nil {
			return nil, fmt.Errorf("session %q starts_at: %w", s.ID, err)
		}
		endsAt, err := time.Parse(time.RFC3339, s.EndsAt)
		if err != nil {
			return nil, fmt.Errorf("session %q ends_at: %w", s.ID, err)
		}
		out.Sessions = append(out.Sessions, &domain.ProgramSession{
			ID:        s.ID,
			EditionID: s.EditionID,
			Title:     s.Title,
			StartsAt:  startsAt.UTC(),
			EndsAt:    endsAt.UTC(),
			Status:    domain.SessionStatus(domain.CoalesceStr(s.Status, string(domain.SessionScheduled))),
		})
	}

	return out, nil
}

// cohortsOrDefault applies the cascade: row cohorts, then file defaults,
// then every cohort.
func cohortsOrDefault(row, defaults []string) []domain.CohortType {
	src := row
	if len(src) == 0 {
		src = defaults
	}
	if len(src) == 0 {
		return []domain.CohortType{domain.CohortStandard, domain.CohortExecutive, domain.CohortImmersion}
	}
	out := make([]domain.CohortType, 0, len(src))
	for _, c := range src {
		out = append(out, domain.CohortType(c))
	}
	return out
}

func firstOf(vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func parseOptionalDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
