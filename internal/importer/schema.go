package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogSchema is the top-level YAML structure of a catalog import file.
// Every section is optional; rows are upserted by id so a file can be
// re-imported after edits.
type CatalogSchema struct {
	Defaults       *DefaultsImport       `yaml:"defaults,omitempty"`
	Stages         []StageImport         `yaml:"stages" validate:"dive"`
	Tasks          []TaskImport          `yaml:"tasks" validate:"dive"`
	ChecklistItems []ChecklistItemImport `yaml:"checklist_items" validate:"dive"`
	Triggers       []TriggerImport       `yaml:"triggers" validate:"dive"`
	Announcements  []AnnouncementImport  `yaml:"announcements" validate:"dive"`
	Editions       []EditionImport       `yaml:"editions" validate:"dive"`
	Participants   []ParticipantImport   `yaml:"participants" validate:"dive"`
	Sessions       []SessionImport       `yaml:"sessions" validate:"dive"`
}

// DefaultsImport holds file-wide defaults that cascade onto rows that leave
// the field unset.
type DefaultsImport struct {
	Cohorts  []string `yaml:"cohorts,omitempty" validate:"dive,cohort"`
	Required *bool    `yaml:"required,omitempty"`
	Timezone string   `yaml:"timezone,omitempty" validate:"omitempty,timezone"`
}

type StageImport struct {
	Key             string `yaml:"key" validate:"required,stagekey"`
	Title           string `yaml:"title" validate:"required"`
	Order           int    `yaml:"order"`
	DaysBeforeStart *int   `yaml:"days_before_start,omitempty" validate:"omitempty,gte=0"`
	DaysAfterStart  *int   `yaml:"days_after_start,omitempty" validate:"omitempty,gte=0"`
	Active          *bool  `yaml:"active,omitempty"`
}

type TaskImport struct {
	ID                      string   `yaml:"id" validate:"required"`
	Stage                   string   `yaml:"stage" validate:"required,stagekey"`
	Title                   string   `yaml:"title" validate:"required"`
	Description             string   `yaml:"description,omitempty"`
	Cohorts                 []string `yaml:"cohorts,omitempty" validate:"dive,cohort"`
	AutoCompleteFact        string   `yaml:"auto_complete_fact,omitempty" validate:"omitempty,fact"`
	LinkedChecklistCategory string   `yaml:"linked_checklist_category,omitempty"`
	Required                *bool    `yaml:"required,omitempty"`
	Active                  *bool    `yaml:"active,omitempty"`
	DueDaysOffset           *int     `yaml:"due_days_offset,omitempty"`
	Order                   int      `yaml:"order"`
}

type ChecklistItemImport struct {
	ID       string `yaml:"id" validate:"required"`
	Category string `yaml:"category" validate:"required"`
	Cohort   string `yaml:"cohort,omitempty" validate:"omitempty,cohort"`
	Title    string `yaml:"title" validate:"required"`
	Order    int    `yaml:"order"`
}

type TriggerImport struct {
	ID       string         `yaml:"id" validate:"required"`
	Type     string         `yaml:"type" validate:"required,triggertype"`
	Title    string         `yaml:"title" validate:"required"`
	Message  string         `yaml:"message,omitempty"`
	DeepLink string         `yaml:"deep_link,omitempty"`
	Icon     string         `yaml:"icon,omitempty"`
	Priority int            `yaml:"priority"`
	Active   *bool          `yaml:"active,omitempty"`
	Config   map[string]any `yaml:"config,omitempty"`
}

type AnnouncementImport struct {
	ID       string  `yaml:"id" validate:"required"`
	Title    string  `yaml:"title" validate:"required"`
	Body     string  `yaml:"body,omitempty"`
	DeepLink string  `yaml:"deep_link,omitempty"`
	Icon     string  `yaml:"icon,omitempty"`
	Priority int     `yaml:"priority"`
	ExpiryAt *string `yaml:"expiry_at,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

type EditionImport struct {
	ID        string  `yaml:"id" validate:"required"`
	Name      string  `yaml:"name" validate:"required"`
	Cohort    string  `yaml:"cohort" validate:"required,cohort"`
	StartDate *string `yaml:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate   *string `yaml:"end_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Timezone  string  `yaml:"timezone,omitempty" validate:"omitempty,timezone"`
}

type ParticipantImport struct {
	UserID      string       `yaml:"user_id" validate:"required"`
	EditionID   string       `yaml:"edition_id" validate:"required"`
	DisplayName string       `yaml:"display_name,omitempty"`
	Facts       FactsImport  `yaml:"facts,omitempty"`
	Posts       []PostImport `yaml:"posts,omitempty" validate:"dive"`
}

type FactsImport struct {
	WaiverSigned         bool   `yaml:"waiver_signed,omitempty"`
	MedicalFormSubmitted bool   `yaml:"medical_form_submitted,omitempty"`
	TravelFormSubmitted  bool   `yaml:"travel_form_submitted,omitempty"`
	ProfileComplete      bool   `yaml:"profile_complete,omitempty"`
	Payment              string `yaml:"payment,omitempty" validate:"omitempty,oneof=none deposit paid_in_full"`
	SocialHandle         string `yaml:"social_handle,omitempty"`
	StreakDays           int    `yaml:"streak_days,omitempty" validate:"gte=0"`
}

type PostImport struct {
	ID   string `yaml:"id" validate:"required"`
	Body string `yaml:"body" validate:"required"`
}

type SessionImport struct {
	ID        string `yaml:"id" validate:"required"`
	EditionID string `yaml:"edition_id" validate:"required"`
	Title     string `yaml:"title" validate:"required"`
	StartsAt  string `yaml:"starts_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndsAt    string `yaml:"ends_at" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Status    string `yaml:"status,omitempty" validate:"omitempty,oneof=scheduled live ended"`
}

// LoadCatalogSchema reads and parses a catalog YAML file.
func LoadCatalogSchema(path string) (*CatalogSchema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogSchema(data)
}

// ParseCatalogSchema parses catalog YAML. Unknown keys are rejected so a
// misspelt field does not silently drop data.
func ParseCatalogSchema(data []byte) (*CatalogSchema, error) {
	var schema CatalogSchema
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&schema); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog file: %w", err)
	}
	return &schema, nil
}
