package importer

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/alexanderramin/journey/internal/announce"
	"github.com/alexanderramin/journey/internal/domain"
)

// newValidator builds a validator that reports yaml field names and knows
// the catalog's closed enums.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("stagekey", func(fl validator.FieldLevel) bool {
		return domain.StageKey(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("cohort", func(fl validator.FieldLevel) bool {
		return domain.ValidCohortTypes[fl.Field().String()]
	})
	_ = v.RegisterValidation("fact", func(fl validator.FieldLevel) bool {
		return domain.FactRef(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("triggertype", func(fl validator.FieldLevel) bool {
		return domain.ValidTriggerTypes[fl.Field().String()]
	})
	return v
}

// ValidateCatalogSchema checks the schema before conversion and returns every
// problem found, not just the first.
func ValidateCatalogSchema(schema *CatalogSchema) []error {
	var errs []error

	if err := newValidator().Struct(schema); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return []error{err}
		}
		for _, fe := range verrs {
			errs = append(errs, fieldError(fe))
		}
	}

	errs = append(errs, validateUniqueIDs(schema)...)
	errs = append(errs, validateEditions(schema.Editions)...)

	editionIDs := make(map[string]bool, len(schema.Editions))
	for _, e := range schema.Editions {
		editionIDs[e.ID] = true
	}
	errs = append(errs, validateParticipants(schema.Participants, editionIDs)...)
	errs = append(errs, validateSessions(schema.Sessions, editionIDs)...)
	errs = append(errs, validateTriggers(schema.Triggers)...)

	return errs
}

func fieldError(fe validator.FieldError) error {
	field := fe.Namespace()
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "datetime":
		return fmt.Errorf("%s: invalid value %q (expected %s)", field, fe.Value(), fe.Param())
	default:
		return fmt.Errorf("%s: invalid value %q", field, fmt.Sprint(fe.Value()))
	}
}

func validateUniqueIDs(schema *CatalogSchema) []error {
	var errs []error
	check := func(section string, ids []string) {
		seen := make(map[string]bool, len(ids))
		for i, id := range ids {
			if id == "" {
				continue
			}
			if seen[id] {
				errs = append(errs, fmt.Errorf("%s[%d]: duplicate id %q", section, i, id))
			}
			seen[id] = true
		}
	}

	ids := func(n int, get func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}
	check("stages", ids(len(schema.Stages), func(i int) string { return schema.Stages[i].Key }))
	check("tasks", ids(len(schema.Tasks), func(i int) string { return schema.Tasks[i].ID }))
	check("checklist_items", ids(len(schema.ChecklistItems), func(i int) string { return schema.ChecklistItems[i].ID }))
	check("triggers", ids(len(schema.Triggers), func(i int) string { return schema.Triggers[i].ID }))
	check("announcements", ids(len(schema.Announcements), func(i int) string { return schema.Announcements[i].ID }))
	check("editions", ids(len(schema.Editions), func(i int) string { return schema.Editions[i].ID }))
	check("participants", ids(len(schema.Participants), func(i int) string { return schema.Participants[i].UserID }))
	check("sessions", ids(len(schema.Sessions), func(i int) string { return schema.Sessions[i].ID }))
	return errs
}

func validateEditions(editions []EditionImport) []error {
	var errs []error
	for i, e := range editions {
		if e.StartDate == nil || e.EndDate == nil {
			continue
		}
		start, startErr := time.Parse(dateLayout, *e.StartDate)
		end, endErr := time.Parse(dateLayout, *e.EndDate)
		if startErr == nil && endErr == nil && end.Before(start) {
			errs = append(errs, fmt.Errorf("editions[%d].end_date %q must not be before start_date %q", i, *e.EndDate, *e.StartDate))
		}
	}
	return errs
}

func validateParticipants(participants []ParticipantImport, editionIDs map[string]bool) []error {
	var errs []error
	for i, p := range participants {
		if p.EditionID != "" && !editionIDs[p.EditionID] {
			errs = append(errs, fmt.Errorf("participants[%d].edition_id: ref %q not found in editions", i, p.EditionID))
		}
	}
	return errs
}

func validateSessions(sessions []SessionImport, editionIDs map[string]bool) []error {
	var errs []error
	for i, s := range sessions {
		prefix := fmt.Sprintf("sessions[%d]", i)
		if s.EditionID != "" && !editionIDs[s.EditionID] {
			errs = append(errs, fmt.Errorf("%s.edition_id: ref %q not found in editions", prefix, s.EditionID))
		}
		start, startErr := time.Parse(time.RFC3339, s.StartsAt)
		end, endErr := time.Parse(time.RFC3339, s.EndsAt)
		if startErr == nil && endErr == nil && !end.After(start) {
			errs = append(errs, fmt.Errorf("%s.ends_at must be after starts_at", prefix))
		}
	}
	return errs
}

// validateTriggers rejects configs the evaluator would skip at runtime.
func validateTriggers(triggers []TriggerImport) []error {
	var errs []error
	for i, t := range triggers {
		if !domain.ValidTriggerTypes[t.Type] {
			continue
		}
		trigger := &domain.AnnouncementTrigger{ID: t.ID, Type: domain.TriggerType(t.Type), Config: t.Config}
		if err := announce.ValidateConfig(trigger); err != nil {
			errs = append(errs, fmt.Errorf("triggers[%d].config: %w", i, err))
		}
	}
	return errs
}
