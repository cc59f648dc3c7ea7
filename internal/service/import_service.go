package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/importer"
	"github.com/alexanderramin/journey/internal/repository"
)

type importService struct {
	uow      db.UnitOfWork
	observer UseCaseObserver
}

// NewImportService writes whole catalog files through uow, so an import
// either lands completely or not at all.
func NewImportService(uow db.UnitOfWork, observers ...UseCaseObserver) ImportService {
	return &importService{uow: uow, observer: useCaseObserverOrNoop(observers)}
}

func (s *importService) Import(ctx context.Context, filePath string) (*ImportResult, error) {
	schema, err := importer.LoadCatalogSchema(filePath)
	if err != nil {
		return nil, fmt.Errorf("loading catalog file: %w", err)
	}
	return s.ImportFromSchema(ctx, schema)
}

func (s *importService) ImportFromSchema(ctx context.Context, schema *importer.CatalogSchema) (result *ImportResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer observe(ctx, s.observer, "import-catalog", startedAt, fields, &err)

	if errs := importer.ValidateCatalogSchema(schema); len(errs) > 0 {
		fields["validation_errors"] = len(errs)
		return nil, formatValidationErrors(errs)
	}

	catalog, err := importer.Convert(schema)
	if err != nil {
		return nil, fmt.Errorf("converting catalog: %w", err)
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		stages := repository.NewSQLStageRepo(tx)
		items := repository.NewSQLChecklistItemRepo(tx)
		tasks := repository.NewSQLTaskRepo(tx)
		triggers := repository.NewSQLTriggerRepo(tx)
		manual := repository.NewSQLManualAnnouncementRepo(tx)
		editions := repository.NewSQLEditionRepo(tx)
		participants := repository.NewSQLParticipantRepo(tx)
		posts := repository.NewSQLCommunityPostRepo(tx)
		sessions := repository.NewSQLProgramSessionRepo(tx)

		for _, st := range catalog.Stages {
			if err := stages.Upsert(ctx, st); err != nil {
				return fmt.Errorf("writing stage %q: %w", st.Key, err)
			}
		}
		for _, item := range catalog.ChecklistItems {
			if err := items.Upsert(ctx, item); err != nil {
				return fmt.Errorf("writing checklist item %q: %w", item.ID, err)
			}
		}
		for _, t := range catalog.Tasks {
			if err := tasks.Upsert(ctx, t); err != nil {
				return fmt.Errorf("writing task %q: %w", t.ID, err)
			}
		}
		for _, t := range catalog.Triggers {
			if err := triggers.Upsert(ctx, t); err != nil {
				return fmt.Errorf("writing trigger %q: %w", t.ID, err)
			}
		}
		for _, m := range catalog.Announcements {
			if err := manual.Upsert(ctx, m); err != nil {
				return fmt.Errorf("writing announcement %q: %w", m.ID, err)
			}
		}
		for _, e := range catalog.Editions {
			if err := editions.Upsert(ctx, e); err != nil {
				return fmt.Errorf("writing edition %q: %w", e.ID, err)
			}
		}
		for _, p := range catalog.Participants {
			if err := participants.Upsert(ctx, p); err != nil {
				return fmt.Errorf("writing participant %q: %w", p.UserID, err)
			}
		}
		for _, p := range catalog.Posts {
			if err := posts.Create(ctx, p); err != nil {
				return fmt.Errorf("writing post %q: %w", p.ID, err)
			}
		}
		for _, ps := range catalog.Sessions {
			if err := sessions.Upsert(ctx, ps); err != nil {
				return fmt.Errorf("writing session %q: %w", ps.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result = &ImportResult{
		Stages:         len(catalog.Stages),
		Tasks:          len(catalog.Tasks),
		ChecklistItems: len(catalog.ChecklistItems),
		Triggers:       len(catalog.Triggers),
		Announcements:  len(catalog.Announcements),
		Editions:       len(catalog.Editions),
		Participants:   len(catalog.Participants),
		Sessions:       len(catalog.Sessions),
	}
	fields["tasks"] = result.Tasks
	fields["checklist_items"] = result.ChecklistItems
	return result, nil
}

func formatValidationErrors(errs []error) error {
	msg := fmt.Sprintf("import validation failed (%d errors):", len(errs))
	for _, e := range errs {
		msg += "\n  - " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
