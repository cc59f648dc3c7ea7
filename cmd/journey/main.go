package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/journey/internal/announce"
	"github.com/alexanderramin/journey/internal/cli"
	"github.com/alexanderramin/journey/internal/config"
	"github.com/alexanderramin/journey/internal/db"
	"github.com/alexanderramin/journey/internal/repository"
	"github.com/alexanderramin/journey/internal/service"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// A .env file is optional; real environment variables win.
	_ = godotenv.Load()

	var database *sqlx.DB
	defer func() {
		if database != nil {
			database.Close()
		}
	}()

	app := &cli.App{
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
		},
	}
	app.Setup = func(configPath string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		database, err = db.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return fmt.Errorf("opening %s store: %w", cfg.Store.Driver, err)
		}
		wire(app, cfg, database)
		return nil
	}

	return cli.NewRootCmd(app).Execute()
}

// wire builds repositories and services over database and installs them on
// app.
func wire(app *cli.App, cfg *config.Config, database *sqlx.DB) {
	var observer service.UseCaseObserver = service.NoopUseCaseObserver{}
	if cfg.Log.Enabled {
		observer = service.NewLogUseCaseObserver(os.Stderr)
	}
	timeout := cfg.Store.Timeout

	// Wire repositories; progress writes publish to one shared feed.
	feed := repository.NewChangeFeed()
	stageRepo := repository.NewSQLStageRepo(database)
	taskRepo := repository.NewSQLTaskRepo(database)
	taskProgressRepo := repository.NewSQLTaskProgressRepo(database, feed)
	itemRepo := repository.NewSQLChecklistItemRepo(database)
	itemProgressRepo := repository.NewSQLChecklistProgressRepo(database, feed)

	// Wire services
	catalog := service.NewCatalogService(stageRepo, taskRepo, itemRepo, timeout)
	bridge := service.NewChecklistBridge(itemRepo, itemProgressRepo, timeout, observer)
	ledger := service.NewLedgerService(taskRepo, taskProgressRepo, bridge, timeout, observer)

	var shuffler announce.Shuffler
	if cfg.Announcements.Shuffle {
		seed := uint64(time.Now().UnixNano())
		shuffler = rand.New(rand.NewPCG(seed, seed>>32))
	}

	app.Journeys = service.NewJourneyService(service.JourneyDeps{
		Editions:      repository.NewSQLEditionRepo(database),
		Participants:  repository.NewSQLParticipantRepo(database),
		Sessions:      repository.NewSQLProgramSessionRepo(database),
		Triggers:      repository.NewSQLTriggerRepo(database),
		Announcements: repository.NewSQLManualAnnouncementRepo(database),
		Posts:         repository.NewSQLCommunityPostRepo(database),
		Catalog:       catalog,
		Ledger:        ledger,
		Bridge:        bridge,
		Dismissals:    announce.NewFileDismissals(cfg.Dismissals.Path, cfg.Dismissals.Retention),
		Feed:          feed,
		Timeout:       timeout,
		WriteTimeout:  timeout,
		Shuffler:      shuffler,
		Location:      cfg.Location(),
		Observer:      observer,
	})
	app.Import = service.NewImportService(db.NewSQLUnitOfWork(database), observer)
	app.DefaultUser = cfg.User
}
