package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/service"
)

// App holds the services used by CLI commands.
type App struct {
	Journeys *service.JourneyService
	Import   service.ImportService

	// DefaultUser is used when --user is not given.
	DefaultUser string
	// IsInteractive reports whether prompts may be shown. Nil means never.
	IsInteractive func() bool
	// Setup runs before every command with the --config path and fills in
	// the fields above. Tests leave it nil and wire App directly.
	Setup func(configPath string) error
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

var errNoUser = errors.New("no participant selected: pass --user or set JOURNEY_USER")

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath    string
	user          string
	simulateStage string
	simulateDay   int
}

// NewRootCmd creates the top-level "journey" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	flags := &globalFlags{}
	root := &cobra.Command{
		Use:           "journey",
		Short:         "Participant journey: stages, tasks, checklist and announcements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.Setup == nil {
				return nil
			}
			return app.Setup(flags.configPath)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Config file (default ~/.journey/config.yaml)")
	pf.StringVarP(&flags.user, "user", "u", "", "Participant user id")
	pf.StringVar(&flags.simulateStage, "simulate-stage", "", "Preview the journey as if in this stage")
	pf.IntVar(&flags.simulateDay, "simulate-day", 0, "Preview the journey this many days after the edition start (negative for before)")

	root.AddCommand(
		newImportCmd(app),
		newStageCmd(app, flags),
		newTasksCmd(app, flags),
		newToggleCmd(app, flags),
		newChecklistCmd(app, flags),
		newCheckCmd(app, flags),
		newStatsCmd(app, flags),
		newAnnouncementsCmd(app, flags),
		newDismissCmd(app, flags),
		newPostCmd(app, flags),
		newWatchCmd(app, flags),
	)
	return root
}

func (f *globalFlags) simulation(cmd *cobra.Command) (domain.SimulationContext, error) {
	var sim domain.SimulationContext
	if f.simulateStage != "" {
		key := domain.StageKey(f.simulateStage)
		if !key.Valid() {
			return sim, fmt.Errorf("unknown stage %q", f.simulateStage)
		}
		sim.Stage = &key
	}
	if cmd.Flags().Changed("simulate-day") {
		day := f.simulateDay
		sim.DayOffset = &day
	}
	return sim, nil
}

// openJourney resolves the participant and simulation flags and opens a
// journey session for the command.
func openJourney(cmd *cobra.Command, app *App, f *globalFlags) (*service.Journey, error) {
	user := f.user
	if user == "" {
		user = app.DefaultUser
	}
	if user == "" {
		return nil, errNoUser
	}
	sim, err := f.simulation(cmd)
	if err != nil {
		return nil, err
	}
	return app.Journeys.Open(cmd.Context(), user, sim)
}
