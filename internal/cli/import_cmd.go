package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
)

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Load stages, tasks, checklist, triggers and participants from a YAML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stop := func() {}
			if app.interactive() {
				stop = formatter.StartSpinner(cmd.ErrOrStderr(), "Importing "+args[0])
			}
			result, err := app.Import.Import(cmd.Context(), args[0])
			stop()
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Stages", fmt.Sprint(result.Stages)},
				{"Tasks", fmt.Sprint(result.Tasks)},
				{"Checklist items", fmt.Sprint(result.ChecklistItems)},
				{"Triggers", fmt.Sprint(result.Triggers)},
				{"Announcements", fmt.Sprint(result.Announcements)},
				{"Editions", fmt.Sprint(result.Editions)},
				{"Participants", fmt.Sprint(result.Participants)},
				{"Sessions", fmt.Sprint(result.Sessions)},
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"IMPORTED", "ROWS"}, rows))
			return nil
		},
	}
}
