package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
	"github.com/alexanderramin/journey/internal/service"
)

func newPostCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "post <message>",
		Short: "Post to the community feed",
		Long:  "Post to the community feed. Tasks that ask for a community introduction complete as soon as the post is stored.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			before := completedTasks(j)
			if err := j.Post(cmd.Context(), strings.Join(args, " ")); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, "Posted to the community feed.")
			for _, stage := range j.Stages() {
				for _, t := range j.TasksForStage(stage.Key) {
					if j.IsTaskCompleted(t.ID) && !before[t.ID] {
						fmt.Fprintf(w, "%s %s\n", formatter.TaskMark(true, true), t.Title)
					}
				}
			}
			return nil
		},
	}
}

func completedTasks(j *service.Journey) map[string]bool {
	out := make(map[string]bool)
	for _, stage := range j.Stages() {
		for _, t := range j.TasksForStage(stage.Key) {
			if j.IsTaskCompleted(t.ID) {
				out[t.ID] = true
			}
		}
	}
	return out
}
