package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
)

func newAnnouncementsCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "announcements",
		Aliases: []string{"news"},
		Short:   "Show the announcements that apply right now",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			list, err := j.Announcements(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAnnouncements(list))
			return nil
		},
	}
}

func newDismissCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "dismiss <announcement-id>",
		Short: "Hide an announcement until the dismissal retention window passes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			if err := j.DismissAnnouncement(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dismissed %s\n", formatter.Dim(args[0]))
			return nil
		},
	}
}
