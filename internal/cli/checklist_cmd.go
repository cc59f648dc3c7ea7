package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/service"
)

func newChecklistCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "checklist",
		Short: "Show the checklist grouped by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatChecklist(j.Checklist()))
			return nil
		},
	}
}

func newCheckCmd(app *App, flags *globalFlags) *cobra.Command {
	var uncheck bool
	cmd := &cobra.Command{
		Use:   "check <item-id>",
		Short: "Check a checklist item, or uncheck it with --uncheck",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			item, err := resolveItem(j, args[0])
			if err != nil {
				return err
			}
			m, err := j.ToggleChecklistItem(cmd.Context(), item.ID, !uncheck)
			if err != nil {
				return err
			}
			return reportWrite(cmd.Context(), cmd.OutOrStdout(), m, item.Title, !uncheck)
		},
	}
	cmd.Flags().BoolVar(&uncheck, "uncheck", false, "Uncheck the item instead")
	return cmd
}

// resolveItem accepts a full checklist item id or a unique prefix of one.
func resolveItem(j *service.Journey, ref string) (*domain.ChecklistItem, error) {
	var match *domain.ChecklistItem
	for _, c := range j.Checklist() {
		for _, e := range c.Entries {
			if e.Item.ID == ref {
				return e.Item, nil
			}
			if !strings.HasPrefix(e.Item.ID, ref) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("checklist item id %q is ambiguous", ref)
			}
			match = e.Item
		}
	}
	if match == nil {
		return nil, fmt.Errorf("unknown checklist item %q", ref)
	}
	return match, nil
}
