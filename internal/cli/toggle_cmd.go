package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/optimistic"
	"github.com/alexanderramin/journey/internal/service"
)

// pendingWrite is the part of an optimistic mutation a command waits on.
type pendingWrite interface {
	Wait(ctx context.Context) (optimistic.State, error)
}

func newToggleCmd(app *App, flags *globalFlags) *cobra.Command {
	var undo bool
	cmd := &cobra.Command{
		Use:   "toggle [task-id]",
		Short: "Mark a task complete, or incomplete with --undo",
		Long: "Mark a task complete, or incomplete with --undo. The id may be any unique prefix.\n" +
			"Without an id an interactive picker of the current stage's tasks is shown.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}

			var task *domain.Task
			completed := !undo
			if len(args) == 1 {
				if task, err = resolveTask(j, args[0]); err != nil {
					return err
				}
			} else {
				if !app.interactive() {
					return errors.New("task id required when not running in a terminal")
				}
				if task, err = pickTask(j); err != nil {
					return err
				}
				completed = !j.IsTaskCompleted(task.ID)
			}
			return toggleTask(cmd.Context(), cmd.OutOrStdout(), j, task, completed)
		},
	}
	cmd.Flags().BoolVar(&undo, "undo", false, "Mark the task incomplete instead")
	return cmd
}

func toggleTask(ctx context.Context, out io.Writer, j *service.Journey, task *domain.Task, completed bool) error {
	m, err := j.ToggleTask(ctx, task.ID, completed)
	if err != nil {
		return err
	}
	if m == nil {
		fmt.Fprintf(out, "%s %s is completed by your profile and cannot be changed here.\n",
			formatter.TaskMark(true, true), task.Title)
		return nil
	}
	return reportWrite(ctx, out, m, task.Title, completed)
}

// reportWrite waits for the write behind a prediction and prints the outcome.
func reportWrite(ctx context.Context, out io.Writer, m pendingWrite, title string, on bool) error {
	state, err := m.Wait(ctx)
	switch state {
	case optimistic.Confirmed:
		if on {
			fmt.Fprintf(out, "%s %s\n", formatter.StyleGreen.Render("✔"), title)
		} else {
			fmt.Fprintf(out, "%s %s\n", formatter.StyleDim.Render("○"), title)
		}
		return nil
	case optimistic.Reconciling:
		fmt.Fprintf(out, "%s %s saved, but the checklist is only partly updated: %v\n",
			formatter.StyleYellow.Render("!"), title, err)
		return nil
	case optimistic.Superseded:
		return nil
	default:
		if err == nil {
			err = errors.New("write did not complete")
		}
		return fmt.Errorf("updating %s: %w", title, err)
	}
}

// resolveTask accepts a full task id or a unique prefix of one.
func resolveTask(j *service.Journey, ref string) (*domain.Task, error) {
	if t, ok := j.Task(ref); ok {
		return t, nil
	}
	var match *domain.Task
	for _, key := range domain.AllStageKeys() {
		for _, t := range j.TasksForStage(key) {
			if !strings.HasPrefix(t.ID, ref) {
				continue
			}
			if match != nil {
				return nil, fmt.Errorf("task id %q is ambiguous", ref)
			}
			match = t
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", service.ErrTaskNotFound, ref)
	}
	return match, nil
}

// pickTask shows the current stage's toggleable tasks in a huh select.
func pickTask(j *service.Journey) (*domain.Task, error) {
	stage := j.CurrentStage()
	var options []huh.Option[string]
	for _, t := range j.TasksForStage(stage) {
		if !j.IsTaskToggleable(t.ID) {
			continue
		}
		label := "○ " + t.Title
		if j.IsTaskCompleted(t.ID) {
			label = "✔ " + t.Title
		}
		options = append(options, huh.NewOption(label, t.ID))
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no tasks to toggle in %s", stage)
	}

	var chosen string
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Toggle which task?").
				Options(options...).
				Value(&chosen),
		),
	).WithTheme(journeyHuhTheme()).WithShowHelp(false)
	if err := form.Run(); err != nil {
		return nil, err
	}
	t, _ := j.Task(chosen)
	return t, nil
}
