package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexanderramin/journey/internal/cli/formatter"
	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/service"
)

func newStageCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stage",
		Short: "Show the current stage and its progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStageSummary(stageSummary(j)))
			return nil
		},
	}
}

func stageSummary(j *service.Journey) formatter.StageSummary {
	stage := j.CurrentStage()
	s := formatter.StageSummary{
		Name:      j.DisplayName(),
		Edition:   j.Edition().Name,
		Stage:     stage,
		DaysUntil: j.DaysUntilStart(),
		Stats:     j.StageStats(stage),
		Simulated: j.Simulation().Active(),
	}
	if st, ok := j.Stage(stage); ok {
		s.Title = st.Title
	}
	return s
}

func newTasksCmd(app *App, flags *globalFlags) *cobra.Command {
	var stageFlag string
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List the tasks of the current stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			stage := j.CurrentStage()
			if stageFlag != "" {
				stage = domain.StageKey(stageFlag)
				if !stage.Valid() {
					return fmt.Errorf("unknown stage %q", stageFlag)
				}
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTaskList(stage, taskRows(j, stage), j.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&stageFlag, "stage", "", "Stage to list instead of the current one")
	return cmd
}

func taskRows(j *service.Journey, stage domain.StageKey) []formatter.TaskRow {
	tasks := j.TasksForStage(stage)
	rows := make([]formatter.TaskRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, formatter.TaskRow{
			ID:        t.ID,
			Title:     t.Title,
			Required:  t.IsRequired,
			Completed: j.IsTaskCompleted(t.ID),
			Auto:      j.IsTaskAutoCompleted(t.ID),
			Due:       j.DueDate(t),
		})
	}
	return rows
}

func newStatsCmd(app *App, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion for every stage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := openJourney(cmd, app, flags)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatStats(stageStatRows(j)))
			return nil
		},
	}
}

func stageStatRows(j *service.Journey) []formatter.StageStatRow {
	current := j.CurrentStage()
	var rows []formatter.StageStatRow
	for _, key := range domain.AllStageKeys() {
		if len(j.TasksForStage(key)) == 0 && key != current {
			continue
		}
		rows = append(rows, formatter.StageStatRow{
			Stage:   key,
			Stats:   j.StageStats(key),
			Current: key == current,
		})
	}
	return rows
}
