package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/service"
)

// StageSummary is everything the stage header shows.
type StageSummary struct {
	Name      string
	Edition   string
	Stage     domain.StageKey
	Title     string
	DaysUntil *int
	Stats     progress.Stats
	Simulated bool
}

func FormatStageSummary(s StageSummary) string {
	var b strings.Builder
	title := s.Title
	if title == "" {
		title = string(s.Stage)
	}
	b.WriteString(StageBadge(s.Stage) + "  " + Bold(title))
	if s.Simulated {
		b.WriteString("  " + StylePurple.Render("[simulated]"))
	}
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "%s  %s\n", Dim("Participant"), s.Name)
	fmt.Fprintf(&b, "%s      %s\n", Dim("Edition"), s.Edition)
	fmt.Fprintf(&b, "%s     %s\n", Dim("Schedule"), Countdown(s.DaysUntil))
	fmt.Fprintf(&b, "%s     %s  %s\n", Dim("Progress"), RenderProgress(s.Stats.Percent(), 20),
		Dim(fmt.Sprintf("%d/%d tasks", s.Stats.Completed, s.Stats.Total)))
	if s.Stats.RequiredTotal > 0 {
		fmt.Fprintf(&b, "%s     %s\n", Dim("Required"), RenderFraction(s.Stats.RequiredCompleted, s.Stats.RequiredTotal))
	}
	return RenderBox("", strings.TrimRight(b.String(), "\n")) + "\n"
}

// TaskRow is one line of the task list.
type TaskRow struct {
	ID        string
	Title     string
	Required  bool
	Completed bool
	Auto      bool
	Due       *time.Time
}

func FormatTaskList(stage domain.StageKey, rows []TaskRow, now time.Time) string {
	var b strings.Builder
	b.WriteString(Header(strings.ReplaceAll(string(stage), "_", " ")) + "\n")
	if len(rows) == 0 {
		b.WriteString(Dim("No tasks for this stage.") + "\n")
		return b.String()
	}

	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		title := r.Title
		if r.Completed {
			title = Dim(title)
		}
		flags := ""
		if r.Required {
			flags = StyleRed.Render("required")
		}
		if r.Auto {
			flags = strings.TrimSpace(flags + " " + StyleAqua.Render("auto"))
		}
		due := Dim("--")
		if r.Due != nil {
			due = RelativeDateFrom(*r.Due, now)
		}
		table = append(table, []string{TaskMark(r.Completed, r.Auto), title, flags, due, TruncID(r.ID)})
	}
	b.WriteString(RenderTable([]string{"", "TASK", "", "DUE", "ID"}, table))
	return b.String()
}

func FormatChecklist(categories []service.ChecklistCategory) string {
	if len(categories) == 0 {
		return Dim("No checklist items.") + "\n"
	}
	var b strings.Builder
	for i, c := range categories {
		if i > 0 {
			b.WriteString("\n")
		}
		p := c.Progress
		pct := 0.0
		if p.Total > 0 {
			pct = float64(p.Checked) / float64(p.Total)
		}
		fmt.Fprintf(&b, "%s  %s  %s\n", Bold(c.Category), RenderCompactBar(pct, 10, false), RenderFraction(p.Checked, p.Total))
		for _, e := range c.Entries {
			mark := StyleDim.Render("[ ]")
			title := e.Item.Title
			if e.Checked {
				mark = StyleGreen.Render("[x]")
				title = Dim(title)
			}
			fmt.Fprintf(&b, "  %s %s %s\n", mark, title, TruncID(e.Item.ID))
		}
	}
	return b.String()
}

// StageStatRow is one stage in the stats overview.
type StageStatRow struct {
	Stage   domain.StageKey
	Stats   progress.Stats
	Current bool
}

func FormatStats(rows []StageStatRow) string {
	table := make([][]string, 0, len(rows))
	for _, r := range rows {
		name := StageBadge(r.Stage)
		if r.Current {
			name += " " + StyleHeader.Render("◀")
		}
		required := Dim("--")
		if r.Stats.RequiredTotal > 0 {
			required = RenderFraction(r.Stats.RequiredCompleted, r.Stats.RequiredTotal)
		}
		table = append(table, []string{
			name,
			RenderFraction(r.Stats.Completed, r.Stats.Total),
			required,
			RenderProgress(r.Stats.Percent(), 12),
		})
	}
	return Header("Journey progress") + "\n" + RenderTable([]string{"STAGE", "TASKS", "REQUIRED", "PROGRESS"}, table)
}

func FormatAnnouncements(list []domain.Announcement) string {
	if len(list) == 0 {
		return Dim("Nothing to announce.") + "\n"
	}
	var b strings.Builder
	for _, a := range list {
		icon := a.Icon
		if icon == "" {
			icon = "•"
		}
		title := StyleBold.Render(a.Title)
		if a.Manual {
			title = StyleHeader.Render(a.Title)
		}
		fmt.Fprintf(&b, "%s %s\n", icon, title)
		if a.Message != "" && a.Message != a.Title {
			fmt.Fprintf(&b, "  %s\n", a.Message)
		}
		if a.DeepLink != "" {
			fmt.Fprintf(&b, "  %s\n", StyleBlue.Render(a.DeepLink))
		}
		fmt.Fprintf(&b, "  %s\n", Dim("id "+a.ID))
	}
	return b.String()
}
