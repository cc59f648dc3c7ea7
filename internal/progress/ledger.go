package progress

import "github.com/alexanderramin/journey/internal/domain"

// Snapshot is everything completion depends on for one user at one moment.
// Manual holds task ids with an explicit completion row; Checklist is keyed
// by category. A category missing from Checklist counts as empty.
type Snapshot struct {
	Manual    map[string]bool
	Facts     domain.ProfileFacts
	Checklist map[string]CategoryProgress
}

// ManualFromRows collects the task ids with a completed progress row.
func ManualFromRows(rows []domain.TaskProgress) map[string]bool {
	manual := make(map[string]bool, len(rows))
	for _, r := range rows {
		if r.Status == domain.ProgressCompleted || r.Status == "" {
			manual[r.TaskID] = true
		}
	}
	return manual
}

// IsAutoCompleted reports whether the task is satisfied without a manual
// row. A linked checklist category takes precedence over the fact.
func IsAutoCompleted(task *domain.Task, snap Snapshot) bool {
	if cat := task.LinkedCategory(); cat != "" {
		return snap.Checklist[cat].Complete()
	}
	if task.AutoCompleteFact != nil {
		return FactSatisfied(*task.AutoCompleteFact, snap.Facts)
	}
	return false
}

// IsComplete is the effective completion state. For a task linked to a
// populated category the category alone decides, and the task's own row is
// only an audit mirror. Otherwise completion is the manual row or the
// auto-completion predicate.
func IsComplete(task *domain.Task, snap Snapshot) bool {
	if cat := task.LinkedCategory(); cat != "" {
		if p := snap.Checklist[cat]; p.Total > 0 {
			return p.Complete()
		}
	}
	return snap.Manual[task.ID] || IsAutoCompleted(task, snap)
}

// IsManuallyToggleable reports whether callers may offer a toggle. Tasks
// satisfied by a profile fact cannot be un-completed by hand; linked tasks
// always can, since toggling them rewrites the checklist.
func IsManuallyToggleable(task *domain.Task, snap Snapshot) bool {
	if task.LinkedCategory() != "" {
		return true
	}
	return !IsAutoCompleted(task, snap)
}

type Stats struct {
	Completed         int
	Total             int
	RequiredCompleted int
	RequiredTotal     int
}

// Percent returns completion in [0, 1]; an empty stage counts as done.
func (s Stats) Percent() float64 {
	if s.Total == 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}

// StageStats tallies effective completion over the given tasks. Callers pass
// the tasks already filtered to one stage and cohort.
func StageStats(tasks []*domain.Task, snap Snapshot) Stats {
	var s Stats
	for _, t := range tasks {
		done := IsComplete(t, snap)
		s.Total++
		if done {
			s.Completed++
		}
		if t.IsRequired {
			s.RequiredTotal++
			if done {
				s.RequiredCompleted++
			}
		}
	}
	return s
}
