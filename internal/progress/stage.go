package progress

import (
	"time"

	"github.com/alexanderramin/journey/internal/domain"
)

// Day thresholds of the lifecycle. Lower bounds are inclusive: exactly
// finalPrepDays out is final prep, exactly preTravelDays out is pre-travel.
const (
	finalPrepDays     = 15
	preTravelDays     = 30
	onlineProgramDays = 3
)

// ResolveStage maps the current instant onto exactly one lifecycle stage.
//
// Day counts are whole calendar days between now's local date and the
// edition dates, so callers should pass now in the edition's time zone.
// A simulation override is honoured before any date math: a forced stage is
// returned as-is and a simulated day offset is used as days-since-start.
// Missing edition dates never fail; a nil start falls through to
// pre-registration.
func ResolveStage(now time.Time, cohort domain.CohortType, start, end *time.Time, sim domain.SimulationContext) domain.StageKey {
	if sim.Stage != nil && sim.Stage.Valid() {
		return *sim.Stage
	}
	if sim.DayOffset != nil {
		return stageForDay(cohort, *sim.DayOffset)
	}

	today := dateOf(now)
	if end != nil && today.After(dateOf(*end)) {
		return domain.StagePostProgram
	}
	if start == nil {
		return domain.StagePreRegistration
	}
	return stageForDay(cohort, calendarDays(dateOf(*start), today))
}

// stageForDay resolves the stage from days since the edition start, where a
// negative value means the edition has not started yet.
func stageForDay(cohort domain.CohortType, daysSinceStart int) domain.StageKey {
	if daysSinceStart >= 0 {
		if cohort.SkipsOnlineProgram() || daysSinceStart >= onlineProgramDays {
			return domain.StageInPersonProgram
		}
		return domain.StageOnlineProgram
	}

	daysUntilStart := -daysSinceStart
	switch {
	case daysUntilStart <= finalPrepDays:
		return domain.StageFinalPrep
	case daysUntilStart <= preTravelDays:
		return domain.StagePreTravel
	default:
		return domain.StagePreRegistration
	}
}

// DaysUntilStart returns the calendar days from now until the edition start,
// negative once the edition has started, or nil when the start is unset.
func DaysUntilStart(now time.Time, start *time.Time) *int {
	if start == nil {
		return nil
	}
	d := calendarDays(dateOf(now), dateOf(*start))
	return &d
}

// SimulatedDaysUntilStart applies the simulation override to the countdown
// the announcement evaluator sees.
func SimulatedDaysUntilStart(now time.Time, start *time.Time, sim domain.SimulationContext) *int {
	if sim.DayOffset != nil {
		d := -*sim.DayOffset
		return &d
	}
	return DaysUntilStart(now, start)
}

// dateOf drops the clock part of t, keeping the calendar date as seen in
// t's own location.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// calendarDays returns to - from in whole days. Both arguments must already
// be normalised by dateOf.
func calendarDays(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

// Window is the inclusive range of days-since-start during which a stage is
// active. A nil bound is open.
type Window struct {
	FromDay *int
	ToDay   *int
}

// StageWindow describes when a stage applies to a cohort. The second result
// is false when the cohort never enters the stage. Post-program is keyed off
// the end date and has no day window.
func StageWindow(key domain.StageKey, cohort domain.CohortType) (Window, bool) {
	day := func(v int) *int { return &v }
	switch key {
	case domain.StagePreRegistration:
		return Window{ToDay: day(-preTravelDays - 1)}, true
	case domain.StagePreTravel:
		return Window{FromDay: day(-preTravelDays), ToDay: day(-finalPrepDays - 1)}, true
	case domain.StageFinalPrep:
		return Window{FromDay: day(-finalPrepDays), ToDay: day(-1)}, true
	case domain.StageOnlineProgram:
		if cohort.SkipsOnlineProgram() {
			return Window{}, false
		}
		return Window{FromDay: day(0), ToDay: day(onlineProgramDays - 1)}, true
	case domain.StageInPersonProgram:
		if cohort.SkipsOnlineProgram() {
			return Window{FromDay: day(0)}, true
		}
		return Window{FromDay: day(onlineProgramDays)}, true
	case domain.StagePostProgram:
		return Window{}, true
	}
	return Window{}, false
}
