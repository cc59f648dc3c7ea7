package announce

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
)

// sessionSoonBand is the width of the half-open minute band (m-5, m] in
// which a session-starting-soon threshold m fires.
const sessionSoonBand = 5

// EvalState is the live state triggers are evaluated against.
type EvalState struct {
	Now            time.Time
	DaysUntilStart *int
	InLiveWindow   bool
	Streak         int
	Sessions       []*domain.ProgramSession
	Facts          domain.ProfileFacts
	Name           string
}

// Shuffler reorders equal-priority announcements. *rand.Rand from
// math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

type Options struct {
	// Dismissed holds announcement ids suppressed by the user.
	Dismissed map[string]bool
	// Shuffler randomises ties; nil keeps evaluation order.
	Shuffler Shuffler
	// Warn is told about triggers skipped for bad configuration.
	Warn func(triggerID string, err error)
}

// Evaluate runs every active trigger against state, merges the unexpired
// manual announcements, drops dismissed ids and returns the result with
// manual announcements first, each tier ranked by descending priority.
func Evaluate(triggers []*domain.AnnouncementTrigger, manual []*domain.ManualAnnouncement, state EvalState, opts Options) []domain.Announcement {
	var out []domain.Announcement

	for _, m := range manual {
		if m.Expired(state.Now) {
			continue
		}
		out = append(out, domain.Announcement{
			ID:       "manual:" + m.ID,
			Title:    m.Title,
			Message:  m.Body,
			DeepLink: m.DeepLink,
			Icon:     m.Icon,
			Priority: m.Priority,
			Manual:   true,
		})
	}

	for _, t := range triggers {
		if !t.IsActive {
			continue
		}
		fired, err := evaluateTrigger(t, state)
		if err != nil {
			if opts.Warn != nil {
				opts.Warn(t.ID, err)
			}
			continue
		}
		out = append(out, fired...)
	}

	out = slices.DeleteFunc(out, func(a domain.Announcement) bool {
		return opts.Dismissed[a.ID]
	})
	rank(out, opts.Shuffler)
	return out
}

func evaluateTrigger(t *domain.AnnouncementTrigger, state EvalState) ([]domain.Announcement, error) {
	switch t.Type {
	case domain.TriggerDeadlineApproaching:
		cfg, fact, err := decodeDeadline(t.Config)
		if err != nil {
			return nil, err
		}
		d := state.DaysUntilStart
		if d == nil || !slices.Contains(cfg.DaysBefore, *d) || progress.FactSatisfied(fact, state.Facts) {
			return nil, nil
		}
		return []domain.Announcement{render(t, strconv.Itoa(*d), "", vars{days: *d}, state)}, nil

	case domain.TriggerCountdownMilestone:
		cfg, err := decodeCountdown(t.Config)
		if err != nil {
			return nil, err
		}
		d := state.DaysUntilStart
		if d == nil || !slices.Contains(cfg.Days, *d) {
			return nil, nil
		}
		titleOverride := ""
		if *d == 0 {
			titleOverride = cfg.StartsTodayTitle
		}
		return []domain.Announcement{render(t, strconv.Itoa(*d), titleOverride, vars{days: *d}, state)}, nil

	case domain.TriggerStreakMilestone:
		cfg, err := decodeStreak(t.Config)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(cfg.Days, state.Streak) {
			return nil, nil
		}
		return []domain.Announcement{render(t, strconv.Itoa(state.Streak), "", vars{streak: state.Streak}, state)}, nil

	case domain.TriggerSessionStartingSoon:
		cfg, err := decodeSessionSoon(t.Config)
		if err != nil {
			return nil, err
		}
		if !state.InLiveWindow {
			return nil, nil
		}
		thresholds := slices.Clone(cfg.MinutesBefore)
		slices.Sort(thresholds)
		var out []domain.Announcement
		for _, s := range state.Sessions {
			if s.Status != domain.SessionScheduled {
				continue
			}
			minutes := minutesUntil(state.Now, s.StartsAt)
			if minutes <= 0 {
				continue
			}
			for _, m := range thresholds {
				if minutes > m-sessionSoonBand && minutes <= m {
					value := s.ID + ":" + strconv.Itoa(m)
					out = append(out, render(t, value, "", vars{minutes: minutes, session: s.Title}, state))
					break
				}
			}
		}
		return out, nil

	case domain.TriggerSessionLiveNow:
		var out []domain.Announcement
		for _, s := range state.Sessions {
			if s.Status == domain.SessionLive {
				out = append(out, render(t, s.ID, "", vars{session: s.Title}, state))
			}
		}
		return out, nil

	default:
		return nil, fmt.Errorf("%w: unknown trigger type %q", ErrInvalidConfig, t.Type)
	}
}

// minutesUntil rounds up, so a session 9m30s away is 10 minutes away.
func minutesUntil(now, at time.Time) int {
	return int(math.Ceil(at.Sub(now).Minutes()))
}

type vars struct {
	days    int
	streak  int
	minutes int
	session string
}

// AnnouncementID composes the dismissal key for one firing. The same trigger
// firing for the same value always yields the same id.
func AnnouncementID(t domain.TriggerType, triggerID, value string) string {
	return string(t) + ":" + triggerID + ":" + value
}

func render(t *domain.AnnouncementTrigger, value, titleOverride string, v vars, state EvalState) domain.Announcement {
	r := strings.NewReplacer(
		"{days}", strconv.Itoa(v.days),
		"{streak}", strconv.Itoa(v.streak),
		"{minutes}", strconv.Itoa(v.minutes),
		"{session}", v.session,
		"{name}", state.Name,
	)
	title := t.TitleTemplate
	if titleOverride != "" {
		title = titleOverride
	}
	return domain.Announcement{
		ID:       AnnouncementID(t.Type, t.ID, value),
		Title:    r.Replace(title),
		Message:  r.Replace(t.MessageTemplate),
		DeepLink: t.DeepLink,
		Icon:     t.Icon,
		Priority: t.Priority,
	}
}

// rank puts every manual announcement ahead of every generated one, then
// sorts each tier by descending priority. Evaluation order is kept among
// equals unless a shuffler is supplied, which reorders only announcements
// sharing both tier and priority.
func rank(list []domain.Announcement, shuffler Shuffler) {
	slices.SortStableFunc(list, compareRank)
	if shuffler == nil {
		return
	}
	for start := 0; start < len(list); {
		end := start + 1
		for end < len(list) && compareRank(list[start], list[end]) == 0 {
			end++
		}
		group := list[start:end]
		shuffler.Shuffle(len(group), func(i, j int) {
			group[i], group[j] = group[j], group[i]
		})
		start = end
	}
}

func compareRank(a, b domain.Announcement) int {
	if a.Manual != b.Manual {
		if a.Manual {
			return -1
		}
		return 1
	}
	return cmp.Compare(b.Priority, a.Priority)
}
