package domain

import "time"

type TriggerType string

const (
	TriggerDeadlineApproaching TriggerType = "deadline_approaching"
	TriggerCountdownMilestone  TriggerType = "countdown_milestone"
	TriggerStreakMilestone     TriggerType = "streak_milestone"
	TriggerSessionStartingSoon TriggerType = "session_starting_soon"
	TriggerSessionLiveNow      TriggerType = "session_live_now"
)

// ValidTriggerTypes is the canonical set of accepted trigger type strings.
var ValidTriggerTypes = map[string]bool{
	"deadline_approaching":  true,
	"countdown_milestone":   true,
	"streak_milestone":      true,
	"session_starting_soon": true,
	"session_live_now":      true,
}

// AnnouncementTrigger is an admin-authored rule. Config holds the raw,
// type-specific payload; the evaluator decodes it into one of the typed
// configs below.
type AnnouncementTrigger struct {
	ID              string
	Type            TriggerType
	TitleTemplate   string
	MessageTemplate string
	DeepLink        string
	Icon            string
	Priority        int
	IsActive        bool
	Config          map[string]any
}

type DeadlineConfig struct {
	DaysBefore []int  `mapstructure:"days_before"`
	Fact       string `mapstructure:"fact"`
}

type CountdownConfig struct {
	Days             []int  `mapstructure:"days"`
	StartsTodayTitle string `mapstructure:"starts_today_title"`
}

type StreakConfig struct {
	Days []int `mapstructure:"days"`
}

type SessionSoonConfig struct {
	MinutesBefore []int `mapstructure:"minutes_before"`
}

type SessionLiveConfig struct{}

type ManualAnnouncement struct {
	ID        string
	Title     string
	Body      string
	DeepLink  string
	Icon      string
	Priority  int
	ExpiryAt  *time.Time
	CreatedAt time.Time
}

// Expired reports whether the announcement's expiry has passed at now.
func (m *ManualAnnouncement) Expired(now time.Time) bool {
	return m.ExpiryAt != nil && now.After(*m.ExpiryAt)
}

// Announcement is a ranked, user-facing message, either generated by a
// trigger or authored manually.
type Announcement struct {
	ID       string
	Title    string
	Message  string
	DeepLink string
	Icon     string
	Priority int
	Manual   bool
}

type Dismissal struct {
	AnnouncementID string    `json:"announcement_id"`
	DismissedAt    time.Time `json:"dismissed_at"`
}

// SimulationContext carries the administrator testing override. A zero value
// means no simulation.
type SimulationContext struct {
	Stage     *StageKey
	DayOffset *int
}

// Active reports whether any override is set.
func (s SimulationContext) Active() bool {
	return s.Stage != nil || s.DayOffset != nil
}
