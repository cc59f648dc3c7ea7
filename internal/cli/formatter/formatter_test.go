package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alexanderramin/journey/internal/domain"
	"github.com/alexanderramin/journey/internal/progress"
	"github.com/alexanderramin/journey/internal/service"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRelativeDateFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		input time.Time
		want  string
	}{
		{"today", now, "Today"},
		{"tomorrow", now.Add(24 * time.Hour), "Tomorrow"},
		{"yesterday", now.Add(-24 * time.Hour), "Yesterday"},
		{"3 days future", now.Add(3 * 24 * time.Hour), "In 3d"},
		{"3 days past", now.Add(-3 * 24 * time.Hour), "3d ago"},
		{"3 weeks future", now.Add(21 * 24 * time.Hour), "In 3w"},
		{"3 months future", now.Add(90 * 24 * time.Hour), "In 3mo"},
		{"2 weeks past", now.Add(-14 * 24 * time.Hour), "2w ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RelativeDateFrom(tt.input, now))
		})
	}
}

func TestCountdown(t *testing.T) {
	day := func(v int) *int { return &v }
	assert.Equal(t, "No start date", stripANSI(Countdown(nil)))
	assert.Equal(t, "Starts today", stripANSI(Countdown(day(0))))
	assert.Equal(t, "Starts tomorrow", stripANSI(Countdown(day(1))))
	assert.Equal(t, "Starts in 30 days", stripANSI(Countdown(day(30))))
	assert.Equal(t, "Day 3 of the program", stripANSI(Countdown(day(-2))))
}

func TestSinceFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "just now", SinceFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", SinceFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", SinceFrom(now.Add(-3*time.Hour), now))
}

func TestRenderCompactBar(t *testing.T) {
	tests := []struct {
		name  string
		pct   float64
		width int
		dim   bool
	}{
		{"0% normal", 0.0, 10, false},
		{"50% normal", 0.5, 10, false},
		{"100% normal", 1.0, 10, false},
		{"50% dimmed", 0.5, 10, true},
		{"over 100% clamps", 1.5, 10, false},
		{"negative clamps", -0.5, 10, false},
		{"tiny width clamps to 2", 0.5, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripANSI(RenderCompactBar(tt.pct, tt.width, tt.dim))
			assert.Equal(t, max(tt.width, 2), len([]rune(got)))
			assert.NotContains(t, got, "%")
		})
	}
}

func TestRenderProgress(t *testing.T) {
	assert.Equal(t, "[██░░]  50%", stripANSI(RenderProgress(0.5, 4)))
	assert.Equal(t, "[████] 100%", stripANSI(RenderProgress(2, 4)))
}

func TestRenderTable_AlignsVisibleWidth(t *testing.T) {
	out := stripANSI(RenderTable([]string{"A", "LONGER"}, [][]string{
		{StyleGreen.Render("xyz"), "1"},
		{"w"},
	}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert.Equal(t, []string{
		"A    LONGER",
		"───  ──────",
		"xyz  1",
		"w    ",
	}, lines)
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}

func TestFormatTaskList(t *testing.T) {
	now := time.Date(2026, 5, 25, 0, 0, 0, 0, time.UTC)
	due := now.Add(3 * 24 * time.Hour)
	out := stripANSI(FormatTaskList(domain.StageFinalPrep, []TaskRow{
		{ID: "task-0001-abcdef", Title: "Print tickets", Required: true, Due: &due},
		{ID: "task-0002", Title: "Sign waiver", Completed: true, Auto: true},
	}, now))

	assert.Contains(t, out, "FINAL PREP")
	assert.Contains(t, out, "○  Print tickets")
	assert.Contains(t, out, "required")
	assert.Contains(t, out, "In 3d")
	assert.Contains(t, out, "task-000")
	assert.Contains(t, out, "◆  Sign waiver")
	assert.Contains(t, out, "auto")
}

func TestFormatTaskList_Empty(t *testing.T) {
	out := stripANSI(FormatTaskList(domain.StagePreTravel, nil, time.Now()))
	assert.Contains(t, out, "No tasks for this stage.")
}

func TestFormatChecklist(t *testing.T) {
	out := stripANSI(FormatChecklist([]service.ChecklistCategory{{
		Category: "packing",
		Entries: []service.ChecklistEntry{
			{Item: &domain.ChecklistItem{ID: "passport", Title: "Passport"}, Checked: true},
			{Item: &domain.ChecklistItem{ID: "charger", Title: "Charger"}},
		},
		Progress: progress.CategoryProgress{Total: 2, Checked: 1},
	}}))
	assert.Contains(t, out, "packing")
	assert.Contains(t, out, "1/2")
	assert.Contains(t, out, "[x] Passport")
	assert.Contains(t, out, "[ ] Charger")
}

func TestFormatStats_MarksCurrentStage(t *testing.T) {
	out := stripANSI(FormatStats([]StageStatRow{
		{Stage: domain.StagePreTravel, Stats: progress.Stats{Completed: 2, Total: 2}},
		{Stage: domain.StageFinalPrep, Stats: progress.Stats{Completed: 1, Total: 4, RequiredCompleted: 0, RequiredTotal: 1}, Current: true},
	}))
	assert.Contains(t, out, "● FINAL PREP ◀")
	assert.Contains(t, out, "1/4")
	assert.Contains(t, out, "0/1")
	assert.Contains(t, out, "100%")
}

func TestFormatAnnouncements(t *testing.T) {
	out := stripANSI(FormatAnnouncements([]domain.Announcement{
		{ID: "manual:welcome", Title: "Welcome", Message: "Glad you're here", Manual: true},
		{ID: "countdown_milestone:c:7", Title: "7 days to go", Icon: "⏳", DeepLink: "/journey"},
	}))
	assert.Contains(t, out, "• Welcome")
	assert.Contains(t, out, "Glad you're here")
	assert.Contains(t, out, "⏳ 7 days to go")
	assert.Contains(t, out, "/journey")
	assert.Contains(t, out, "id countdown_milestone:c:7")

	assert.Contains(t, stripANSI(FormatAnnouncements(nil)), "Nothing to announce.")
}

func TestStageBadge(t *testing.T) {
	assert.Equal(t, "● IN PERSON PROGRAM", stripANSI(StageBadge(domain.StageInPersonProgram)))
}
