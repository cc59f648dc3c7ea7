package formatter

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		PaddingLeft(2).
		PaddingRight(2).
		PaddingTop(1).
		PaddingBottom(1)

	if title != "" {
		inner := StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content
		return boxStyle.Render(inner)
	}
	return boxStyle.Render(content)
}

// RelativeDateFrom returns a human-friendly relative date string from a reference time.
func RelativeDateFrom(t time.Time, now time.Time) string {
	days := int(math.Round(t.Sub(now).Hours() / 24))

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days == -1:
		return "Yesterday"
	case days > 0 && days < 14:
		return fmt.Sprintf("In %dd", days)
	case days > 0 && days < 60:
		return fmt.Sprintf("In %dw", days/7)
	case days > 0:
		return fmt.Sprintf("In %dmo", days/30)
	case days > -14:
		return fmt.Sprintf("%dd ago", -days)
	case days > -60:
		return fmt.Sprintf("%dw ago", -days/7)
	default:
		return fmt.Sprintf("%dmo ago", -days/30)
	}
}

// SinceFrom returns a short "updated" timestamp relative to now.
func SinceFrom(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return t.Format("Jan 2 15:04")
	}
}

// Countdown describes the distance to the edition start. days is negative
// once the edition has started; nil means the edition has no start date.
func Countdown(days *int) string {
	if days == nil {
		return Dim("No start date")
	}
	d := *days
	switch {
	case d == 0:
		return StyleGreen.Render("Starts today")
	case d == 1:
		return StyleYellow.Render("Starts tomorrow")
	case d > 1 && d <= 7:
		return StyleYellow.Render(fmt.Sprintf("Starts in %d days", d))
	case d > 7:
		return StyleFg.Render(fmt.Sprintf("Starts in %d days", d))
	default:
		return StyleGreen.Render(fmt.Sprintf("Day %d of the program", -d+1))
	}
}

// TaskMark returns the checkbox glyph for a task row. Tasks satisfied by a
// profile fact or a full checklist get the filled diamond.
func TaskMark(completed, auto bool) string {
	switch {
	case completed && auto:
		return StyleAqua.Render("◆")
	case completed:
		return StyleGreen.Render("✔")
	default:
		return StyleDim.Render("○")
	}
}

// TruncID returns the first 8 characters of an ID, dimmed.
func TruncID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return StyleDim.Render(id)
}
