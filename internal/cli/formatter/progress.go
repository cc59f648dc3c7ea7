package formatter

import (
	"fmt"
	"strings"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a progress bar like [████░░░░] 45%.
// The bar is colored based on percentage: green >66%, yellow 33-66%, red <33%.
func RenderProgress(pct float64, width int) string {
	pct = clamp(pct)
	return fmt.Sprintf("[%s] %3.0f%%", RenderCompactBar(pct, width, false), pct*100)
}

// RenderCompactBar renders the bare bar without brackets or percentage.
// dim draws it in the muted color regardless of percentage.
func RenderCompactBar(pct float64, width int, dim bool) string {
	pct = clamp(pct)
	if width < 2 {
		width = 2
	}
	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	switch {
	case dim:
		style = StyleDim
	case pct < 0.33:
		style = StyleRed
	case pct < 0.66:
		style = StyleYellow
	}
	return style.Render(bar)
}

// RenderFraction renders "done/total" with the same color thresholds.
func RenderFraction(done, total int) string {
	text := fmt.Sprintf("%d/%d", done, total)
	if total == 0 {
		return Dim(text)
	}
	pct := float64(done) / float64(total)
	switch {
	case pct >= 1:
		return StyleGreen.Render(text)
	case pct >= 0.5:
		return StyleYellow.Render(text)
	default:
		return StyleFg.Render(text)
	}
}

func clamp(pct float64) float64 {
	return min(max(pct, 0), 1)
}
