package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/healtop/model"
)

const (
	cardWidth    = 24
	barWidth     = 16
	maxAlertRows = 5
)

// styledPad pads a styled string to the given visual width using spaces.
// Unlike fmt.Sprintf("%-Xs"), this accounts for ANSI escape codes.
func styledPad(styled string, width int) string {
	visW := lipgloss.Width(styled)
	if visW >= width {
		return styled
	}
	return styled + strings.Repeat(" ", width-visW)
}

// bar renders a percentage bar coloured by the utilisation band.
func bar(pct float64, width int) string {
	if width < 1 {
		width = 10
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	if filled > width {
		filled = width
	}
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return bandStyle(model.Classify(pct)).Render(b)
}

// truncate shortens s to maxLen runes with ellipsis if needed.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

func padRight(s string, width int) string {
	s = truncate(s, width)
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// safetyBadge labels a file as safe to delete or as needing care.
func safetyBadge(safe bool) string {
	if safe {
		return okStyle.Render("Safe")
	}
	return warnStyle.Render("Caution")
}

func checkbox(on bool) string {
	if on {
		return okStyle.Render("[x]")
	}
	return dimStyle.Render("[ ]")
}
