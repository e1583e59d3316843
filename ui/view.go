package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/ftahirops/healtop/engine"
	"github.com/ftahirops/healtop/model"
)

const noticeTTL = 8 * time.Second

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader() + "\n\n")
	sb.WriteString(m.renderMetrics() + "\n")

	if m.alert.Active() {
		sb.WriteString(m.renderAlert() + "\n")
	} else {
		sb.WriteString(panelStyle.Render(okStyle.Render("✓ No active alerts")) + "\n")
	}

	if m.session.IsOpen() {
		sb.WriteString(m.renderSession() + "\n")
	}

	sb.WriteString(m.renderHistory() + "\n")

	if m.confirm != nil {
		sb.WriteString(warnStyle.Render("? "+m.confirm.prompt) + " " + dimStyle.Render("[y/n]") + "\n")
	}
	if m.notice != "" && time.Since(m.noticeAt) < noticeTTL {
		st := okStyle
		if m.noticeErr {
			st = critStyle
		}
		sb.WriteString(st.Render(m.notice) + "\n")
	}

	sb.WriteString(m.renderHelp())
	return sb.String()
}

func (m Model) renderHeader() string {
	left := titleStyle.Render("healtop") + dimStyle.Render("  self-healing console")
	right := dimStyle.Render("waiting for backend")
	if m.hasStatus {
		right = dimStyle.Render("updated " + m.lastUpdated.Local().Format("15:04:05"))
	}
	if m.opts.Endpoint != "" {
		right = dimStyle.Render(m.opts.Endpoint+"  ") + right
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderMetrics() string {
	if !m.hasStatus {
		return panelStyle.Render(dimStyle.Render("Loading metrics..."))
	}
	cards := []string{
		metricCard("CPU", m.metrics.CPU),
		metricCard("Memory", m.metrics.Memory),
		metricCard("Disk", m.metrics.Disk),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(name string, pct float64) string {
	band := model.Classify(pct)
	st := bandStyle(band)
	body := fmt.Sprintf("%s\n%s\n%s",
		styledPad(labelStyle.Render(name), cardWidth-4),
		st.Render(fmt.Sprintf("%.1f%%", pct))+" "+dimStyle.Render(band.String()),
		bar(pct, barWidth))
	return panelStyle.Width(cardWidth).Render(body)
}

// actionHints are the per-kind descriptions of the three remediation paths.
type actionHints struct {
	auto, manual, scale string
}

func hintsFor(k model.AlertKind) actionHints {
	switch k {
	case model.KindCPU:
		return actionHints{"Kill high CPU processes", "Choose which processes to kill", "Upgrade to more CPU cores"}
	case model.KindMemory:
		return actionHints{"Clear cache & kill processes", "Choose processes or cache", "Upgrade to more RAM"}
	case model.KindDisk:
		return actionHints{"Safe - logs, cache, docker only", "Choose files to delete", "Expand disk storage"}
	case model.KindService:
		return actionHints{"Auto restart service", "Check logs & restart", "Deploy redundant instance"}
	}
	return actionHints{"Automated safe cleanup", "Choose what to fix", "Expand resources"}
}

func (m Model) renderAlert() string {
	a := m.alert.Alert
	if a == nil {
		return ""
	}
	var lines []string
	lines = append(lines,
		critStyle.Render(fmt.Sprintf("⚠ %s Alert - %s", a.DisplayType(), a.CurrentUsage))+
			"   "+m.renderCountdown())
	lines = append(lines,
		labelStyle.Render("Severity: ")+valueStyle.Render(a.Severity.String())+"   "+
			labelStyle.Render("Threshold: ")+valueStyle.Render(a.Threshold.String())+"   "+
			labelStyle.Render("Current: ")+valueStyle.Render(a.CurrentUsage.String()))

	switch a.Kind() {
	case model.KindDisk:
		if len(m.alert.Files) > 0 {
			lines = append(lines, "", headerStyle.Render("Largest Files:"))
			for i, f := range m.alert.Files {
				if i == maxAlertRows {
					break
				}
				lines = append(lines, "  "+padRight(f.Path, 48)+" "+orangeStyle.Render(f.Size))
			}
		}
	case model.KindCPU:
		lines = append(lines, "", "💻 "+valueStyle.Bold(true).Render("High CPU Usage Detected"),
			dimStyle.Render("Press m for manual control to see top processes"))
	case model.KindMemory:
		lines = append(lines, "", "🧠 "+valueStyle.Bold(true).Render("High Memory Usage Detected"),
			dimStyle.Render("Press m for manual control to see top processes"))
	}

	h := hintsFor(a.Kind())
	lines = append(lines, "",
		titleStyle.Render("[a] Auto")+"   "+dimStyle.Render(h.auto),
		titleStyle.Render("[m] Manual")+" "+dimStyle.Render(h.manual),
		titleStyle.Render("[s] Scale")+"  "+dimStyle.Render(h.scale),
		titleStyle.Render("[d] Dismiss"))

	return alertPanelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderCountdown() string {
	c := m.alert.Countdown
	switch c.Phase {
	case engine.PhaseExpired:
		return critStyle.Render("⏰ 0:00")
	case engine.PhaseRunning:
		st := warnStyle
		if c.Remaining <= 30 {
			st = critStyle
		}
		return st.Render("⏰ " + c.Display())
	}
	return ""
}

func (m Model) renderSession() string {
	s := m.session
	var lines []string
	lines = append(lines, titleStyle.Render(fmt.Sprintf("Manual %s remediation", strings.ToUpper(string(s.Resource)))))

	switch s.Phase {
	case engine.SessionLoading:
		lines = append(lines, m.spinner.View()+" Loading options...")
	case engine.SessionFailed:
		lines = append(lines, critStyle.Render("Error loading options"))
		if s.Err != nil {
			lines = append(lines, dimStyle.Render(errorText(s.Err)))
		}
	default:
		if len(s.Rows) == 0 {
			lines = append(lines, dimStyle.Render("No options available"))
		}
		group := ""
		for i, r := range s.Rows {
			if r.Group != group {
				group = r.Group
				lines = append(lines, "", headerStyle.Render(group))
			}
			line := checkbox(s.Selected(r.Value())) + " " + optionLabel(r.Option)
			if i == s.Cursor {
				line = selectedStyle.Render("> ") + line
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
		if s.Phase == engine.SessionSubmitting && m.confirm == nil {
			lines = append(lines, "", dimStyle.Render("Executing..."))
		}
	}
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func optionLabel(o model.ManualOption) string {
	switch o.Kind {
	case model.OptionProcess:
		return fmt.Sprintf("%s %s %s %s",
			padRight("PID "+o.PID, 12),
			padRight(o.User, 10),
			padRight(o.Command, 32),
			dimStyle.Render(fmt.Sprintf("CPU %s%% MEM %s%%", o.CPU, o.Mem)))
	case model.OptionAction:
		s := o.Name
		if s == "" {
			s = o.ActionID
		}
		if o.Size != "" {
			s += " " + orangeStyle.Render("("+o.Size+")")
		}
		return s
	case model.OptionFile:
		return padRight(o.Path, 48) + " " + orangeStyle.Render(o.Size) + " " + safetyBadge(o.Safe)
	}
	return ""
}

func (m Model) renderHistory() string {
	lines := []string{titleStyle.Render("Recent Actions")}
	if len(m.history) == 0 {
		lines = append(lines, dimStyle.Render("No actions yet"))
	}
	for i, it := range m.history {
		if i == m.opts.HistoryLimit {
			break
		}
		lines = append(lines, fmt.Sprintf("%s %s %s",
			HistoryIcon(it.Type),
			styledPad(historyStyle(HistoryClass(it.Type)).Render(it.Type), 28),
			dimStyle.Render(HistoryTime(it.Timestamp))))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func (m Model) renderHelp() string {
	var km help.KeyMap = mainHelp{}
	switch {
	case m.confirm != nil:
		km = confirmHelp{}
	case m.session.IsOpen():
		km = modalHelp{}
	}
	return m.help.View(km)
}

// HistoryIcon picks the icon for a history entry type.
func HistoryIcon(typ string) string {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "cpu"):
		return "💻"
	case strings.Contains(t, "memory"):
		return "🧠"
	case strings.Contains(t, "disk"):
		return "💾"
	case strings.Contains(t, "dismiss"):
		return "✖️"
	}
	return "✅"
}

// HistoryClass is "warn" for dismissals, "crit" for errors and "" otherwise.
func HistoryClass(typ string) string {
	t := strings.ToLower(typ)
	switch {
	case strings.Contains(t, "dismiss"):
		return "warn"
	case strings.Contains(t, "error"):
		return "crit"
	}
	return ""
}

var historyLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
}

// HistoryTime renders a backend timestamp in local time. Unparseable values
// are shown as received.
func HistoryTime(ts string) string {
	for _, layout := range historyLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.Local); err == nil {
			return t.Local().Format("2006-01-02 15:04:05")
		}
	}
	return ts
}
