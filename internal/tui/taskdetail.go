package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/planline/internal/task"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			MarginTop(1)
)

// RenderTaskDetail renders every attribute of t, its dependencies and
// its critical times.
func RenderTaskDetail(t *task.Task) string {
	info := t.Info()
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("#%d %s", info.ID, info.Name)))
	b.WriteString("\n")

	field := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	field("Start", info.Start.Format(time.DateOnly))
	field("End", info.DisplayEnd.Format(time.DateOnly))
	field("Duration", info.Duration.String())
	field("Completion", fmt.Sprintf("%d%%", info.Completion))
	field("Priority", info.Priority.String())
	field("Role", info.Role.String())
	if info.Milestone {
		field("Milestone", "yes")
	}
	if info.Parent != 0 {
		field("Supertask", fmt.Sprintf("#%d", info.Parent))
	}
	if !info.Third.IsZero() {
		third := fmt.Sprintf("%s (%s)", info.Third.Format(time.DateOnly), info.ThirdKind)
		if info.DeadlineMissed {
			third += " " + badgeCritical.Render("missed")
		}
		field("Third date", third)
	}
	if info.Notes != "" {
		field("Notes", info.Notes)
	}

	if len(info.Children) > 0 {
		b.WriteString(sectionStyle.Render("Nested tasks"))
		b.WriteString("\n")
		for _, c := range t.NestedTasks() {
			b.WriteString(fmt.Sprintf("  • #%d %s\n", c.ID(), c.Name()))
		}
	}

	deps := t.Dependencies().All()
	if len(deps) > 0 {
		b.WriteString(sectionStyle.Render("Dependencies"))
		b.WriteString("\n")
		for _, d := range deps {
			lag := ""
			if d.Lag != 0 {
				lag = fmt.Sprintf(" lag %+d", d.Lag)
			}
			b.WriteString(fmt.Sprintf("  • #%d → #%d %s %s%s\n", d.Dependee, d.Dependant, d.Type, d.Hardness, lag))
		}
	}

	if info.Critical {
		b.WriteString(sectionStyle.Render("Critical times"))
		b.WriteString("\n")
		var times []string
		for _, ct := range info.CriticalTimes {
			times = append(times, ct.Format(time.DateOnly))
		}
		b.WriteString("  " + strings.Join(times, ", ") + "\n")
	}

	return b.String()
}
