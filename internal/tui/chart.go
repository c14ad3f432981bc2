package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/task"
)

var (
	barStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#6366F1"))
	criticalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	supertaskStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7C3AED"))
	milestoneStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Bold(true)
	offDayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))
	chartLabel     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB"))
	chartMuted     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
)

// Chart glyphs.
const (
	glyphBar       = "█"
	glyphSupertask = "▀"
	glyphMilestone = "◆"
	glyphOffDay    = "░"
	glyphEmpty     = " "
	glyphWeekend   = "·"
)

// ChartOptions controls RenderChart.
type ChartOptions struct {
	// From and To bound the rendered days; zero values use the project span.
	From, To time.Time
	// MaxDays caps the number of day columns. Zero means 90.
	MaxDays int
	// LabelWidth is the width of the task name column. Zero means 28.
	LabelWidth int
}

// Row is one line of a chart: a task and its nesting depth.
type Row struct {
	Task  *task.Task
	Depth int
}

// Rows flattens the hierarchy in display order. Collapsed supertasks hide
// their nested tasks.
func Rows(mgr *task.Manager) []Row {
	var rows []Row
	var walk func(t *task.Task, depth int)
	walk = func(t *task.Task, depth int) {
		rows = append(rows, Row{Task: t, Depth: depth})
		if !t.Expand() {
			return
		}
		for _, c := range t.NestedTasks() {
			walk(c, depth+1)
		}
	}
	for _, t := range mgr.RootTasks() {
		walk(t, 0)
	}
	return rows
}

// RenderChart draws a day-per-column bar chart of the project. Critical
// tasks are highlighted and non-working days inside a bar are shaded.
func RenderChart(mgr *task.Manager, opts ChartOptions) string {
	rows := Rows(mgr)
	if len(rows) == 0 {
		return chartMuted.Render("no tasks") + "\n"
	}
	if opts.MaxDays <= 0 {
		opts.MaxDays = 90
	}
	if opts.LabelWidth <= 0 {
		opts.LabelWidth = 28
	}

	from, to := opts.From, opts.To
	if from.IsZero() {
		from = mgr.ProjectStart()
		for _, r := range rows {
			if from.IsZero() || r.Task.Start().Before(from) {
				from = r.Task.Start()
			}
		}
	}
	if to.IsZero() {
		to = mgr.ProjectEnd()
		for _, r := range rows {
			if end := r.Task.End(); end.After(to) {
				to = end
			}
		}
	}
	from, to = calendar.Normalize(from), calendar.Normalize(to)
	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > opts.MaxDays {
		days = opts.MaxDays
	}

	cal := mgr.Calendar()
	var b strings.Builder
	b.WriteString(renderHeader(from, days, opts.LabelWidth))
	for _, r := range rows {
		b.WriteString(renderRow(cal, r, from, days, opts.LabelWidth))
	}
	return b.String()
}

func renderHeader(from time.Time, days, labelWidth int) string {
	var ticks strings.Builder
	for i := 0; i < days; {
		d := from.AddDate(0, 0, i)
		if d.Weekday() == time.Monday || i == 0 {
			label := d.Format("Jan 2")
			if i+len(label) <= days {
				ticks.WriteString(label)
				i += len(label)
				continue
			}
		}
		ticks.WriteString(" ")
		i++
	}
	return chartMuted.Render(pad("", labelWidth)+" "+ticks.String()) + "\n"
}

func renderRow(cal calendar.Calendar, r Row, from time.Time, days, labelWidth int) string {
	info := r.Task.Info()
	label := fmt.Sprintf("%s#%d %s", strings.Repeat("  ", r.Depth), info.ID, info.Name)

	style := barStyle
	glyph := glyphBar
	switch {
	case info.Critical:
		style = criticalStyle
	case len(info.Children) > 0:
		style = supertaskStyle
	}
	if len(info.Children) > 0 {
		glyph = glyphSupertask
	}

	var cells strings.Builder
	for i := 0; i < days; i++ {
		d := from.AddDate(0, 0, i)
		working := cal.IsWorkingDay(d)
		inSpan := !d.Before(info.Start) && d.Before(info.End)
		switch {
		case info.Milestone && d.Equal(info.Start):
			cells.WriteString(milestoneStyle.Render(glyphMilestone))
		case inSpan && working:
			cells.WriteString(style.Render(glyph))
		case inSpan:
			cells.WriteString(offDayStyle.Render(glyphOffDay))
		case !working:
			cells.WriteString(offDayStyle.Render(glyphWeekend))
		default:
			cells.WriteString(glyphEmpty)
		}
	}

	suffix := ""
	if info.DeadlineMissed {
		suffix = " " + criticalStyle.Render("!")
	}
	return chartLabel.Render(pad(label, labelWidth)) + " " + cells.String() + suffix + "\n"
}

// pad truncates or right-pads s to exactly w cells.
func pad(s string, w int) string {
	runes := []rune(s)
	if len(runes) > w {
		if w <= 1 {
			return string(runes[:w])
		}
		return string(runes[:w-1]) + "…"
	}
	return s + strings.Repeat(" ", w-len(runes))
}
