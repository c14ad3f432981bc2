package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	listTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	badgeCritical  = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // Red
	badgeMilestone = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // Yellow
	badgeSupertask = lipgloss.NewStyle().Foreground(lipgloss.Color("5")) // Magenta
	badgeDone      = lipgloss.NewStyle().Foreground(lipgloss.Color("2")) // Green
)

// TaskItem implements list.Item for the task list
type TaskItem struct {
	ID             int
	Name           string
	Depth          int
	Start          time.Time
	End            time.Time // inclusive
	Completion     int
	Critical       bool
	Milestone      bool
	Supertask      bool
	DeadlineMissed bool
}

func newTaskItem(r Row) TaskItem {
	info := r.Task.Info()
	return TaskItem{
		ID:             info.ID,
		Name:           info.Name,
		Depth:          r.Depth,
		Start:          info.Start,
		End:            info.DisplayEnd,
		Completion:     info.Completion,
		Critical:       info.Critical,
		Milestone:      info.Milestone,
		Supertask:      len(info.Children) > 0,
		DeadlineMissed: info.DeadlineMissed,
	}
}

func (i TaskItem) FilterValue() string { return i.Name }
func (i TaskItem) Title() string {
	return fmt.Sprintf("%s#%d %s", strings.Repeat("  ", i.Depth), i.ID, i.Name)
}
func (i TaskItem) Description() string {
	dates := fmt.Sprintf("%s → %s", i.Start.Format(time.DateOnly), i.End.Format(time.DateOnly))
	if i.Milestone {
		dates = i.Start.Format(time.DateOnly)
	}
	parts := []string{strings.Repeat("  ", i.Depth) + dates, formatBadges(i)}
	return strings.TrimSpace(strings.Join(parts, "  "))
}

func formatBadges(i TaskItem) string {
	var badges []string
	if i.Critical {
		badges = append(badges, badgeCritical.Render("● critical"))
	}
	if i.Milestone {
		badges = append(badges, badgeMilestone.Render("◆ milestone"))
	}
	if i.Supertask {
		badges = append(badges, badgeSupertask.Render("▾ supertask"))
	}
	if i.DeadlineMissed {
		badges = append(badges, badgeCritical.Render("! deadline"))
	}
	if i.Completion == 100 {
		badges = append(badges, badgeDone.Render("✓ done"))
	} else if i.Completion > 0 {
		badges = append(badges, fmt.Sprintf("%d%%", i.Completion))
	}
	return strings.Join(badges, " ")
}

// TaskListModel manages the task list screen
type TaskListModel struct {
	list   list.Model
	tasks  []TaskItem
	width  int
	height int
}

// NewTaskListModel creates a new task list model
func NewTaskListModel(title string) *TaskListModel {
	delegate := list.NewDefaultDelegate()
	l := list.New([]list.Item{}, delegate, 80, 20)
	l.Title = title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = listTitleStyle

	return &TaskListModel{list: l}
}

// SetSize sets the list dimensions
func (m *TaskListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.list.SetSize(w, h)
}

// SetRows replaces the listed tasks, keeping the cursor in range.
func (m *TaskListModel) SetRows(rows []Row) {
	m.tasks = make([]TaskItem, len(rows))
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		m.tasks[i] = newTaskItem(r)
		items[i] = m.tasks[i]
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
}

// SelectedTask returns the currently selected task
func (m *TaskListModel) SelectedTask() *TaskItem {
	if item := m.list.SelectedItem(); item != nil {
		t := item.(TaskItem)
		return &t
	}
	return nil
}

// Filtering reports whether the list is capturing keys for its filter.
func (m *TaskListModel) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

// Update handles messages
func (m *TaskListModel) Update(msg tea.Msg) (*TaskListModel, tea.Cmd) {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// View renders the task list
func (m *TaskListModel) View() string {
	return m.list.View()
}
