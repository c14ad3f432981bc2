// Package tui provides the interactive terminal UI and chart rendering for planline.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/planline/internal/project"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	cyanColor    = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)
)

// view modes
const (
	modeList   = "list"
	modeChart  = "chart"
	modeDetail = "detail"
)

// App is the main TUI application model.
type App struct {
	svc         *project.Service
	exec        *Executor
	tasks       *TaskListModel
	input       textinput.Model
	viewport    viewport.Model
	suggestions *Suggestions
	width       int
	height      int
	mode        string
	message     string
	dirty       bool
}

// New creates a new TUI application over an open project.
func New(svc *project.Service) *App {
	ti := textinput.New()
	ti.Placeholder = "Type / for commands, # for tasks"
	ti.CharLimit = 256
	ti.Width = 80

	return &App{
		svc:         svc,
		exec:        NewExecutor(svc),
		tasks:       NewTaskListModel(svc.Project().Name),
		input:       ti,
		viewport:    viewport.New(80, 20),
		suggestions: NewSuggestions(),
		mode:        modeList,
	}
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

type refreshMsg struct{}

type commandResultMsg struct {
	message string
	mutated bool
	saved   bool
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return refreshMsg{} })
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = msg.Width - 4
		a.resize()
		return a, nil

	case refreshMsg:
		a.refresh()
		return a, nil

	case commandResultMsg:
		a.message = msg.message
		if msg.mutated {
			a.dirty = true
		}
		if msg.saved {
			a.dirty = false
		}
		a.refresh()
		return a, nil

	case errMsg:
		a.message = "Error: " + msg.err.Error()
		return a, nil
	}

	if a.input.Focused() {
		var cmd tea.Cmd
		a.input, cmd = a.input.Update(msg)
		cmds = append(cmds, cmd)
		a.suggestions.Update(a.input.Value())
	} else if a.mode == modeList {
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		return tea.Quit, true
	}

	if a.input.Focused() {
		switch msg.String() {
		case "esc":
			a.input.Blur()
			a.input.SetValue("")
			a.suggestions.Update("")
			return nil, true
		case "up":
			a.suggestions.Prev()
			return nil, true
		case "down":
			a.suggestions.Next()
			return nil, true
		case "tab":
			if selected := a.suggestions.Selected(); selected != nil {
				a.acceptSuggestion(*selected)
			}
			return nil, true
		case "enter":
			if selected := a.suggestions.Selected(); selected != nil && selected.Type == "command" &&
				!strings.Contains(a.input.Value(), " ") {
				a.acceptSuggestion(*selected)
				return nil, true
			}
			line := strings.TrimSpace(a.input.Value())
			a.input.SetValue("")
			a.suggestions.Update("")
			a.input.Blur()
			return a.executeCommand(line), true
		}
		return nil, false
	}

	if a.mode == modeList && a.tasks.Filtering() {
		return nil, false
	}

	switch msg.String() {
	case "q":
		return tea.Quit, true
	case ":", "/":
		a.input.Focus()
		if msg.String() == "/" {
			a.input.SetValue("/")
			a.input.CursorEnd()
			a.suggestions.SetTasks(a.svc.Manager().Tasks())
			a.suggestions.Update("/")
		}
		return textinput.Blink, true
	case "esc":
		if a.mode != modeList {
			a.mode = modeList
			return nil, true
		}
	case "tab", "c":
		if a.mode == modeChart {
			a.mode = modeList
		} else {
			a.mode = modeChart
			a.viewport.SetContent(RenderChart(a.svc.Manager(), ChartOptions{}))
		}
		return nil, true
	case "enter":
		if a.mode == modeList {
			if sel := a.tasks.SelectedTask(); sel != nil {
				if t, err := a.svc.Manager().Task(sel.ID); err == nil {
					a.mode = modeDetail
					a.viewport.SetContent(RenderTaskDetail(t))
					a.viewport.GotoTop()
				}
			}
			return nil, true
		}
	case "r":
		a.refresh()
		return nil, true
	case "s":
		return a.executeCommand("save"), true
	}
	return nil, false
}

func (a *App) acceptSuggestion(item SuggestionItem) {
	switch item.Type {
	case "command":
		a.input.SetValue(item.Text + " ")
	case "task":
		a.input.SetValue(item.Text)
	}
	a.input.CursorEnd()
	a.suggestions.Update("")
}

func (a *App) executeCommand(line string) tea.Cmd {
	if line == "" {
		return nil
	}
	return func() tea.Msg {
		msg, err := a.exec.Execute(context.Background(), line)
		if err != nil {
			return errMsg{err}
		}
		name := strings.TrimPrefix(strings.Fields(line)[0], "/")
		return commandResultMsg{message: msg, mutated: name != "save", saved: name == "save"}
	}
}

func (a *App) refresh() {
	mgr := a.svc.Manager()
	a.tasks.SetRows(Rows(mgr))
	a.suggestions.SetTasks(mgr.Tasks())
	switch a.mode {
	case modeChart:
		a.viewport.SetContent(RenderChart(mgr, ChartOptions{}))
	case modeDetail:
		if sel := a.tasks.SelectedTask(); sel != nil {
			if t, err := mgr.Task(sel.ID); err == nil {
				a.viewport.SetContent(RenderTaskDetail(t))
				return
			}
		}
		a.mode = modeList
	}
}

func (a *App) resize() {
	contentHeight := max(a.height-8, 5)
	a.tasks.SetSize(a.width, contentHeight)
	a.viewport.Width = a.width - 4
	a.viewport.Height = contentHeight - 2
}

// View implements tea.Model
func (a *App) View() string {
	var b strings.Builder

	p := a.svc.Project()
	mgr := a.svc.Manager()
	header := titleStyle.Render("📅 planline") + "  " + lipgloss.NewStyle().Foreground(cyanColor).Render(p.Name)
	if start := mgr.ProjectStart(); !start.IsZero() {
		header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render(
			fmt.Sprintf("%s → %s", start.Format("2006-01-02"), mgr.ProjectEnd().AddDate(0, 0, -1).Format("2006-01-02")))
	}
	if a.dirty {
		header += "  " + lipgloss.NewStyle().Foreground(errorColor).Render("● unsaved")
	}
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 1)) + "\n")

	switch a.mode {
	case modeList:
		b.WriteString(a.tasks.View())
	default:
		b.WriteString(panelStyle.Render(a.viewport.View()))
	}

	// Message bar
	if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message))
	} else {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(inputBoxStyle.Render(a.input.View()))
	if a.suggestions.IsVisible() {
		b.WriteString("\n")
		b.WriteString(a.suggestions.Render(a.width))
	}
	b.WriteString("\n")

	var status string
	switch a.mode {
	case modeList:
		status = fmt.Sprintf(" Tasks: %d | ↑↓:nav | Enter:detail | Tab:chart | /:command | s:save | q:quit", mgr.Len())
	case modeChart:
		status = fmt.Sprintf(" Critical: %d | ↑↓:scroll | Tab:list | /:command | s:save | q:quit", len(mgr.CriticalPath()))
	default:
		status = " Esc:back | /:command | s:save | q:quit"
	}
	b.WriteString(statusBarStyle.Width(max(a.width, 1)).Render(status))

	return b.String()
}
