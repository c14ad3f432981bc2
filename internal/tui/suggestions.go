package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fentz26/planline/internal/task"
)

// Suggestions provides autocomplete for commands
type Suggestions struct {
	items        []SuggestionItem
	filtered     []SuggestionItem
	tasks        []SuggestionItem
	selectedIdx  int
	visible      bool
	prefix       string // "/" or "#"
	currentInput string
}

// SuggestionItem represents a single autocomplete suggestion
type SuggestionItem struct {
	Text        string
	Description string
	Type        string // "command" or "task"
}

var commandSuggestions = []SuggestionItem{
	{Text: "add", Description: "Create a task: add <name> [duration] [YYYY-MM-DD]", Type: "command"},
	{Text: "shift", Description: "Move a task: shift <id> <days>", Type: "command"},
	{Text: "dur", Description: "Change a duration: dur <id> <5d|2w>", Type: "command"},
	{Text: "done", Description: "Set completion: done <id> [percent]", Type: "command"},
	{Text: "link", Description: "Add a dependency: link <a> <b> [type] [lag] [hardness]", Type: "command"},
	{Text: "unlink", Description: "Remove a dependency: unlink <a> <b>", Type: "command"},
	{Text: "move", Description: "Nest a task: move <id> <parent|root>", Type: "command"},
	{Text: "rm", Description: "Delete a task: rm <id>", Type: "command"},
	{Text: "recalc", Description: "Recompute the whole schedule", Type: "command"},
	{Text: "save", Description: "Write the project to the database", Type: "command"},
}

// NewSuggestions creates a new suggestions handler
func NewSuggestions() *Suggestions {
	return &Suggestions{
		items:   commandSuggestions,
		visible: false,
	}
}

// Update updates suggestions based on current input
func (s *Suggestions) Update(input string) {
	s.currentInput = input
	if input == "" {
		s.visible = false
		s.filtered = nil
		s.prefix = ""
		return
	}

	switch input[0] {
	case '/':
		s.prefix = "/"
		s.items = commandSuggestions
	case '#':
		s.prefix = "#"
		s.items = s.tasks
	default:
		s.visible = false
		s.filtered = nil
		s.prefix = ""
		return
	}
	s.visible = true
	s.filter(strings.ToLower(input[1:]))
}

// SetTasks updates the task suggestions
func (s *Suggestions) SetTasks(tasks []*task.Task) {
	s.tasks = make([]SuggestionItem, len(tasks))
	for i, t := range tasks {
		s.tasks[i] = SuggestionItem{
			Text:        strconv.Itoa(t.ID()),
			Description: t.Name(),
			Type:        "task",
		}
	}
	if s.prefix == "#" {
		s.items = s.tasks
		s.filter(strings.ToLower(strings.TrimPrefix(s.currentInput, "#")))
	}
}

func (s *Suggestions) filter(query string) {
	if query == "" {
		s.filtered = s.items
		s.selectedIdx = 0
		return
	}

	s.filtered = []SuggestionItem{}
	for _, item := range s.items {
		if strings.Contains(strings.ToLower(item.Text), query) ||
			(item.Type == "task" && strings.Contains(strings.ToLower(item.Description), query)) {
			s.filtered = append(s.filtered, item)
		}
	}
	s.selectedIdx = 0
}

// Next moves to the next suggestion
func (s *Suggestions) Next() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx = (s.selectedIdx + 1) % len(s.filtered)
}

// Prev moves to the previous suggestion
func (s *Suggestions) Prev() {
	if len(s.filtered) == 0 {
		return
	}
	s.selectedIdx--
	if s.selectedIdx < 0 {
		s.selectedIdx = len(s.filtered) - 1
	}
}

// Selected returns the currently selected suggestion
func (s *Suggestions) Selected() *SuggestionItem {
	if !s.visible || len(s.filtered) == 0 || s.selectedIdx >= len(s.filtered) {
		return nil
	}
	return &s.filtered[s.selectedIdx]
}

// IsVisible returns whether suggestions are currently visible
func (s *Suggestions) IsVisible() bool {
	return s.visible && len(s.filtered) > 0
}

// Render renders the suggestions dropdown
func (s *Suggestions) Render(width int) string {
	if !s.IsVisible() {
		return ""
	}

	var b strings.Builder

	suggestionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#6366F1")).
		Padding(0, 1).
		Width(width - 4)

	selectedStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("#7C3AED")).
		Foreground(lipgloss.Color("#F9FAFB")).
		Bold(true)

	itemStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F9FAFB"))

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	// Header
	var header string
	switch s.prefix {
	case "/":
		header = "💡 Commands"
	case "#":
		header = "📋 Tasks"
	}
	b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")).Render(header))
	b.WriteString("\n")

	// Show max 5 suggestions
	maxVisible := 5
	for i, item := range s.filtered {
		if i >= maxVisible {
			more := len(s.filtered) - maxVisible
			b.WriteString(descStyle.Render(fmt.Sprintf("  ... and %d more", more)))
			break
		}

		line := ""
		if i == s.selectedIdx {
			line = selectedStyle.Render("▶ " + item.Text)
			if item.Description != "" {
				line += " " + selectedStyle.Render(item.Description)
			}
		} else {
			line = itemStyle.Render("  " + item.Text)
			if item.Description != "" {
				line += " " + descStyle.Render(item.Description)
			}
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return suggestionStyle.Render(b.String())
}
