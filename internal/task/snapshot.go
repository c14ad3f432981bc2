package task

import (
	"fmt"
	"slices"

	"github.com/fentz26/planline/internal/calendar"
)

// Snapshot is the persistable state of a project: every task, the root
// order, the dependency edges, and the next ID to allocate.
type Snapshot struct {
	NextID       int
	Roots        []int
	Tasks        []Info
	Dependencies []Dependency
}

// Snapshot captures the project under the read lock.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Snapshot{
		NextID:       m.nextID,
		Roots:        slices.Clone(m.roots),
		Dependencies: m.deps.all(),
	}
	for _, id := range m.sortedIDs() {
		s.Tasks = append(s.Tasks, m.tasks[id].info())
	}
	return s
}

// Restore replaces the project with s and recomputes it. Derived facts in s
// (critical flags and times, display end) are ignored. On error the manager
// is left unchanged.
func (m *Manager) Restore(s Snapshot) (err error) {
	defer func() {
		m.record("restore", map[string]any{"tasks": len(s.Tasks), "dependencies": len(s.Dependencies)}, err, 0)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	prevTasks, prevRoots, prevDeps, prevNext := m.tasks, m.roots, m.deps, m.nextID
	prevPath, prevStart, prevEnd := m.criticalPath, m.projectStart, m.projectEnd
	restorePrev := func() {
		m.tasks, m.roots, m.deps, m.nextID = prevTasks, prevRoots, prevDeps, prevNext
		m.criticalPath, m.projectStart, m.projectEnd = prevPath, prevStart, prevEnd
	}

	if err := m.load(s); err != nil {
		restorePrev()
		return fmt.Errorf("restore: %w", err)
	}
	if err := m.recalculate(); err != nil {
		restorePrev()
		return fmt.Errorf("restore: %w", err)
	}
	return nil
}

func (m *Manager) load(s Snapshot) error {
	m.tasks = make(map[int]*Task, len(s.Tasks))
	m.deps = newDepGraph()
	m.roots = nil
	m.criticalPath = nil

	maxID := 0
	for _, info := range s.Tasks {
		if info.ID <= 0 {
			return invalid("id", "task ID %d is not positive", info.ID)
		}
		if _, dup := m.tasks[info.ID]; dup {
			return invalid("id", "duplicate task ID %d", info.ID)
		}
		t := &Task{mgr: m, id: info.ID, st: stateFromInfo(info)}
		if err := validate(&t.st); err != nil {
			return fmt.Errorf("task %d: %w", info.ID, err)
		}
		if err := calendar.CheckRange(t.st.start); err != nil {
			return fmt.Errorf("task %d: %w", info.ID, invalidCause("start", err))
		}
		m.tasks[info.ID] = t
		maxID = max(maxID, info.ID)
	}

	for id, t := range m.tasks {
		if p := t.st.parent; p != 0 {
			pt, ok := m.tasks[p]
			if !ok || !slices.Contains(pt.st.children, id) {
				return fmt.Errorf("task %d: parent %d does not list it: %w", id, p, ErrTaskNotFound)
			}
		}
		for _, c := range t.st.children {
			ct, ok := m.tasks[c]
			if !ok || ct.st.parent != id {
				return fmt.Errorf("task %d: nested task %d: %w", id, c, ErrTaskNotFound)
			}
		}
	}
	for id, t := range m.tasks {
		seen := map[int]bool{id: true}
		for p := t.st.parent; p != 0; p = m.tasks[p].st.parent {
			if seen[p] {
				return fmt.Errorf("task %d: %w", id, ErrHierarchyCycle)
			}
			seen[p] = true
		}
	}

	roots := s.Roots
	if len(roots) == 0 {
		for _, id := range m.sortedIDs() {
			if m.tasks[id].st.parent == 0 {
				roots = append(roots, id)
			}
		}
	}
	for _, id := range roots {
		t, ok := m.tasks[id]
		if !ok || t.st.parent != 0 || slices.Contains(m.roots, id) {
			return invalid("roots", "task %d is not a root task", id)
		}
		m.roots = append(m.roots, id)
	}
	for id, t := range m.tasks {
		if t.st.parent == 0 && !slices.Contains(m.roots, id) {
			return invalid("roots", "root task %d is missing from the root order", id)
		}
	}

	for _, d := range s.Dependencies {
		if !d.Type.valid() {
			d.Type = FinishStart
		}
		if err := m.checkDependency(d); err != nil {
			return err
		}
		m.deps.add(d)
	}

	m.nextID = max(s.NextID, maxID+1, 1)
	return nil
}

func stateFromInfo(info Info) state {
	st := state{
		name:        info.Name,
		start:       calendar.Normalize(info.Start),
		end:         calendar.Normalize(info.End),
		duration:    info.Duration,
		milestone:   info.Milestone,
		completion:  info.Completion,
		priority:    info.Priority,
		role:        info.Role,
		projectTask: info.ProjectTask,
		expand:      info.Expand,
		color:       info.Color,
		shape:       info.Shape,
		notes:       info.Notes,
		custom:      info.Custom,
		third:       calendar.Normalize(info.Third),
		thirdKind:   info.ThirdKind,
		attachments: info.Attachments,
		assignments: info.Assignments,
		parent:      info.Parent,
		children:    info.Children,
	}
	return st.clone()
}
