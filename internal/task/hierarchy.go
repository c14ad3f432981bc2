package task

import (
	"fmt"
	"slices"
)

// move re-parents t under target, or to the root level for a nil target.
func (m *Manager) move(t, target *Task) (err error) {
	targetID := 0
	if target != nil {
		targetID = target.id
	}
	defer func() { m.record("move", map[string]any{"target": targetID}, err, t.id) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tasks[t.id] != t {
		return fmt.Errorf("move task %d: %w", t.id, ErrTaskNotFound)
	}
	if target != nil && m.tasks[targetID] != target {
		return fmt.Errorf("move task %d: target %d: %w", t.id, targetID, ErrTaskNotFound)
	}
	if targetID == t.id || (targetID != 0 && m.isAncestor(t.id, targetID)) {
		return fmt.Errorf("move task %d under %d: %w", t.id, targetID, ErrHierarchyCycle)
	}
	oldParent := t.st.parent
	if oldParent == targetID {
		return nil
	}

	subtree := map[int]bool{t.id: true}
	for _, id := range m.descendants(t.id) {
		subtree[id] = true
	}
	for a := targetID; a != 0; a = m.tasks[a].st.parent {
		for _, d := range m.deps.incident(a) {
			if subtree[d.Other(a)] {
				return fmt.Errorf("move task %d under %d: dependency %d->%d would join nested tasks: %w",
					t.id, targetID, d.Dependee, d.Dependant, ErrInvalidDependency)
			}
		}
	}

	tx := m.begin()
	m.reparent(tx, t.id, targetID)
	if m.detectCycle() {
		tx.rollback()
		return fmt.Errorf("move task %d under %d: %w", t.id, targetID, ErrDependencyCycle)
	}

	w := newWave()
	w.seed(inNode(t.id), true)
	// a moved supertask keeps its span, so its new parent is re-spanned from out(t)
	w.seed(outNode(t.id), true)
	if targetID != 0 {
		w.seed(outNode(targetID), true)
	}
	if oldParent != 0 {
		w.seed(inNode(oldParent), false)
		w.seed(outNode(oldParent), true)
	}
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		return fmt.Errorf("move task %d under %d: %w", t.id, targetID, err)
	}
	return nil
}

// reparent detaches id from its parent (or the roots) and appends it to target's children.
func (m *Manager) reparent(tx *txn, id, target int) {
	prevRoots := slices.Clone(m.roots)
	tx.onRollback(func() { m.roots = prevRoots })

	st := tx.touch(id)
	if st.parent == 0 {
		m.roots = slices.DeleteFunc(m.roots, func(r int) bool { return r == id })
	} else {
		ps := tx.touch(st.parent)
		ps.children = slices.DeleteFunc(ps.children, func(c int) bool { return c == id })
	}
	if target == 0 {
		m.roots = append(m.roots, id)
	} else {
		ts := tx.touch(target)
		ts.children = append(ts.children, id)
	}
	st.parent = target
}

// deleteTask removes a task without nested tasks from the project.
func (m *Manager) deleteTask(id int) (err error) {
	defer func() { m.record("delete", nil, err, id) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("delete task %d: %w", id, ErrTaskNotFound)
	}
	if len(t.st.children) > 0 {
		return fmt.Errorf("delete task %d: %w", id, ErrHasNestedTasks)
	}

	tx := m.begin()
	removed := m.deps.detach(id)
	tx.onRollback(func() {
		for _, d := range removed {
			m.deps.add(d)
		}
	})

	parent := t.st.parent
	prevRoots := slices.Clone(m.roots)
	tx.onRollback(func() { m.roots = prevRoots })
	if parent == 0 {
		m.roots = slices.DeleteFunc(m.roots, func(r int) bool { return r == id })
	} else {
		ps := tx.touch(parent)
		ps.children = slices.DeleteFunc(ps.children, func(c int) bool { return c == id })
	}
	delete(m.tasks, id)
	tx.onRollback(func() { m.tasks[id] = t })

	w := newWave()
	for _, d := range removed {
		if d.Dependee == id {
			w.seed(inNode(d.Dependant), false)
		}
	}
	if parent != 0 {
		w.seed(inNode(parent), false)
		w.seed(outNode(parent), true)
	}
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	return nil
}
