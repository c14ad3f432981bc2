package task

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/planline/internal/calendar"
)

// txn records the pre-edit state of every task an operation touches, plus
// undo steps for structural edits, so a failed wave can be rolled back whole.
type txn struct {
	m     *Manager
	saved map[int]saved
	undo  []func()
}

type saved struct {
	task *Task
	st   state
}

func (m *Manager) begin() *txn {
	return &txn{m: m, saved: make(map[int]saved)}
}

// touch snapshots the task on first use and returns its live state for writing.
func (tx *txn) touch(id int) *state {
	t := tx.m.tasks[id]
	if _, ok := tx.saved[id]; !ok {
		tx.saved[id] = saved{task: t, st: t.st.clone()}
	}
	return &t.st
}

func (tx *txn) onRollback(fn func()) { tx.undo = append(tx.undo, fn) }

func (tx *txn) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	for _, s := range tx.saved {
		s.task.st = s.st
	}
}

// wave tracks which scheduling-graph nodes still need evaluation. A forced
// node propagates to its successors even when its own value is unchanged.
type wave struct {
	dirty map[node]bool
	force map[node]bool
}

func newWave() *wave {
	return &wave{dirty: make(map[node]bool), force: make(map[node]bool)}
}

func (w *wave) seed(n node, force bool) {
	w.dirty[n] = true
	if force {
		w.force[n] = true
	}
}

func (w *wave) seeds() []node {
	out := make([]node, 0, len(w.dirty))
	for n := range w.dirty {
		out = append(out, n)
	}
	return out
}

// commit applies a mutator to its task and recomputes the project.
func (m *Manager) commit(mu *Mutator) (err error) {
	id := mu.task.id
	defer func() { m.record("commit", mu.changes(), err, id) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok || t != mu.task {
		return fmt.Errorf("commit task %d: %w", id, ErrTaskNotFound)
	}
	supertask := len(t.st.children) > 0
	next, err := mu.resolve(m.cal, t.st, supertask)
	if err != nil {
		return fmt.Errorf("commit task %d: %w", id, err)
	}

	tx := m.begin()
	prevStart := t.st.start
	*tx.touch(id) = next

	w := newWave()
	w.seed(inNode(id), true)
	if supertask && !next.start.Equal(prevStart) {
		delta := int(next.start.Sub(prevStart).Hours() / 24)
		if err := m.shiftDescendants(tx, w, id, delta); err != nil {
			tx.rollback()
			return fmt.Errorf("commit task %d: %w", id, err)
		}
	}
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		m.log.Error("commit rolled back", zap.Int("task_id", id), zap.Error(err))
		return fmt.Errorf("commit task %d: %w", id, err)
	}
	return nil
}

// shiftDescendants moves every leaf below id by delta calendar days, keeping
// durations and snapping starts to working days.
func (m *Manager) shiftDescendants(tx *txn, w *wave, id, delta int) error {
	for _, leaf := range m.leaves(id) {
		st := tx.touch(leaf)
		start, err := calendar.AddDays(st.start, delta)
		if err != nil {
			return invalidCause("start", err)
		}
		if start, err = calendar.NextWorkingDay(m.cal, start); err != nil {
			return invalidCause("start", err)
		}
		if err := m.place(st, start); err != nil {
			return err
		}
		w.seed(inNode(leaf), true)
	}
	return nil
}

// place moves a leaf to start, keeping its duration.
func (m *Manager) place(st *state, start time.Time) error {
	end := start
	if !st.milestone {
		var err error
		if end, err = calendar.Shift(m.cal, start, calendar.WorkingDays(m.cal, st.duration)); err != nil {
			return invalidCause("end", err)
		}
	}
	st.start, st.end = start, end
	return nil
}

// run propagates the wave, refreshes derived per-task data, and recomputes
// the critical path. The caller rolls tx back on error.
func (m *Manager) run(tx *txn, w *wave) error {
	if err := m.propagate(tx, w); err != nil {
		return err
	}
	for id := range tx.saved {
		if _, ok := m.tasks[id]; !ok {
			continue
		}
		st := &m.tasks[id].st
		if err := validate(st); err != nil {
			return fmt.Errorf("task %d: %w", id, err)
		}
		st.activities = activities(m.cal, st)
		st.deadlineMissed = st.missesDeadline()
	}
	return m.updateCritical(tx)
}

// propagate evaluates the nodes reachable from the seeds in topological
// order. Unchanged nodes stop the wave on their branch.
func (m *Manager) propagate(tx *txn, w *wave) error {
	order, err := m.topoOrder(m.reachable(w.seeds()))
	if err != nil {
		return fmt.Errorf("propagate: %w", err)
	}
	for _, n := range order {
		if !w.dirty[n] {
			continue
		}
		t := m.tasks[n.id]
		supertask := len(t.st.children) > 0

		if !n.out {
			if supertask {
				for _, c := range t.st.children {
					w.dirty[inNode(c)] = true
				}
				continue
			}
			changed, err := m.constrainLeaf(tx, n.id)
			if err != nil {
				return fmt.Errorf("task %d: %w", n.id, err)
			}
			if changed || w.force[n] {
				w.dirty[outNode(n.id)] = true
			}
			continue
		}

		changed := w.force[n] || !supertask
		if supertask {
			changed = m.spanSupertask(tx, n.id) || changed
		}
		if changed {
			for _, s := range m.successors(n) {
				w.dirty[s] = true
			}
		}
	}
	return nil
}

// constrainLeaf moves a leaf to satisfy its start bound and reports whether it moved.
func (m *Manager) constrainLeaf(tx *txn, id int) (bool, error) {
	st := &m.tasks[id].st
	lower, pinned, ok, err := m.startBound(id)
	if err != nil || !ok {
		return false, err
	}
	start := st.start
	if pinned || lower.After(start) {
		if start, err = calendar.NextWorkingDay(m.cal, lower); err != nil {
			return false, invalidCause("start", err)
		}
	}
	if start.Equal(st.start) {
		return false, nil
	}
	return true, m.place(tx.touch(id), start)
}

// startBound returns the earliest start the task's dependencies, ancestors'
// dependencies, and earliest-begin third dates allow. pinned is set when a
// strong edge on the task itself binds it; ancestor edges and third dates
// only act as lower limits.
func (m *Manager) startBound(id int) (lower time.Time, pinned, ok bool, err error) {
	take := func(b time.Time) {
		if !ok || b.After(lower) {
			lower, ok = b, true
		}
	}
	for cur, own := id, true; cur != 0; cur, own = m.tasks[cur].st.parent, false {
		st := &m.tasks[cur].st
		days := calendar.Between(m.cal, st.start, st.end)
		for _, d := range m.deps.in[cur] {
			pred := &m.tasks[d.Dependee].st
			b, err := edgeBound(m.cal, d, pred.start, pred.end, days)
			if err != nil {
				return time.Time{}, false, false, invalidCause("start", err)
			}
			take(b)
			if own && d.Hardness == Strong {
				pinned = true
			}
		}
		if b, has := st.thirdBound(); has {
			take(b)
		}
	}
	return lower, pinned, ok, nil
}

// spanSupertask sets a supertask's span to the union of its children and
// reports whether it changed.
func (m *Manager) spanSupertask(tx *txn, id int) bool {
	st := &m.tasks[id].st
	var start, end time.Time
	for i, c := range st.children {
		cs := &m.tasks[c].st
		if i == 0 || cs.start.Before(start) {
			start = cs.start
		}
		if i == 0 || cs.end.After(end) {
			end = cs.end
		}
	}
	if start.Equal(st.start) && end.Equal(st.end) && !st.milestone {
		return false
	}
	st = tx.touch(id)
	st.start, st.end, st.milestone = start, end, false
	st.duration = calendar.Days(calendar.Between(m.cal, start, end))
	return true
}
