package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/cpm"
)

// edgeBound returns the earliest start d allows a dependant of succDays
// working days, given the dependee occupies [predStart, predEnd).
func edgeBound(cal calendar.Calendar, d Dependency, predStart, predEnd time.Time, succDays int) (time.Time, error) {
	return cpm.StartBound(cal, d.Type.relation(), d.Lag, predStart, predEnd, succDays)
}

// updateCritical recomputes critical flags and critical times for the whole
// project. Edges touching a supertask are expanded to its leaf tasks.
func (m *Manager) updateCritical(tx *txn) error {
	ids := m.sortedIDs()
	nodes := make([]cpm.Node, 0, len(ids))
	for _, id := range ids {
		st := &m.tasks[id].st
		if len(st.children) > 0 {
			continue
		}
		nodes = append(nodes, cpm.Node{
			ID:    id,
			Start: st.start,
			End:   st.end,
			Days:  calendar.Between(m.cal, st.start, st.end),
		})
	}
	var links []cpm.Link
	for _, d := range m.deps.all() {
		for _, from := range m.leaves(d.Dependee) {
			for _, to := range m.leaves(d.Dependant) {
				links = append(links, cpm.Link{From: from, To: to, Relation: d.Type.relation(), Lag: d.Lag})
			}
		}
	}

	res, err := cpm.Analyze(m.cal, nodes, links)
	if err != nil {
		return fmt.Errorf("critical path: %w", err)
	}

	critical := make(map[int]bool, len(ids))
	for id, s := range res.Tasks {
		critical[id] = s.IsCritical
	}
	// children are visited before parents when walking IDs in reverse depth order
	for _, id := range m.byDepth(ids) {
		st := &m.tasks[id].st
		for _, c := range st.children {
			if critical[c] {
				critical[id] = true
				break
			}
		}
	}

	times := make(map[int][]time.Time, len(ids))
	for _, id := range m.byDepth(ids) {
		if !critical[id] {
			continue
		}
		times[id] = m.criticalTimes(id, critical, times)
	}

	for _, id := range ids {
		st := &m.tasks[id].st
		if st.critical == critical[id] && slices.EqualFunc(st.criticalTimes, times[id], time.Time.Equal) {
			continue
		}
		st = tx.touch(id)
		st.critical = critical[id]
		st.criticalTimes = times[id]
	}

	prevPath, prevStart, prevEnd := m.criticalPath, m.projectStart, m.projectEnd
	tx.onRollback(func() { m.criticalPath, m.projectStart, m.projectEnd = prevPath, prevStart, prevEnd })
	m.criticalPath = res.CriticalPath
	m.projectStart, m.projectEnd = res.ProjectStart, res.ProjectEnd
	return nil
}

// byDepth orders ids deepest first so that every child precedes its parent.
func (m *Manager) byDepth(ids []int) []int {
	depth := make(map[int]int, len(ids))
	for _, id := range ids {
		for p := m.tasks[id].st.parent; p != 0; p = m.tasks[p].st.parent {
			depth[id]++
		}
	}
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(a, b int) int { return depth[b] - depth[a] })
	return out
}

// criticalTimes collects the breakpoints of a critical task: its start and
// end, the boundaries between its working and non-working activities, and the
// dates bound by incoming edges from critical dependees. A supertask also
// carries the breakpoints of its critical nested tasks.
func (m *Manager) criticalTimes(id int, critical map[int]bool, known map[int][]time.Time) []time.Time {
	st := &m.tasks[id].st
	out := []time.Time{st.start, st.end}
	if len(st.children) > 0 {
		for _, c := range st.children {
			out = append(out, known[c]...)
		}
	} else {
		for _, a := range activities(m.cal, st) {
			out = append(out, a.Start, a.End)
		}
		days := calendar.Between(m.cal, st.start, st.end)
		for _, d := range m.deps.in[id] {
			if !critical[d.Dependee] {
				continue
			}
			pred := &m.tasks[d.Dependee].st
			b, err := edgeBound(m.cal, d, pred.start, pred.end, days)
			if err != nil || b.Before(st.start) || b.After(st.end) {
				continue
			}
			out = append(out, b)
		}
	}
	slices.SortFunc(out, time.Time.Compare)
	return slices.CompactFunc(out, time.Time.Equal)
}
