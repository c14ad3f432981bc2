package task

import (
	"fmt"
	"slices"
	"time"

	"github.com/fentz26/planline/internal/calendar"
)

type opt[T any] struct {
	v   T
	set bool
}

func (o *opt[T]) put(v T) { o.v, o.set = v, true }

func (o opt[T]) or(def T) T {
	if o.set {
		return o.v
	}
	return def
}

type mutatorStatus int

const (
	mutatorOpen mutatorStatus = iota
	mutatorCommitted
	mutatorDiscarded
)

// Mutator stages attribute changes for one task. Nothing is visible until
// Commit, which validates, applies, and recomputes in one step. A mutator is
// consumed by Commit or Discard, whether or not the commit succeeds.
type Mutator struct {
	task        *Task
	fixDuration bool
	status      mutatorStatus

	name        opt[string]
	start       opt[time.Time]
	end         opt[time.Time]
	duration    opt[calendar.Duration]
	shift       int
	milestone   opt[bool]
	completion  opt[int]
	priority    opt[Priority]
	role        opt[Role]
	notes       opt[string]
	projectTask opt[bool]
	expand      opt[bool]
	color       opt[string]
	shape       opt[string]
	third       opt[time.Time]
	thirdKind   opt[ThirdDateConstraint]
	attachments opt[[]Document]
	assignments opt[[]Assignment]
	custom      map[string]any
}

// Task returns the task the mutator edits.
func (m *Mutator) Task() *Task { return m.task }

// ensureOpen panics when a closed mutator is reused; that is a caller bug.
func (m *Mutator) ensureOpen() {
	if m.status != mutatorOpen {
		panic(fmt.Errorf("stage change on task %d: %w", m.task.id, ErrMutatorClosed))
	}
}

func (m *Mutator) SetName(name string) { m.ensureOpen(); m.name.put(name) }

func (m *Mutator) SetStart(t time.Time) { m.ensureOpen(); m.start.put(t) }

// SetEnd stages the exclusive end date.
func (m *Mutator) SetEnd(t time.Time) { m.ensureOpen(); m.end.put(t) }

func (m *Mutator) SetDuration(d calendar.Duration) { m.ensureOpen(); m.duration.put(d) }

// Shift moves the task by days calendar days, keeping its duration.
func (m *Mutator) Shift(days int) { m.ensureOpen(); m.shift += days }

func (m *Mutator) SetMilestone(v bool) { m.ensureOpen(); m.milestone.put(v) }

func (m *Mutator) SetCompletion(pct int) { m.ensureOpen(); m.completion.put(pct) }

func (m *Mutator) SetPriority(p Priority) { m.ensureOpen(); m.priority.put(p) }

func (m *Mutator) SetRole(r Role) { m.ensureOpen(); m.role.put(r) }

func (m *Mutator) SetNotes(notes string) { m.ensureOpen(); m.notes.put(notes) }

func (m *Mutator) SetProjectTask(v bool) { m.ensureOpen(); m.projectTask.put(v) }

func (m *Mutator) SetExpand(v bool) { m.ensureOpen(); m.expand.put(v) }

// SetColor stages a custom colour; "" restores the palette colour.
func (m *Mutator) SetColor(c string) { m.ensureOpen(); m.color.put(c) }

func (m *Mutator) SetShape(s string) { m.ensureOpen(); m.shape.put(s) }

// SetThird stages the third date; the zero time clears it.
func (m *Mutator) SetThird(t time.Time) { m.ensureOpen(); m.third.put(t) }

func (m *Mutator) SetThirdConstraint(c ThirdDateConstraint) { m.ensureOpen(); m.thirdKind.put(c) }

func (m *Mutator) SetAttachments(docs []Document) {
	m.ensureOpen()
	m.attachments.put(slices.Clone(docs))
}

func (m *Mutator) SetAssignments(as []Assignment) {
	m.ensureOpen()
	m.assignments.put(slices.Clone(as))
}

// SetCustomValue stages a custom-column value; a nil value removes the column.
func (m *Mutator) SetCustomValue(key string, value any) {
	m.ensureOpen()
	if m.custom == nil {
		m.custom = make(map[string]any)
	}
	m.custom[key] = value
}

// Commit validates the staged changes, applies them, and recomputes the
// project. On any failure no change is visible. Committing a closed mutator
// returns ErrMutatorClosed.
func (m *Mutator) Commit() error {
	if m.status != mutatorOpen {
		return ErrMutatorClosed
	}
	m.status = mutatorCommitted
	if m.task.mgr == nil {
		return m.commitDetached()
	}
	return m.task.mgr.commit(m)
}

// Discard drops the staged changes.
func (m *Mutator) Discard() error {
	if m.status != mutatorOpen {
		return ErrMutatorClosed
	}
	m.status = mutatorDiscarded
	return nil
}

// changes lists the staged values by field name for the audit journal.
func (m *Mutator) changes() map[string]any {
	out := make(map[string]any)
	add := func(field string, set bool, v any) {
		if set {
			out[field] = v
		}
	}
	add("name", m.name.set, m.name.v)
	add("start", m.start.set, m.start.v)
	add("end", m.end.set, m.end.v)
	add("duration", m.duration.set, m.duration.v.String())
	add("shift", m.shift != 0, m.shift)
	add("milestone", m.milestone.set, m.milestone.v)
	add("completion", m.completion.set, m.completion.v)
	add("priority", m.priority.set, m.priority.v.Code())
	add("role", m.role.set, m.role.v.Code())
	add("notes", m.notes.set, m.notes.v)
	add("project_task", m.projectTask.set, m.projectTask.v)
	add("expand", m.expand.set, m.expand.v)
	add("color", m.color.set, m.color.v)
	add("shape", m.shape.set, m.shape.v)
	add("third", m.third.set, m.third.v)
	add("third_constraint", m.thirdKind.set, m.thirdKind.v.String())
	add("attachments", m.attachments.set, len(m.attachments.v))
	add("assignments", m.assignments.set, len(m.assignments.v))
	for k, v := range m.custom {
		out["custom."+k] = v
	}
	return out
}

// commitDetached applies a commit to an unplugged clone: validation and the
// local update only.
func (m *Mutator) commitDetached() error {
	cal := m.task.calendar()
	next, err := m.resolve(cal, m.task.st, false)
	if err != nil {
		return err
	}
	next.activities = activities(cal, &next)
	next.deadlineMissed = next.missesDeadline()
	m.task.st = next
	return nil
}

// resolve produces the task state the commit would apply, or a validation error.
func (m *Mutator) resolve(cal calendar.Calendar, cur state, supertask bool) (state, error) {
	next := cur.clone()

	next.name = m.name.or(cur.name)
	next.priority = m.priority.or(cur.priority)
	next.role = m.role.or(cur.role)
	next.notes = m.notes.or(cur.notes)
	next.projectTask = m.projectTask.or(cur.projectTask)
	next.expand = m.expand.or(cur.expand)
	next.color = m.color.or(cur.color)
	next.shape = m.shape.or(cur.shape)
	next.thirdKind = m.thirdKind.or(cur.thirdKind)
	next.third = calendar.Normalize(m.third.or(cur.third))
	next.attachments = m.attachments.or(next.attachments)
	next.assignments = m.assignments.or(next.assignments)
	next.milestone = m.milestone.or(cur.milestone)
	next.completion = m.completion.or(cur.completion)

	if len(m.custom) > 0 {
		if next.custom == nil {
			next.custom = make(CustomValues)
		}
		for k, v := range m.custom {
			if v == nil {
				delete(next.custom, k)
				continue
			}
			next.custom[k] = v
		}
	}

	if next.completion < 0 || next.completion > 100 {
		return state{}, invalid("completion", "%d is outside 0..100", next.completion)
	}
	if !next.third.IsZero() {
		if err := calendar.CheckRange(next.third); err != nil {
			return state{}, invalidCause("third", err)
		}
	}
	if err := m.resolveDates(cal, cur, &next, supertask); err != nil {
		return state{}, err
	}
	return next, validate(&next)
}

func (m *Mutator) resolveDates(cal calendar.Calendar, cur state, next *state, supertask bool) error {
	start := cur.start
	if m.start.set {
		start = calendar.Normalize(m.start.v)
	}
	if m.shift != 0 {
		var err error
		if start, err = calendar.AddDays(start, m.shift); err != nil {
			return invalidCause("start", err)
		}
	}
	if err := calendar.CheckRange(start); err != nil {
		return invalidCause("start", err)
	}

	if supertask {
		if m.end.set || m.duration.set || next.milestone {
			return fmt.Errorf("task %d: %w", m.task.id, ErrDerivedSpan)
		}
		end, err := calendar.AddDays(cur.end, int(start.Sub(cur.start).Hours()/24))
		if err != nil {
			return invalidCause("end", err)
		}
		next.start, next.end = start, end
		return nil
	}

	if next.milestone {
		if m.duration.set && !m.duration.v.IsZero() {
			return invalid("duration", "milestone must have zero duration, got %s", m.duration.v)
		}
		if m.end.set && !calendar.Normalize(m.end.v).Equal(start) {
			return invalid("end", "milestone must end on its start date")
		}
		next.start, next.end, next.duration = start, start, calendar.Days(0)
		return nil
	}

	if m.duration.set && m.duration.v.Length < 0 {
		return invalid("duration", "negative duration %s", m.duration.v)
	}

	var err error
	if m.fixDuration {
		end := cur.end
		switch {
		case m.end.set:
			end = calendar.Normalize(m.end.v)
		case m.duration.set:
			end, err = calendar.Shift(cal, start, calendar.WorkingDays(cal, m.duration.v))
		case m.shift != 0 && !m.start.set:
			end, err = calendar.AddDays(cur.end, m.shift)
		}
		if err != nil {
			return invalidCause("end", err)
		}
		if end.Before(start) {
			return invalid("end", "%s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
		}
		next.start, next.end = start, end
		next.duration = calendar.Days(calendar.Between(cal, start, end))
		return nil
	}

	dur := m.duration.or(cur.duration)
	var end time.Time
	if m.end.set && !m.duration.set {
		end = calendar.Normalize(m.end.v)
		if end.Before(start) {
			return invalid("end", "%s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
		}
		dur = calendar.Days(calendar.Between(cal, start, end))
	} else {
		if end, err = calendar.Shift(cal, start, calendar.WorkingDays(cal, dur)); err != nil {
			return invalidCause("end", err)
		}
		if m.end.set && !calendar.Normalize(m.end.v).Equal(end) {
			return invalid("end", "%s conflicts with duration %s", calendar.Normalize(m.end.v).Format(time.DateOnly), dur)
		}
	}
	next.start, next.end, next.duration = start, end, dur
	return nil
}

// validate checks the local invariants every committed state must satisfy.
func validate(s *state) error {
	if s.end.Before(s.start) {
		return invalid("end", "%s is before start %s", s.end.Format(time.DateOnly), s.start.Format(time.DateOnly))
	}
	if s.duration.Length < 0 {
		return invalid("duration", "negative duration %s", s.duration)
	}
	if s.milestone && (!s.duration.IsZero() || !s.end.Equal(s.start)) {
		return invalid("milestone", "milestone must have zero duration")
	}
	if err := calendar.CheckRange(s.end); err != nil {
		return invalidCause("end", err)
	}
	return nil
}

// activities splits the task span into working and non-working intervals.
func activities(cal calendar.Calendar, s *state) []Activity {
	if s.milestone || !s.end.After(s.start) {
		return []Activity{{Start: s.start, End: s.start, Working: cal.IsWorkingDay(s.start)}}
	}
	spans := calendar.Split(cal, s.start, s.end)
	out := make([]Activity, len(spans))
	for i, sp := range spans {
		out[i] = Activity{Start: sp.Start, End: sp.End, Working: sp.Working}
	}
	return out
}
