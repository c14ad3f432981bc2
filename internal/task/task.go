// Package task implements the scheduling core: tasks, their dependency graph
// and hierarchy, the mutator protocol, and the recompute engine that keeps
// dates and critical-path facts consistent after every edit.
package task

import (
	"maps"
	"slices"
	"time"

	"github.com/fentz26/planline/internal/calendar"
)

// Document is an attachment reference. The core passes it through untouched.
type Document struct {
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Assignment is a read-only view of a resource allocated to a task.
type Assignment struct {
	ResourceID  int     `json:"resource_id"`
	Load        float64 `json:"load"`
	Coordinator bool    `json:"coordinator"`
	Role        Role    `json:"role"`
}

// Activity is an atomic scheduled interval of a task, [Start, End).
type Activity struct {
	Start   time.Time
	End     time.Time
	Working bool
}

// CustomValues holds typed custom-column values keyed by column name.
type CustomValues map[string]any

// state is everything a commit can change. It is copied for rollback.
type state struct {
	name           string
	start          time.Time
	end            time.Time
	duration       calendar.Duration
	milestone      bool
	completion     int
	priority       Priority
	role           Role
	projectTask    bool
	expand         bool
	color          string
	shape          string
	notes          string
	custom         CustomValues
	third          time.Time
	thirdKind      ThirdDateConstraint
	attachments    []Document
	assignments    []Assignment
	parent         int
	children       []int
	critical       bool
	criticalTimes  []time.Time
	activities     []Activity
	deadlineMissed bool
}

func (s state) clone() state {
	s.custom = maps.Clone(s.custom)
	s.attachments = slices.Clone(s.attachments)
	s.assignments = slices.Clone(s.assignments)
	s.children = slices.Clone(s.children)
	s.criticalTimes = slices.Clone(s.criticalTimes)
	s.activities = slices.Clone(s.activities)
	return s
}

// Task is a schedulable work item. All fields are read through accessors and
// changed only through a Mutator so that every change is recomputed.
type Task struct {
	mgr *Manager // nil for unplugged clones
	id  int
	st  state
}

// rlock takes the manager read lock and returns its release.
func (t *Task) rlock() func() {
	if t.mgr == nil {
		return func() {}
	}
	t.mgr.mu.RLock()
	return t.mgr.mu.RUnlock
}

// ID returns the immutable task ID.
func (t *Task) ID() int { return t.id }

// Manager returns the owning manager, nil for unplugged clones.
func (t *Task) Manager() *Manager { return t.mgr }

func (t *Task) Name() string {
	defer t.rlock()()
	return t.st.name
}

// Start returns the first day of the task.
func (t *Task) Start() time.Time {
	defer t.rlock()()
	return t.st.start
}

// End returns the exclusive end day.
func (t *Task) End() time.Time {
	defer t.rlock()()
	return t.st.end
}

// DisplayEnd returns the last day the task occupies, as shown on a chart.
func (t *Task) DisplayEnd() time.Time {
	defer t.rlock()()
	return t.st.displayEnd()
}

func (s *state) displayEnd() time.Time {
	if s.milestone || !s.end.After(s.start) {
		return s.start
	}
	return s.end.AddDate(0, 0, -1)
}

func (t *Task) Duration() calendar.Duration {
	defer t.rlock()()
	return t.st.duration
}

// TranslateDuration expresses d in working days on the task's calendar.
func (t *Task) TranslateDuration(d calendar.Duration) calendar.Duration {
	return calendar.Translate(t.calendar(), d)
}

func (t *Task) calendar() calendar.Calendar {
	if t.mgr == nil {
		return calendar.AllDays()
	}
	return t.mgr.cal
}

func (t *Task) IsMilestone() bool {
	defer t.rlock()()
	return t.st.milestone
}

// Completion returns the completion percentage, 0–100.
func (t *Task) Completion() int {
	defer t.rlock()()
	return t.st.completion
}

func (t *Task) Priority() Priority {
	defer t.rlock()()
	return t.st.priority
}

func (t *Task) Role() Role {
	defer t.rlock()()
	return t.st.role
}

// IsProjectTask reports whether the task is marked as a project summary task.
func (t *Task) IsProjectTask() bool {
	defer t.rlock()()
	return t.st.projectTask
}

// IsSupertask reports whether the task has nested tasks.
func (t *Task) IsSupertask() bool {
	defer t.rlock()()
	return len(t.st.children) > 0
}

// Expand reports whether the nested tasks are shown expanded.
func (t *Task) Expand() bool {
	defer t.rlock()()
	return t.st.expand
}

// Color returns the custom colour, or the palette colour for the task's kind.
func (t *Task) Color() string {
	defer t.rlock()()
	if t.st.color != "" {
		return t.st.color
	}
	var p Palette = DefaultPalette{}
	if t.mgr != nil {
		p = t.mgr.palette
	}
	return p.Color(t.st.kind())
}

func (t *Task) Shape() string {
	defer t.rlock()()
	return t.st.shape
}

func (t *Task) Notes() string {
	defer t.rlock()()
	return t.st.notes
}

// CustomValues returns a copy of the custom-column values.
func (t *Task) CustomValues() CustomValues {
	defer t.rlock()()
	return maps.Clone(t.st.custom)
}

// Third returns the supplementary third date, zero when unset.
func (t *Task) Third() time.Time {
	defer t.rlock()()
	return t.st.third
}

func (t *Task) ThirdDateConstraint() ThirdDateConstraint {
	defer t.rlock()()
	return t.st.thirdKind
}

// DeadlineMissed reports whether a deadline third date is exceeded.
func (t *Task) DeadlineMissed() bool {
	defer t.rlock()()
	return t.st.deadlineMissed
}

// Attachments returns the attached documents in order.
func (t *Task) Attachments() []Document {
	defer t.rlock()()
	return slices.Clone(t.st.attachments)
}

// Assignments returns the resource assignments.
func (t *Task) Assignments() []Assignment {
	defer t.rlock()()
	return slices.Clone(t.st.assignments)
}

// Supertask returns the parent task, nil for root tasks.
func (t *Task) Supertask() *Task {
	defer t.rlock()()
	if t.mgr == nil || t.st.parent == 0 {
		return nil
	}
	return t.mgr.tasks[t.st.parent]
}

// NestedTasks returns the child tasks in order.
func (t *Task) NestedTasks() []*Task {
	defer t.rlock()()
	if t.mgr == nil {
		return nil
	}
	out := make([]*Task, 0, len(t.st.children))
	for _, id := range t.st.children {
		out = append(out, t.mgr.tasks[id])
	}
	return out
}

// Dependencies returns every edge incident to the task.
func (t *Task) Dependencies() Slice {
	return t.slice(func(g *depGraph) []Dependency { return g.incident(t.id) })
}

// DependenciesAsDependant returns the edges where the task is the successor.
func (t *Task) DependenciesAsDependant() Slice {
	return t.slice(func(g *depGraph) []Dependency { return g.incoming(t.id) })
}

// DependenciesAsDependee returns the edges where the task is the predecessor.
func (t *Task) DependenciesAsDependee() Slice {
	return t.slice(func(g *depGraph) []Dependency { return g.outgoing(t.id) })
}

func (t *Task) slice(query func(*depGraph) []Dependency) Slice {
	if t.mgr == nil {
		return Slice{}
	}
	defer t.rlock()()
	return Slice{mgr: t.mgr, deps: query(t.mgr.deps)}
}

// IsCritical reports critical-path membership as of the last recompute.
func (t *Task) IsCritical() bool {
	defer t.rlock()()
	return t.st.critical
}

// CriticalTimes returns the sorted breakpoints of the task's critical span.
func (t *Task) CriticalTimes() []time.Time {
	defer t.rlock()()
	return slices.Clone(t.st.criticalTimes)
}

// Activities returns the working and non-working intervals of the task.
func (t *Task) Activities() []Activity {
	defer t.rlock()()
	return slices.Clone(t.st.activities)
}

// Info returns a consistent snapshot of every attribute.
func (t *Task) Info() Info {
	defer t.rlock()()
	return t.info()
}

func (t *Task) info() Info {
	s := t.st.clone()
	return Info{
		ID:             t.id,
		Name:           s.name,
		Start:          s.start,
		End:            s.end,
		DisplayEnd:     s.displayEnd(),
		Duration:       s.duration,
		Milestone:      s.milestone,
		Completion:     s.completion,
		Priority:       s.priority,
		Role:           s.role,
		ProjectTask:    s.projectTask,
		Expand:         s.expand,
		Color:          s.color,
		Shape:          s.shape,
		Notes:          s.notes,
		Custom:         s.custom,
		Third:          s.third,
		ThirdKind:      s.thirdKind,
		Attachments:    s.attachments,
		Assignments:    s.assignments,
		Parent:         s.parent,
		Children:       s.children,
		Critical:       s.critical,
		CriticalTimes:  s.criticalTimes,
		DeadlineMissed: s.deadlineMissed,
	}
}

// Info is a detached copy of a task's attributes.
type Info struct {
	ID             int
	Name           string
	Start          time.Time
	End            time.Time
	DisplayEnd     time.Time
	Duration       calendar.Duration
	Milestone      bool
	Completion     int
	Priority       Priority
	Role           Role
	ProjectTask    bool
	Expand         bool
	Color          string
	Shape          string
	Notes          string
	Custom         CustomValues
	Third          time.Time
	ThirdKind      ThirdDateConstraint
	Attachments    []Document
	Assignments    []Assignment
	Parent         int
	Children       []int
	Critical       bool
	CriticalTimes  []time.Time
	DeadlineMissed bool
}

// CreateMutator starts an edit session in which a changed duration moves the end date.
func (t *Task) CreateMutator() *Mutator {
	return &Mutator{task: t}
}

// CreateMutatorFixingDuration starts an edit session in which dates are
// authoritative and the duration is recomputed from them.
func (t *Task) CreateMutatorFixingDuration() *Mutator {
	return &Mutator{task: t, fixDuration: true}
}

// UnpluggedClone returns a detached copy for what-if previews. It shares no
// mutable state with t and has no hierarchy or dependencies; mutator commits
// on the clone never propagate.
func (t *Task) UnpluggedClone() *Task {
	defer t.rlock()()
	c := &Task{id: t.id, st: t.st.clone()}
	c.st.parent = 0
	c.st.children = nil
	return c
}

// Move re-parents the task under target, or makes it a root task when target is nil.
func (t *Task) Move(target *Task) error {
	if t.mgr == nil {
		return ErrDetached
	}
	return t.mgr.move(t, target)
}

// Delete removes the task from its parent and from every dependency.
// A task with nested tasks is rejected with ErrHasNestedTasks.
func (t *Task) Delete() error {
	if t.mgr == nil {
		return ErrDetached
	}
	return t.mgr.deleteTask(t.id)
}

// Kind classifies a task for colour and shape resolution.
type Kind int

const (
	KindTask Kind = iota
	KindMilestone
	KindSupertask
	KindProjectTask
)

func (s *state) kind() Kind {
	switch {
	case s.projectTask:
		return KindProjectTask
	case len(s.children) > 0:
		return KindSupertask
	case s.milestone:
		return KindMilestone
	default:
		return KindTask
	}
}

// Palette resolves display colours. It is supplied by the rendering layer.
type Palette interface {
	Color(kind Kind) string
}

// DefaultPalette returns fixed colours per kind.
type DefaultPalette struct{}

func (DefaultPalette) Color(kind Kind) string {
	switch kind {
	case KindMilestone:
		return "#000000"
	case KindSupertask, KindProjectTask:
		return "#404040"
	default:
		return "#8cb6ce"
	}
}
