package task

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/planline/internal/calendar"
)

// Recorder receives one entry per manager operation, successful or not.
// Implementations must not call back into the manager.
type Recorder interface {
	Record(action string, inputs any, outcome string, taskID int)
}

// Manager owns the task collection, allocates IDs, and serialises every edit
// through the recompute engine.
type Manager struct {
	mu       sync.RWMutex
	cal      calendar.Calendar
	log      *zap.Logger
	recorder Recorder
	palette  Palette
	hardness Hardness

	nextID int
	tasks  map[int]*Task
	roots  []int
	deps   *depGraph

	criticalPath []int
	projectStart time.Time
	projectEnd   time.Time
}

// Option configures a Manager.
type Option func(*Manager)

func WithCalendar(cal calendar.Calendar) Option {
	return func(m *Manager) { m.cal = cal }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

func WithRecorder(r Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

func WithPalette(p Palette) Option {
	return func(m *Manager) { m.palette = p }
}

// WithDefaultHardness sets the hardness used by AddDependency callers that
// pass the manager default through DefaultHardness.
func WithDefaultHardness(h Hardness) Option {
	return func(m *Manager) { m.hardness = h }
}

// WithFirstID sets the first ID handed out by CreateTask.
func WithFirstID(id int) Option {
	return func(m *Manager) {
		if id > 0 {
			m.nextID = id
		}
	}
}

// NewManager returns an empty project.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		cal:     calendar.Standard(),
		log:     zap.NewNop(),
		palette: DefaultPalette{},
		nextID:  1,
		tasks:   make(map[int]*Task),
		deps:    newDepGraph(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Calendar returns the calendar the manager schedules on.
func (m *Manager) Calendar() calendar.Calendar { return m.cal }

// DefaultHardness returns the configured hardness for new dependencies.
func (m *Manager) DefaultHardness() Hardness { return m.hardness }

// record logs the outcome of an operation and forwards it to the recorder.
func (m *Manager) record(action string, inputs any, err error, taskID int) {
	outcome := "ok"
	if err != nil {
		outcome = err.Error()
		m.log.Warn("operation rejected",
			zap.String("action", action),
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
	} else {
		m.log.Debug("operation applied", zap.String("action", action), zap.Int("task_id", taskID))
	}
	if m.recorder != nil {
		m.recorder.Record(action, inputs, outcome, taskID)
	}
}

func (m *Manager) sortedIDs() []int {
	ids := make([]int, 0, len(m.tasks))
	for id := range m.tasks {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// CreateTask adds a root task starting at start and lasting duration working days.
func (m *Manager) CreateTask(name string, start time.Time, duration calendar.Duration) (t *Task, err error) {
	inputs := map[string]any{"name": name, "start": start, "duration": duration.String()}
	defer func() {
		id := 0
		if t != nil {
			id = t.id
		}
		m.record("create", inputs, err, id)
	}()

	start = calendar.Normalize(start)
	if err := calendar.CheckRange(start); err != nil {
		return nil, fmt.Errorf("create task: %w", invalidCause("start", err))
	}
	if duration.Length < 0 {
		return nil, fmt.Errorf("create task: %w", invalid("duration", "negative duration %s", duration))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	end, err := calendar.Shift(m.cal, start, calendar.WorkingDays(m.cal, duration))
	if err != nil {
		return nil, fmt.Errorf("create task: %w", invalidCause("end", err))
	}
	t = &Task{
		mgr: m,
		id:  m.nextID,
		st: state{
			name:     name,
			start:    start,
			end:      end,
			duration: duration,
			priority: DefaultPriority,
			role:     DefaultRole,
			expand:   true,
		},
	}
	m.nextID++
	m.tasks[t.id] = t
	m.roots = append(m.roots, t.id)

	tx := m.begin()
	tx.touch(t.id)
	w := newWave()
	w.seed(inNode(t.id), true)
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		delete(m.tasks, t.id)
		m.roots = m.roots[:len(m.roots)-1]
		return nil, fmt.Errorf("create task: %w", err)
	}
	return t, nil
}

// Task returns the task with the given ID.
func (m *Manager) Task(id int) (*Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %d: %w", id, ErrTaskNotFound)
	}
	return t, nil
}

// Tasks returns every task in ID order.
func (m *Manager) Tasks() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Task, 0, len(m.tasks))
	for _, id := range m.sortedIDs() {
		out = append(out, m.tasks[id])
	}
	return out
}

// RootTasks returns the tasks without a supertask in display order.
func (m *Manager) RootTasks() []*Task {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Task, 0, len(m.roots))
	for _, id := range m.roots {
		out = append(out, m.tasks[id])
	}
	return out
}

// Len returns the number of tasks.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tasks)
}

// AddDependency links dependee to dependant. The edge is rejected, and the
// graph left unchanged, when it is a self or hierarchical edge, a duplicate,
// or would close a cycle.
func (m *Manager) AddDependency(dependee, dependant int, typ Type, lag int, hardness Hardness) (err error) {
	d := Dependency{Dependee: dependee, Dependant: dependant, Type: typ, Lag: lag, Hardness: hardness}
	if !typ.valid() {
		d.Type = FinishStart
	}
	defer func() { m.record("link", d, err, dependant) }()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkDependency(d); err != nil {
		return err
	}

	tx := m.begin()
	m.deps.add(d)
	tx.onRollback(func() { m.deps.remove(d.Dependee, d.Dependant) })

	w := newWave()
	w.seed(inNode(dependant), false)
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		m.log.Error("dependency rolled back", zap.Int("task_id", dependant), zap.Error(err))
		return fmt.Errorf("link %d->%d: %w", dependee, dependant, err)
	}
	return nil
}

func (m *Manager) checkDependency(d Dependency) error {
	for _, id := range []int{d.Dependee, d.Dependant} {
		if _, ok := m.tasks[id]; !ok {
			return fmt.Errorf("link %d->%d: task %d: %w", d.Dependee, d.Dependant, id, ErrTaskNotFound)
		}
	}
	if d.Dependee == d.Dependant {
		return fmt.Errorf("link %d->%d: self dependency: %w", d.Dependee, d.Dependant, ErrInvalidDependency)
	}
	if m.isAncestor(d.Dependee, d.Dependant) || m.isAncestor(d.Dependant, d.Dependee) {
		return fmt.Errorf("link %d->%d: tasks are nested: %w", d.Dependee, d.Dependant, ErrInvalidDependency)
	}
	if _, ok := m.deps.find(d.Dependee, d.Dependant); ok {
		return fmt.Errorf("link %d->%d: %w", d.Dependee, d.Dependant, ErrDuplicateDependency)
	}
	if m.reaches(inNode(d.Dependant), outNode(d.Dependee)) {
		return fmt.Errorf("link %d->%d: %w", d.Dependee, d.Dependant, ErrDependencyCycle)
	}
	return nil
}

// RemoveDependency deletes the edge if it exists. Removing a missing edge is a no-op.
func (m *Manager) RemoveDependency(dependee, dependant int) (err error) {
	defer func() {
		m.record("unlink", Dependency{Dependee: dependee, Dependant: dependant}, err, dependant)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deps.find(dependee, dependant)
	if !ok {
		return nil
	}
	tx := m.begin()
	m.deps.remove(dependee, dependant)
	tx.onRollback(func() { m.deps.add(d) })

	w := newWave()
	w.seed(inNode(dependant), false)
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		return fmt.Errorf("unlink %d->%d: %w", dependee, dependant, err)
	}
	return nil
}

// Dependencies returns every edge in the project.
func (m *Manager) Dependencies() Slice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Slice{mgr: m, deps: m.deps.all()}
}

// Recalculate recomputes every task from scratch.
func (m *Manager) Recalculate() (err error) {
	defer func() { m.record("recalculate", nil, err, 0) }()

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recalculate()
}

func (m *Manager) recalculate() error {
	tx := m.begin()
	w := newWave()
	for id := range m.tasks {
		w.seed(inNode(id), true)
		w.seed(outNode(id), true)
		tx.touch(id)
	}
	if err := m.run(tx, w); err != nil {
		tx.rollback()
		return fmt.Errorf("recalculate: %w", err)
	}
	return nil
}

// CriticalPath returns the critical leaf tasks in topological order.
func (m *Manager) CriticalPath() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.criticalPath)
}

// ProjectStart returns the earliest task start, zero for an empty project.
func (m *Manager) ProjectStart() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.projectStart
}

// ProjectEnd returns the latest exclusive task end, zero for an empty project.
func (m *Manager) ProjectEnd() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.projectEnd
}

// isAncestor reports whether a is a proper ancestor of id.
func (m *Manager) isAncestor(a, id int) bool {
	for p := m.tasks[id].st.parent; p != 0; p = m.tasks[p].st.parent {
		if p == a {
			return true
		}
	}
	return false
}

// leaves returns id itself for a leaf, otherwise its leaf descendants in order.
func (m *Manager) leaves(id int) []int {
	t := m.tasks[id]
	if len(t.st.children) == 0 {
		return []int{id}
	}
	var out []int
	for _, c := range t.st.children {
		out = append(out, m.leaves(c)...)
	}
	return out
}

// descendants returns every task nested below id, depth first.
func (m *Manager) descendants(id int) []int {
	var out []int
	for _, c := range m.tasks[id].st.children {
		out = append(out, c)
		out = append(out, m.descendants(c)...)
	}
	return out
}
