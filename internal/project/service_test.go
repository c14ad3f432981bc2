package project

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/config"
	"github.com/fentz26/planline/internal/store"
	"github.com/fentz26/planline/internal/task"
)

var day0 = calendar.Day(2024, time.January, 1) // Monday

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func TestCreateSaveReopen(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	svc := newTestService(t, st, "plan")
	design, err := svc.AddTask(TaskSpec{Name: "design", Start: day(0), Duration: calendar.Days(3)})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	build, err := svc.AddTask(TaskSpec{Name: "build", Start: day(0), Duration: calendar.Days(2)})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if err := svc.Link(design.ID(), build.ID(), task.FinishStart, 0, nil); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if !build.Start().Equal(day(3)) {
		t.Errorf("Expected build to start on day 3, got %v", build.Start())
	}
	if err := svc.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reopened, err := Open(ctx, st, "plan", allDaysConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if reopened.Manager().Len() != 2 {
		t.Fatalf("Expected 2 tasks, got %d", reopened.Manager().Len())
	}
	rb, _ := reopened.Manager().Task(build.ID())
	if !rb.Start().Equal(day(3)) || rb.DependenciesAsDependant().Len() != 1 {
		t.Errorf("reopened schedule differs: start %v, %d incoming edges", rb.Start(), rb.DependenciesAsDependant().Len())
	}
	path := reopened.Manager().CriticalPath()
	if len(path) != 2 || path[0] != design.ID() || path[1] != build.ID() {
		t.Errorf("unexpected critical path %v", path)
	}

	entries, err := reopened.Journal(ctx, 0)
	if err != nil {
		t.Fatalf("Journal failed: %v", err)
	}
	// create, create, link; opening is not journaled
	if len(entries) != 3 {
		t.Errorf("Expected 3 journal entries, got %d", len(entries))
	}
}

func TestCreate_EmptyName(t *testing.T) {
	st := newTestStore(t)
	if _, err := Create(context.Background(), st, "", nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestOpen_Unknown(t *testing.T) {
	st := newTestStore(t)
	if _, err := Open(context.Background(), st, "nope", nil, nil); !errors.Is(err, store.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestAddTask_Nested(t *testing.T) {
	svc := newTestService(t, newTestStore(t), "nested")
	phase, err := svc.AddTask(TaskSpec{Name: "phase", Start: day(0), Duration: calendar.Days(1)})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	child, err := svc.AddTask(TaskSpec{Name: "child", Start: day(2), Duration: calendar.Days(4), Parent: phase.ID()})
	if err != nil {
		t.Fatalf("AddTask failed: %v", err)
	}
	if child.Supertask() != phase {
		t.Error("child should be nested under phase")
	}
	if !phase.Start().Equal(day(2)) || !phase.End().Equal(day(6)) {
		t.Errorf("supertask span should cover child, got %v-%v", phase.Start(), phase.End())
	}

	if _, err := svc.AddTask(TaskSpec{Name: "orphan", Start: day(0), Duration: calendar.Days(1), Parent: 99}); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound for unknown parent, got %v", err)
	}
	if svc.Manager().Len() != 2 {
		t.Errorf("Expected 2 tasks, got %d", svc.Manager().Len())
	}
}

func TestMove_RejectedLeavesTasks(t *testing.T) {
	svc := newTestService(t, newTestStore(t), "reject")
	phase, _ := svc.AddTask(TaskSpec{Name: "phase", Start: day(0), Duration: calendar.Days(1)})
	other, _ := svc.AddTask(TaskSpec{Name: "other", Start: day(0), Duration: calendar.Days(1)})
	if err := svc.Link(phase.ID(), other.ID(), task.FinishStart, 0, nil); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	// nesting other under phase would tie a task to its own supertask
	if err := svc.Move(other.ID(), phase.ID()); !errors.Is(err, task.ErrInvalidDependency) {
		t.Fatalf("expected ErrInvalidDependency, got %v", err)
	}
	if svc.Manager().Len() != 2 {
		t.Errorf("Expected 2 tasks, got %d", svc.Manager().Len())
	}
}

func TestUpdateTask(t *testing.T) {
	svc := newTestService(t, newTestStore(t), "update")
	a, _ := svc.AddTask(TaskSpec{Name: "a", Start: day(0), Duration: calendar.Days(2)})

	name := "renamed"
	start := day(4)
	prio := task.PriorityHighest
	got, err := svc.UpdateTask(a.ID(), TaskPatch{Name: &name, Start: &start, Priority: &prio})
	if err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if got.Name() != "renamed" || !got.Start().Equal(day(4)) || !got.End().Equal(day(6)) {
		t.Errorf("unexpected task after patch: %+v", got.Info())
	}
	if got.Priority() != task.PriorityHighest {
		t.Errorf("Expected HIGHEST priority, got %s", got.Priority())
	}

	end := day(10)
	if _, err := svc.UpdateTask(a.ID(), TaskPatch{End: &end, FixDuration: true}); err != nil {
		t.Fatalf("UpdateTask failed: %v", err)
	}
	if a.Duration().Length != 6 {
		t.Errorf("Expected duration 6 derived from dates, got %v", a.Duration())
	}

	if _, err := svc.UpdateTask(a.ID(), TaskPatch{}); !errors.Is(err, ErrEmptyPatch) {
		t.Errorf("expected ErrEmptyPatch, got %v", err)
	}
	pct := 150
	if _, err := svc.UpdateTask(a.ID(), TaskPatch{Completion: &pct}); !errors.Is(err, task.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
	if _, err := svc.UpdateTask(42, TaskPatch{Name: &name}); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
}

func TestLinkHardnessDefault(t *testing.T) {
	cfg := allDaysConfig()
	cfg.Scheduling.DefaultHardness = "rubber"
	st := newTestStore(t)
	svc, err := Create(context.Background(), st, "rubber", cfg, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	a, _ := svc.AddTask(TaskSpec{Name: "a", Start: day(0), Duration: calendar.Days(1)})
	b, _ := svc.AddTask(TaskSpec{Name: "b", Start: day(5), Duration: calendar.Days(1)})
	c, _ := svc.AddTask(TaskSpec{Name: "c", Start: day(5), Duration: calendar.Days(1)})

	if err := svc.Link(a.ID(), b.ID(), task.FinishStart, 0, nil); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	strong := task.Strong
	if err := svc.Link(a.ID(), c.ID(), task.FinishStart, 0, &strong); err != nil {
		t.Fatalf("Link failed: %v", err)
	}
	if !b.Start().Equal(day(5)) {
		t.Errorf("rubber dependant should keep its later start, got %v", b.Start())
	}
	if !c.Start().Equal(day(1)) {
		t.Errorf("strong dependant should be pulled to the bound, got %v", c.Start())
	}

	if err := svc.Unlink(a.ID(), c.ID()); err != nil {
		t.Fatalf("Unlink failed: %v", err)
	}
	if err := svc.Unlink(a.ID(), c.ID()); err != nil {
		t.Errorf("second Unlink should be a no-op, got %v", err)
	}
}

func TestMoveAndDelete(t *testing.T) {
	svc := newTestService(t, newTestStore(t), "moves")
	phase, _ := svc.AddTask(TaskSpec{Name: "phase", Start: day(0), Duration: calendar.Days(1)})
	a, _ := svc.AddTask(TaskSpec{Name: "a", Start: day(1), Duration: calendar.Days(2)})

	if err := svc.Move(a.ID(), phase.ID()); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if err := svc.Delete(phase.ID()); !errors.Is(err, task.ErrHasNestedTasks) {
		t.Errorf("expected ErrHasNestedTasks, got %v", err)
	}
	if err := svc.Move(a.ID(), 0); err != nil {
		t.Fatalf("Move to root failed: %v", err)
	}
	if a.Supertask() != nil {
		t.Error("task should be a root task")
	}
	if err := svc.Delete(phase.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(phase.ID()); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	if err := svc.Move(a.ID(), 77); !errors.Is(err, task.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound for unknown parent, got %v", err)
	}
}

// Helper functions

func allDaysConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Calendar.Weekend = nil
	return cfg
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestService(t *testing.T, st *store.Store, name string) *Service {
	t.Helper()
	svc, err := Create(context.Background(), st, name, allDaysConfig(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return svc
}
