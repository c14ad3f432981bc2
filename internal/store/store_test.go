package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/models"
	"github.com/fentz26/planline/internal/task"
)

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	// Verify file was created
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestProjectCRUD(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "launch")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.ID == "" || p.NextID != 1 {
		t.Errorf("unexpected project %+v", p)
	}

	byID, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject by id failed: %v", err)
	}
	byName, err := s.GetProject(ctx, "launch")
	if err != nil {
		t.Fatalf("GetProject by name failed: %v", err)
	}
	if byID.ID != p.ID || byName.ID != p.ID {
		t.Errorf("lookups returned different projects: %s, %s", byID.ID, byName.ID)
	}

	if _, err := s.CreateProject(ctx, "launch"); err == nil {
		t.Error("expected duplicate project name to be rejected")
	}

	if _, err := s.CreateProject(ctx, "other"); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	projects, err := s.ListProjects(ctx)
	if err != nil {
		t.Fatalf("ListProjects failed: %v", err)
	}
	if len(projects) != 2 {
		t.Errorf("Expected 2 projects, got %d", len(projects))
	}
}

func TestProjectNotFound(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	if _, err := s.GetProject(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := s.LoadProject(ctx, "missing"); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound from LoadProject, got %v", err)
	}
	if err := s.SaveProject(ctx, "missing", task.Snapshot{NextID: 1}); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound from SaveProject, got %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "roundtrip")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	m := newTestManager(t)
	design := mustCreate(t, m, "design", 0, 3)
	build := mustCreate(t, m, "build", 0, 5)
	phase := mustCreate(t, m, "phase", 0, 1)
	ship := mustCreate(t, m, "ship", 0, 0)
	if err := m.AddDependency(design.ID(), build.ID(), task.FinishStart, 1, task.Rubber); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := m.AddDependency(phase.ID(), ship.ID(), task.FinishFinish, 0, task.Strong); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := design.Move(phase); err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if err := build.Move(phase); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	mu := build.CreateMutator()
	mu.SetPriority(task.PriorityHigh)
	mu.SetRole(task.RoleTester)
	mu.SetNotes("needs review")
	mu.SetCustomValue("cost", 12.5)
	mu.SetAttachments([]task.Document{{Name: "plan", URI: "file:///plan.pdf"}})
	mu.SetThird(day(20))
	mu.SetThirdConstraint(task.ThirdDeadline)
	if err := mu.Commit(); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	snap := m.Snapshot()
	if err := s.SaveProject(ctx, p.ID, snap); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	loaded, err := s.LoadProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if loaded.NextID != snap.NextID {
		t.Errorf("Expected next id %d, got %d", snap.NextID, loaded.NextID)
	}
	if len(loaded.Tasks) != 4 || len(loaded.Dependencies) != 2 {
		t.Fatalf("Expected 4 tasks and 2 dependencies, got %d and %d", len(loaded.Tasks), len(loaded.Dependencies))
	}
	if len(loaded.Roots) != 2 || loaded.Roots[0] != phase.ID() || loaded.Roots[1] != ship.ID() {
		t.Errorf("unexpected roots %v", loaded.Roots)
	}

	restored := newTestManager(t)
	if err := restored.Restore(loaded); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	rb, err := restored.Task(build.ID())
	if err != nil {
		t.Fatalf("Task failed: %v", err)
	}
	if rb.Priority() != task.PriorityHigh || rb.Role() != task.RoleTester || rb.Notes() != "needs review" {
		t.Errorf("secondary attributes not restored: %+v", rb.Info())
	}
	if rb.CustomValues()["cost"] != 12.5 {
		t.Errorf("custom value not restored: %v", rb.CustomValues())
	}
	if len(rb.Attachments()) != 1 || rb.Attachments()[0].Name != "plan" {
		t.Errorf("attachments not restored: %v", rb.Attachments())
	}
	if !rb.Third().Equal(day(20)) || rb.ThirdDateConstraint() != task.ThirdDeadline {
		t.Errorf("third date not restored: %v %s", rb.Third(), rb.ThirdDateConstraint())
	}
	if !rb.Start().Equal(build.Start()) || !rb.End().Equal(build.End()) {
		t.Errorf("dates differ after reload: %v-%v vs %v-%v", rb.Start(), rb.End(), build.Start(), build.End())
	}
	rp, _ := restored.Task(phase.ID())
	children := rp.NestedTasks()
	if len(children) != 2 || children[0].ID() != design.ID() || children[1].ID() != build.ID() {
		t.Errorf("nested order not restored: %v", children)
	}

	var ff *task.Dependency
	for _, d := range loaded.Dependencies {
		if d.Dependee == phase.ID() {
			d := d
			ff = &d
		}
	}
	if ff == nil || ff.Type != task.FinishFinish || ff.Hardness != task.Strong {
		t.Errorf("dependency not restored: %+v", ff)
	}
}

func TestSaveReplacesRows(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "replace")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}

	m := newTestManager(t)
	a := mustCreate(t, m, "a", 0, 1)
	b := mustCreate(t, m, "b", 0, 1)
	if err := m.AddDependency(a.ID(), b.ID(), task.FinishStart, 0, task.Strong); err != nil {
		t.Fatalf("AddDependency failed: %v", err)
	}
	if err := s.SaveProject(ctx, p.ID, m.Snapshot()); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	if err := b.Delete(); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.SaveProject(ctx, p.ID, m.Snapshot()); err != nil {
		t.Fatalf("SaveProject failed: %v", err)
	}

	loaded, err := s.LoadProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	if len(loaded.Tasks) != 1 || len(loaded.Dependencies) != 0 {
		t.Errorf("Expected 1 task and no dependencies, got %d and %d", len(loaded.Tasks), len(loaded.Dependencies))
	}
	// IDs are never reused, even after the highest one was deleted
	if loaded.NextID != 3 {
		t.Errorf("Expected next id 3, got %d", loaded.NextID)
	}
}

func TestLoadUnknownCodes(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "legacy")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	_, err = s.db.Exec(`INSERT INTO tasks (project_id, id, parent_id, position, name, start_date, end_date,
		duration, priority, role, third_kind) VALUES (?, 1, 0, 0, 'old', '2024-01-01', '2024-01-03', 2, 'x', '99', 7)`, p.ID)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
	_, err = s.db.Exec(`INSERT INTO tasks (project_id, id, parent_id, position, name, start_date, end_date,
		duration, priority, role) VALUES (?, 2, 0, 1, 'next', '2024-01-03', '2024-01-04', 1, '2', '1')`, p.ID)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}
	_, err = s.db.Exec(`INSERT INTO dependencies (project_id, dependee, dependant, type, lag, hardness)
		VALUES (?, 1, 2, 42, 0, 'elastic')`, p.ID)
	if err != nil {
		t.Fatalf("raw insert failed: %v", err)
	}

	loaded, err := s.LoadProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("LoadProject failed: %v", err)
	}
	old := loaded.Tasks[0]
	if old.Priority != task.PriorityNormal || old.Role != task.RoleUndefined || old.ThirdKind != task.ThirdNone {
		t.Errorf("unknown codes should decode to defaults, got %s %s %s", old.Priority, old.Role, old.ThirdKind)
	}
	if loaded.Tasks[1].Priority != task.PriorityHigh {
		t.Errorf("Expected HIGH priority, got %s", loaded.Tasks[1].Priority)
	}
	d := loaded.Dependencies[0]
	if d.Type != task.FinishStart || d.Hardness != task.Strong {
		t.Errorf("unknown dependency codes should decode to defaults, got %+v", d)
	}
	if loaded.NextID != 1 {
		t.Errorf("Expected stored next id 1, got %d", loaded.NextID)
	}

	m := newTestManager(t)
	if err := m.Restore(loaded); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if _, err := m.CreateTask("fresh", day(0), calendar.Days(1)); err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	if m.Len() != 3 {
		t.Errorf("Expected 3 tasks, got %d", m.Len())
	}
	if _, err := m.Task(3); err != nil {
		t.Errorf("next id should be derived past the loaded tasks: %v", err)
	}
}

func TestJournal(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	entries := []models.JournalEntry{
		{ProjectID: "p1", Action: "create", InputsHash: "h1", Outcome: models.OutcomeOK, TaskID: 1, Timestamp: base},
		{ProjectID: "p1", Action: "link", InputsHash: "h2", Outcome: "dependency would create a cycle", Timestamp: base.Add(time.Minute)},
		{ProjectID: "p2", Action: "create", InputsHash: "h3", Outcome: models.OutcomeOK, TaskID: 1},
	}
	if err := s.WriteJournal(ctx, entries); err != nil {
		t.Fatalf("WriteJournal failed: %v", err)
	}
	if entries[0].ID == "" || entries[2].Timestamp.IsZero() {
		t.Error("WriteJournal should fill IDs and timestamps")
	}
	if err := s.WriteJournal(ctx, nil); err != nil {
		t.Errorf("empty write should be a no-op, got %v", err)
	}

	got, err := s.ListJournal(ctx, "p1", 0)
	if err != nil {
		t.Fatalf("ListJournal failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0].Action != "link" || got[0].Succeeded() {
		t.Errorf("Expected newest rejected link first, got %+v", got[0])
	}
	if got[1].TaskID != 1 || !got[1].Succeeded() {
		t.Errorf("unexpected entry %+v", got[1])
	}

	limited, err := s.ListJournal(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("ListJournal failed: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("Expected 1 entry with limit, got %d", len(limited))
	}
}

// Helper functions

var day0 = calendar.Day(2024, time.January, 1)

func day(n int) time.Time { return day0.AddDate(0, 0, n) }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return s
}

func newTestManager(t *testing.T) *task.Manager {
	t.Helper()
	return task.NewManager(task.WithCalendar(calendar.AllDays()))
}

func mustCreate(t *testing.T, m *task.Manager, name string, start, days int) *task.Task {
	t.Helper()
	tk, err := m.CreateTask(name, day(start), calendar.Days(days))
	if err != nil {
		t.Fatalf("CreateTask(%s) failed: %v", name, err)
	}
	return tk
}
