// Package project binds a stored planline project to a live task manager.
package project

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fentz26/planline/internal/audit"
	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/config"
	"github.com/fentz26/planline/internal/models"
	"github.com/fentz26/planline/internal/store"
	"github.com/fentz26/planline/internal/task"
)

// Service provides the project operations used by the CLI, TUI and HTTP API.
type Service struct {
	store   *store.Store
	project *models.Project
	journal *audit.Journal
	mgr     *task.Manager
	log     *zap.Logger
}

// Create inserts a new empty project and opens it.
func Create(ctx context.Context, st *store.Store, name string, cfg *config.Config, log *zap.Logger) (*Service, error) {
	if name == "" {
		return nil, fmt.Errorf("project name: %w", ErrInvalidInput)
	}
	p, err := st.CreateProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return Open(ctx, st, p.ID, cfg, log)
}

// Open loads the project identified by ID or name and recomputes its schedule.
func Open(ctx context.Context, st *store.Store, ref string, cfg *config.Config, log *zap.Logger) (*Service, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	cal, err := cfg.BuildCalendar()
	if err != nil {
		return nil, err
	}

	p, err := st.GetProject(ctx, ref)
	if err != nil {
		return nil, err
	}
	snap, err := st.LoadProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	log = log.With(zap.String("project", p.Name))
	journal := audit.NewJournal(p.ID)
	mgr := task.NewManager(
		task.WithCalendar(cal),
		task.WithLogger(log),
		task.WithRecorder(journal),
		task.WithDefaultHardness(cfg.Hardness()),
	)
	if err := mgr.Restore(snap); err != nil {
		return nil, fmt.Errorf("open project %s: %w", p.Name, err)
	}
	// loading is not a user operation
	journal.Reset()

	log.Debug("project opened", zap.Int("tasks", mgr.Len()))
	return &Service{store: st, project: p, journal: journal, mgr: mgr, log: log}, nil
}

// Manager returns the live task manager.
func (s *Service) Manager() *task.Manager { return s.mgr }

// Project returns the stored project record.
func (s *Service) Project() models.Project { return *s.project }

// Save persists the schedule and flushes the journal.
func (s *Service) Save(ctx context.Context) error {
	if err := s.store.SaveProject(ctx, s.project.ID, s.mgr.Snapshot()); err != nil {
		return err
	}
	if err := s.journal.Flush(ctx, s.store); err != nil {
		return fmt.Errorf("flush journal: %w", err)
	}
	s.log.Debug("project saved", zap.Int("tasks", s.mgr.Len()))
	return nil
}

// Journal returns the latest journal entries, newest first.
func (s *Service) Journal(ctx context.Context, limit int) ([]models.JournalEntry, error) {
	return s.store.ListJournal(ctx, s.project.ID, limit)
}

// Ping checks the backing store.
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// --- Task Operations ---

// TaskSpec describes a task to create.
type TaskSpec struct {
	Name     string
	Start    time.Time
	Duration calendar.Duration
	Parent   int // 0 for a root task
}

// AddTask creates a task and, when Parent is set, nests it.
// A failed nesting deletes the new task again.
func (s *Service) AddTask(spec TaskSpec) (*task.Task, error) {
	var parent *task.Task
	if spec.Parent != 0 {
		p, err := s.mgr.Task(spec.Parent)
		if err != nil {
			return nil, err
		}
		parent = p
	}

	t, err := s.mgr.CreateTask(spec.Name, spec.Start, spec.Duration)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		if err := t.Move(parent); err != nil {
			if derr := t.Delete(); derr != nil {
				s.log.Error("failed to discard task after rejected nesting", zap.Int("task_id", t.ID()), zap.Error(derr))
			}
			return nil, err
		}
	}
	return t, nil
}

// TaskPatch lists attribute changes; nil fields are left alone.
type TaskPatch struct {
	Name            *string
	Start           *time.Time
	End             *time.Time
	Duration        *calendar.Duration
	Shift           int
	Milestone       *bool
	Completion      *int
	Priority        *task.Priority
	Role            *task.Role
	Notes           *string
	Color           *string
	Shape           *string
	Third           *time.Time
	ThirdConstraint *task.ThirdDateConstraint
	// FixDuration keeps Start and End authoritative and derives the duration.
	FixDuration bool
}

func (p TaskPatch) empty() bool {
	return p.Name == nil && p.Start == nil && p.End == nil && p.Duration == nil && p.Shift == 0 &&
		p.Milestone == nil && p.Completion == nil && p.Priority == nil && p.Role == nil &&
		p.Notes == nil && p.Color == nil && p.Shape == nil && p.Third == nil && p.ThirdConstraint == nil
}

// UpdateTask applies a patch through one mutator commit.
func (s *Service) UpdateTask(id int, patch TaskPatch) (*task.Task, error) {
	if patch.empty() {
		return nil, ErrEmptyPatch
	}
	t, err := s.mgr.Task(id)
	if err != nil {
		return nil, err
	}

	mu := t.CreateMutator()
	if patch.FixDuration {
		mu = t.CreateMutatorFixingDuration()
	}
	if patch.Name != nil {
		mu.SetName(*patch.Name)
	}
	if patch.Start != nil {
		mu.SetStart(*patch.Start)
	}
	if patch.End != nil {
		mu.SetEnd(*patch.End)
	}
	if patch.Duration != nil {
		mu.SetDuration(*patch.Duration)
	}
	if patch.Shift != 0 {
		mu.Shift(patch.Shift)
	}
	if patch.Milestone != nil {
		mu.SetMilestone(*patch.Milestone)
	}
	if patch.Completion != nil {
		mu.SetCompletion(*patch.Completion)
	}
	if patch.Priority != nil {
		mu.SetPriority(*patch.Priority)
	}
	if patch.Role != nil {
		mu.SetRole(*patch.Role)
	}
	if patch.Notes != nil {
		mu.SetNotes(*patch.Notes)
	}
	if patch.Color != nil {
		mu.SetColor(*patch.Color)
	}
	if patch.Shape != nil {
		mu.SetShape(*patch.Shape)
	}
	if patch.Third != nil {
		mu.SetThird(*patch.Third)
	}
	if patch.ThirdConstraint != nil {
		mu.SetThirdConstraint(*patch.ThirdConstraint)
	}
	if err := mu.Commit(); err != nil {
		return nil, err
	}
	return t, nil
}

// Link adds a dependency. A nil hardness uses the configured default.
func (s *Service) Link(dependee, dependant int, typ task.Type, lag int, hardness *task.Hardness) error {
	h := s.mgr.DefaultHardness()
	if hardness != nil {
		h = *hardness
	}
	return s.mgr.AddDependency(dependee, dependant, typ, lag, h)
}

// Unlink removes a dependency if present.
func (s *Service) Unlink(dependee, dependant int) error {
	return s.mgr.RemoveDependency(dependee, dependant)
}

// Move nests a task under parent, or makes it a root task when parent is 0.
func (s *Service) Move(id, parent int) error {
	t, err := s.mgr.Task(id)
	if err != nil {
		return err
	}
	var target *task.Task
	if parent != 0 {
		if target, err = s.mgr.Task(parent); err != nil {
			return err
		}
	}
	return t.Move(target)
}

// Delete removes a task without nested tasks.
func (s *Service) Delete(id int) error {
	t, err := s.mgr.Task(id)
	if err != nil {
		return err
	}
	return t.Delete()
}
