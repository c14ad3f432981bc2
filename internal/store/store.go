// Package store provides SQLite-backed persistence for planline projects.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fentz26/planline/internal/calendar"
	"github.com/fentz26/planline/internal/models"
	"github.com/fentz26/planline/internal/task"
)

// ErrProjectNotFound is returned when no project matches the given ID or name.
var ErrProjectNotFound = errors.New("project not found")

// Store provides access to the planline SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		next_id INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		project_id TEXT NOT NULL,
		id INTEGER NOT NULL,
		parent_id INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		duration INTEGER NOT NULL,
		duration_unit INTEGER NOT NULL DEFAULT 0,
		milestone INTEGER NOT NULL DEFAULT 0,
		completion INTEGER NOT NULL DEFAULT 0,
		priority TEXT NOT NULL,
		role TEXT NOT NULL,
		project_task INTEGER NOT NULL DEFAULT 0,
		expand INTEGER NOT NULL DEFAULT 1,
		color TEXT,
		shape TEXT,
		notes TEXT,
		custom TEXT,
		third_date TEXT,
		third_kind INTEGER NOT NULL DEFAULT 0,
		attachments TEXT,
		assignments TEXT,
		PRIMARY KEY (project_id, id),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE TABLE IF NOT EXISTS dependencies (
		project_id TEXT NOT NULL,
		dependee INTEGER NOT NULL,
		dependant INTEGER NOT NULL,
		type INTEGER NOT NULL,
		lag INTEGER NOT NULL DEFAULT 0,
		hardness TEXT NOT NULL,
		PRIMARY KEY (project_id, dependee, dependant),
		FOREIGN KEY (project_id) REFERENCES projects(id)
	);

	CREATE TABLE IF NOT EXISTS journal (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		task_id INTEGER,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(project_id, parent_id, position);
	CREATE INDEX IF NOT EXISTS idx_journal_project ON journal(project_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Project Operations ---

// CreateProject inserts an empty project.
func (s *Store) CreateProject(ctx context.Context, name string) (*models.Project, error) {
	now := time.Now().UTC()
	p := &models.Project{
		ID:        uuid.New().String(),
		Name:      name,
		NextID:    1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, next_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.NextID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}
	return p, nil
}

// GetProject finds a project by ID or, failing that, by name.
func (s *Store) GetProject(ctx context.Context, ref string) (*models.Project, error) {
	p := &models.Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, next_id, created_at, updated_at FROM projects WHERE id = ? OR name = ? ORDER BY id = ? DESC LIMIT 1`,
		ref, ref, ref,
	).Scan(&p.ID, &p.Name, &p.NextID, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("project %q: %w", ref, ErrProjectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	return p, nil
}

// ListProjects returns every project, most recently updated first.
func (s *Store) ListProjects(ctx context.Context) ([]models.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, next_id, created_at, updated_at FROM projects ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.NextID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SaveProject replaces the stored tasks and dependencies of a project with
// snap in a single transaction.
func (s *Store) SaveProject(ctx context.Context, projectID string, snap task.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE projects SET next_id = ?, updated_at = ? WHERE id = ?`,
		snap.NextID, time.Now().UTC(), projectID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	} else if n == 0 {
		return fmt.Errorf("project %q: %w", projectID, ErrProjectNotFound)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dependencies WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("clear dependencies: %w", err)
	}

	positions := make(map[int]int, len(snap.Tasks))
	for i, id := range snap.Roots {
		positions[id] = i
	}
	for _, info := range snap.Tasks {
		for i, c := range info.Children {
			positions[c] = i
		}
	}

	for _, info := range snap.Tasks {
		row, err := encodeTask(info)
		if err != nil {
			return fmt.Errorf("encode task %d: %w", info.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO tasks (project_id, id, parent_id, position, name, start_date, end_date, duration, duration_unit,
				milestone, completion, priority, role, project_task, expand, color, shape, notes, custom,
				third_date, third_kind, attachments, assignments)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			projectID, info.ID, info.Parent, positions[info.ID], info.Name, row.start, row.end,
			info.Duration.Length, int(info.Duration.Unit), info.Milestone, info.Completion,
			info.Priority.Code(), info.Role.Code(), info.ProjectTask, info.Expand, info.Color, info.Shape,
			info.Notes, row.custom, row.third, int(info.ThirdKind), row.attachments, row.assignments,
		)
		if err != nil {
			return fmt.Errorf("insert task %d: %w", info.ID, err)
		}
	}

	for _, d := range snap.Dependencies {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO dependencies (project_id, dependee, dependant, type, lag, hardness) VALUES (?, ?, ?, ?, ?, ?)`,
			projectID, d.Dependee, d.Dependant, d.Type.Code(), d.Lag, d.Hardness.String(),
		)
		if err != nil {
			return fmt.Errorf("insert dependency %d->%d: %w", d.Dependee, d.Dependant, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// LoadProject reads a project's tasks and dependencies. Unknown priority and
// role codes decode to their defaults.
func (s *Store) LoadProject(ctx context.Context, projectID string) (task.Snapshot, error) {
	var snap task.Snapshot
	err := s.db.QueryRowContext(ctx, `SELECT next_id FROM projects WHERE id = ?`, projectID).Scan(&snap.NextID)
	if errors.Is(err, sql.ErrNoRows) {
		return snap, fmt.Errorf("project %q: %w", projectID, ErrProjectNotFound)
	}
	if err != nil {
		return snap, fmt.Errorf("query project: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, parent_id, name, start_date, end_date, duration, duration_unit, milestone, completion,
			priority, role, project_task, expand, color, shape, notes, custom, third_date, third_kind,
			attachments, assignments
		FROM tasks WHERE project_id = ? ORDER BY parent_id, position, id`,
		projectID,
	)
	if err != nil {
		return snap, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	index := make(map[int]int)
	var parents []int
	for rows.Next() {
		var (
			info                         task.Info
			row                          taskRow
			unit, thirdKind              int
			priority, role               string
			color, shape, notes          sql.NullString
			custom, third, attach, assig sql.NullString
		)
		if err := rows.Scan(&info.ID, &info.Parent, &info.Name, &row.start, &row.end, &info.Duration.Length,
			&unit, &info.Milestone, &info.Completion, &priority, &role, &info.ProjectTask, &info.Expand,
			&color, &shape, &notes, &custom, &third, &thirdKind, &attach, &assig); err != nil {
			return snap, fmt.Errorf("scan task: %w", err)
		}
		row.custom, row.third, row.attachments, row.assignments = custom.String, third.String, attach.String, assig.String
		info.Duration.Unit = calendar.Unit(unit)
		info.Priority = task.PriorityFromCode(priority)
		info.Role = task.RoleFromCode(role)
		info.Color, info.Shape, info.Notes = color.String, shape.String, notes.String
		info.ThirdKind = task.ThirdDateConstraintFromCode(thirdKind)
		if err := row.decode(&info); err != nil {
			return snap, fmt.Errorf("decode task %d: %w", info.ID, err)
		}

		index[info.ID] = len(snap.Tasks)
		snap.Tasks = append(snap.Tasks, info)
		parents = append(parents, info.Parent)
	}
	if err := rows.Err(); err != nil {
		return snap, fmt.Errorf("iterate tasks: %w", err)
	}

	// rows arrive ordered by (parent, position), so appending keeps sibling order
	for i, p := range parents {
		id := snap.Tasks[i].ID
		if p == 0 {
			snap.Roots = append(snap.Roots, id)
			continue
		}
		if j, ok := index[p]; ok {
			snap.Tasks[j].Children = append(snap.Tasks[j].Children, id)
		}
	}

	deps, err := s.loadDependencies(ctx, projectID)
	if err != nil {
		return snap, err
	}
	snap.Dependencies = deps
	return snap, nil
}

func (s *Store) loadDependencies(ctx context.Context, projectID string) ([]task.Dependency, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT dependee, dependant, type, lag, hardness FROM dependencies WHERE project_id = ? ORDER BY dependee, dependant`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("query dependencies: %w", err)
	}
	defer rows.Close()

	var deps []task.Dependency
	for rows.Next() {
		var (
			d        task.Dependency
			typ      int
			hardness string
		)
		if err := rows.Scan(&d.Dependee, &d.Dependant, &typ, &d.Lag, &hardness); err != nil {
			return nil, fmt.Errorf("scan dependency: %w", err)
		}
		d.Type = task.ParseType(fmt.Sprint(typ))
		d.Hardness = task.ParseHardness(hardness)
		deps = append(deps, d)
	}
	return deps, rows.Err()
}

// --- Journal Operations ---

// WriteJournal appends entries in one transaction. Entries without an ID or
// timestamp get fresh ones.
func (s *Store) WriteJournal(ctx context.Context, entries []models.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for i := range entries {
		e := &entries[i]
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.Timestamp.IsZero() {
			e.Timestamp = time.Now().UTC()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO journal (id, project_id, action, inputs_hash, outcome, task_id, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.ProjectID, e.Action, e.InputsHash, e.Outcome, e.TaskID, e.Details, e.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert journal entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ListJournal returns the latest entries of a project, newest first.
// A limit of zero or less returns every entry.
func (s *Store) ListJournal(ctx context.Context, projectID string, limit int) ([]models.JournalEntry, error) {
	query := `SELECT id, project_id, action, inputs_hash, outcome, task_id, details, timestamp
		FROM journal WHERE project_id = ? ORDER BY timestamp DESC, rowid DESC`
	args := []any{projectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var (
			e       models.JournalEntry
			taskID  sql.NullInt64
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ProjectID, &e.Action, &e.InputsHash, &e.Outcome, &taskID, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		e.TaskID = int(taskID.Int64)
		e.Details = details.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// taskRow holds the columns of a task that need encoding.
type taskRow struct {
	start, end  string
	third       string
	custom      string
	attachments string
	assignments string
}

func encodeTask(info task.Info) (taskRow, error) {
	row := taskRow{
		start: info.Start.Format(time.DateOnly),
		end:   info.End.Format(time.DateOnly),
	}
	if !info.Third.IsZero() {
		row.third = info.Third.Format(time.DateOnly)
	}
	var err error
	if row.custom, err = encodeJSON(info.Custom); err != nil {
		return row, err
	}
	if row.attachments, err = encodeJSON(info.Attachments); err != nil {
		return row, err
	}
	if row.assignments, err = encodeJSON(info.Assignments); err != nil {
		return row, err
	}
	return row, nil
}

func (r taskRow) decode(info *task.Info) error {
	var err error
	if info.Start, err = time.Parse(time.DateOnly, r.start); err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	if info.End, err = time.Parse(time.DateOnly, r.end); err != nil {
		return fmt.Errorf("parse end: %w", err)
	}
	if r.third != "" {
		if info.Third, err = time.Parse(time.DateOnly, r.third); err != nil {
			return fmt.Errorf("parse third date: %w", err)
		}
	}
	if err := decodeJSON(r.custom, &info.Custom); err != nil {
		return fmt.Errorf("decode custom values: %w", err)
	}
	if err := decodeJSON(r.attachments, &info.Attachments); err != nil {
		return fmt.Errorf("decode attachments: %w", err)
	}
	if err := decodeJSON(r.assignments, &info.Assignments); err != nil {
		return fmt.Errorf("decode assignments: %w", err)
	}
	return nil
}

func encodeJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return "", nil
	}
	return string(data), nil
}

func decodeJSON(s string, v any) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}
