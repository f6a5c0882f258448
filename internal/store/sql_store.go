package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"dreamplan/internal/dayrange"
	"dreamplan/internal/logging"
	"dreamplan/internal/types"

	_ "github.com/mattn/go-sqlite3" // driver "sqlite3"
	_ "modernc.org/sqlite"          // driver "sqlite"
)

// SQLStore is a Store backed by a SQLite database.
type SQLStore struct {
	db     *sql.DB
	dbPath string
	driver string
	mu     sync.RWMutex
}

// NewSQLStore opens (creating if needed) the database at path with the
// named driver: "sqlite3" (cgo) or "sqlite" (pure Go). ":memory:" is
// accepted for throwaway databases.
func NewSQLStore(driver, path string) (*SQLStore, error) {
	logging.Store("opening %s store at %s", driver, path)

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps PRAGMAs and :memory: databases consistent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			logging.StoreDebug("failed to apply %q: %v", pragma, err)
		}
	}

	s := &SQLStore{db: db, dbPath: path, driver: driver}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLStore) Path() string {
	return s.dbPath
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		timeframe_days INTEGER NOT NULL,
		start_date TEXT,
		progress INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_goals_owner ON goals(owner_id);

	CREATE TABLE IF NOT EXISTS roadmap_items (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		label TEXT NOT NULL,
		range_start INTEGER,
		range_end INTEGER,
		tasks_json TEXT NOT NULL DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_roadmap_goal ON roadmap_items(goal_id, position);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		goal_id TEXT NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
		day INTEGER NOT NULL,
		position INTEGER NOT NULL,
		description TEXT NOT NULL,
		completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_goal_day ON tasks(goal_id, day, position);

	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		full_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// GOALS
// =============================================================================

// CreateGoal inserts the goal and its roadmap atomically.
func (s *SQLStore) CreateGoal(ctx context.Context, goal *types.Goal, items []types.RoadmapItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO goals (id, owner_id, title, description, timeframe_days, start_date, progress, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		goal.ID, goal.OwnerID, goal.Title, goal.Description, goal.TimeframeDays,
		formatDate(goal.StartDate), goal.Progress, formatTime(goal.CreatedAt), formatTime(goal.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert goal: %w", err)
	}

	for _, item := range items {
		tasksJSON, err := json.Marshal(nonNil(item.Tasks))
		if err != nil {
			return fmt.Errorf("failed to marshal roadmap tasks: %w", err)
		}
		start, end := rangeColumns(item.Range)
		_, err = tx.ExecContext(ctx, `
			INSERT INTO roadmap_items (id, goal_id, position, label, range_start, range_end, tasks_json, completed)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, goal.ID, item.Position, item.Label, start, end, string(tasksJSON), item.Completed)
		if err != nil {
			return fmt.Errorf("failed to insert roadmap item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit goal: %w", err)
	}
	logging.StoreDebug("created goal %s with %d roadmap items", goal.ID, len(items))
	return nil
}

const goalColumns = `id, owner_id, title, description, timeframe_days, start_date, progress, created_at, updated_at`

// GetGoal loads one goal.
func (s *SQLStore) GetGoal(ctx context.Context, id string) (*types.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("goal", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load goal: %w", err)
	}
	return g, nil
}

// FindGoalByTitle returns the owner's goal with the given title.
func (s *SQLStore) FindGoalByTitle(ctx context.Context, ownerID, title string) (*types.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM goals WHERE owner_id = ? AND lower(title) = lower(?) LIMIT 1`,
		ownerID, strings.TrimSpace(title))
	g, err := scanGoal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("goal", title)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find goal: %w", err)
	}
	return g, nil
}

// ListGoals returns the owner's goals, newest first. An empty owner lists
// every goal.
func (s *SQLStore) ListGoals(ctx context.Context, ownerID string) ([]types.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + goalColumns + ` FROM goals`
	var args []interface{}
	if ownerID != "" {
		query += ` WHERE owner_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []types.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan goal: %w", err)
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// UpdateGoal writes the mutable goal fields.
func (s *SQLStore) UpdateGoal(ctx context.Context, goal *types.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE goals SET title = ?, description = ?, timeframe_days = ?, start_date = ?, progress = ?, updated_at = ?
		WHERE id = ?`,
		goal.Title, goal.Description, goal.TimeframeDays, formatDate(goal.StartDate),
		goal.Progress, formatTime(goal.UpdatedAt), goal.ID)
	if err != nil {
		return fmt.Errorf("failed to update goal: %w", err)
	}
	return requireAffected(res, "goal", goal.ID)
}

// UpdateGoalProgress writes only the progress column.
func (s *SQLStore) UpdateGoalProgress(ctx context.Context, id string, progress int, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE goals SET progress = ?, updated_at = ? WHERE id = ?`,
		progress, formatTime(at), id)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}
	return requireAffected(res, "goal", id)
}

// DeleteGoal removes the goal and everything under it. Children are
// deleted explicitly so the cascade holds even without foreign key
// enforcement.
func (s *SQLStore) DeleteGoal(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE goal_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roadmap_items WHERE goal_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete roadmap items: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	if err := requireAffected(res, "goal", id); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// ROADMAP ITEMS
// =============================================================================

const itemColumns = `id, goal_id, position, label, range_start, range_end, tasks_json, completed`

// ListRoadmapItems returns a goal's items in position order.
func (s *SQLStore) ListRoadmapItems(ctx context.Context, goalID string) ([]types.RoadmapItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM roadmap_items WHERE goal_id = ? ORDER BY position, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roadmap items: %w", err)
	}
	defer rows.Close()

	var items []types.RoadmapItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roadmap item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetRoadmapItem loads one roadmap item.
func (s *SQLStore) GetRoadmapItem(ctx context.Context, id string) (*types.RoadmapItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM roadmap_items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("roadmap item", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load roadmap item: %w", err)
	}
	return item, nil
}

// UpdateRoadmapItem writes the completion flag, the only mutable field.
func (s *SQLStore) UpdateRoadmapItem(ctx context.Context, item *types.RoadmapItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE roadmap_items SET completed = ? WHERE id = ?`, item.Completed, item.ID)
	if err != nil {
		return fmt.Errorf("failed to update roadmap item: %w", err)
	}
	return requireAffected(res, "roadmap item", item.ID)
}

// =============================================================================
// TASKS
// =============================================================================

const taskColumns = `id, goal_id, day, position, description, completed, created_at`

// CreateTasks inserts a batch of tasks in one transaction.
func (s *SQLStore) CreateTasks(ctx context.Context, tasks []types.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, goal_id, day, position, description, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx, t.ID, t.GoalID, t.Day, t.Position, t.Description, t.Completed, formatTime(t.CreatedAt)); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tasks: %w", err)
	}
	return nil
}

// GetTask loads one task.
func (s *SQLStore) GetTask(ctx context.Context, id string) (*types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("task", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}
	return t, nil
}

// ListTasks returns a goal's tasks ordered by day then position.
func (s *SQLStore) ListTasks(ctx context.Context, goalID string) ([]types.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE goal_id = ? ORDER BY day, position, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask writes the completion flag and description.
func (s *SQLStore) UpdateTask(ctx context.Context, task *types.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET description = ?, completed = ? WHERE id = ?`,
		task.Description, task.Completed, task.ID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireAffected(res, "task", task.ID)
}

// =============================================================================
// PROFILES
// =============================================================================

// SaveProfile inserts or updates a profile. On update the stored
// CreatedAt is kept and copied back into p.
func (s *SQLStore) SaveProfile(ctx context.Context, p *types.Profile) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var createdAt string
	err = tx.QueryRowContext(ctx, `SELECT created_at FROM profiles WHERE id = ?`, p.ID).Scan(&createdAt)
	created := errors.Is(err, sql.ErrNoRows)
	if err != nil && !created {
		return false, fmt.Errorf("failed to load profile: %w", err)
	}

	if created {
		if p.CreatedAt.IsZero() {
			p.CreatedAt = p.UpdatedAt
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (id, full_name, email, avatar_url, phone, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.FullName, p.Email, p.AvatarURL, p.Phone, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	} else {
		if p.CreatedAt, err = parseTime(createdAt); err != nil {
			return false, err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE profiles SET full_name = ?, email = ?, avatar_url = ?, phone = ?, updated_at = ?
			WHERE id = ?`,
			p.FullName, p.Email, p.AvatarURL, p.Phone, formatTime(p.UpdatedAt), p.ID)
	}
	if err != nil {
		return false, fmt.Errorf("failed to save profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit profile: %w", err)
	}
	return created, nil
}

// GetProfile loads one profile.
func (s *SQLStore) GetProfile(ctx context.Context, id string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var p types.Profile
	var createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, avatar_url, phone, created_at, updated_at
		FROM profiles WHERE id = ?`, id).
		Scan(&p.ID, &p.FullName, &p.Email, &p.AvatarURL, &p.Phone, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, types.NotFound("profile", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// =============================================================================
// HELPERS
// =============================================================================

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanGoal(row rowScanner) (*types.Goal, error) {
	var g types.Goal
	var startDate sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&g.ID, &g.OwnerID, &g.Title, &g.Description, &g.TimeframeDays,
		&startDate, &g.Progress, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if startDate.Valid && startDate.String != "" {
		d, err := time.Parse(types.DateLayout, startDate.String)
		if err != nil {
			return nil, fmt.Errorf("bad start_date %q: %w", startDate.String, err)
		}
		g.StartDate = &d
	}
	if g.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if g.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func scanItem(row rowScanner) (*types.RoadmapItem, error) {
	var item types.RoadmapItem
	var start, end sql.NullInt64
	var tasksJSON string
	if err := row.Scan(&item.ID, &item.GoalID, &item.Position, &item.Label,
		&start, &end, &tasksJSON, &item.Completed); err != nil {
		return nil, err
	}
	if start.Valid && end.Valid {
		item.Range = &dayrange.Range{Start: int(start.Int64), End: int(end.Int64)}
	}
	if err := json.Unmarshal([]byte(tasksJSON), &item.Tasks); err != nil {
		return nil, fmt.Errorf("bad tasks_json for item %s: %w", item.ID, err)
	}
	item.Tasks = nonNil(item.Tasks)
	return &item, nil
}

func scanTask(row rowScanner) (*types.Task, error) {
	var t types.Task
	var createdAt string
	if err := row.Scan(&t.ID, &t.GoalID, &t.Day, &t.Position, &t.Description, &t.Completed, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return types.NotFound(kind, id)
	}
	return nil
}

func rangeColumns(r *dayrange.Range) (interface{}, interface{}) {
	if r == nil {
		return nil, nil
	}
	return r.Start, r.End
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(types.DateLayout)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
