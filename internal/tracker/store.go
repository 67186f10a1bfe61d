package tracker

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// defaultListLimit matches the tool-layer default page size.
const defaultListLimit = 50

// Store is the Entity Store: durable keyed records for the five entity
// kinds, backed by SQLite. It enforces referential integrity through
// foreign keys and cascading delete; it holds no workflow rules — those
// live in the Engine.
type Store struct {
	db  *sql.DB
	cfg Config
}

// NewStore opens (and if needed creates) the tracker database. It
// creates the data directory, opens SQLite with WAL mode, and runs the
// schema migration.
func NewStore(cfg Config) (*Store, error) {
	dbPath := cfg.DBPath
	if dbPath == "" {
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("tracker: create data dir: %w", err)
		}
		dbPath = filepath.Join(cfg.DataDir, "agentflow.db")
	} else if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("tracker: create data dir: %w", err)
	}

	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("tracker: open database: %w", err)
	}

	// Connection pragmas apply per connection; pin the pool to one so
	// foreign key enforcement holds for every query.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("tracker: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, cfg: cfg}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("tracker: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id          TEXT PRIMARY KEY,
			name        TEXT NOT NULL,
			description TEXT,
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS prds (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			status      TEXT NOT NULL DEFAULT 'draft',
			created_by  TEXT NOT NULL,
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS stories (
			id                  TEXT PRIMARY KEY,
			prd_id              TEXT NOT NULL,
			agent_id            TEXT NOT NULL,
			title               TEXT NOT NULL,
			description         TEXT,
			status              TEXT NOT NULL DEFAULT 'todo',
			assigned_to         TEXT,
			story_points        INTEGER,
			acceptance_criteria TEXT,
			metadata            TEXT NOT NULL DEFAULT '{}',
			created_at          TEXT NOT NULL,
			updated_at          TEXT NOT NULL,
			FOREIGN KEY (prd_id) REFERENCES prds(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id          TEXT PRIMARY KEY,
			story_id    TEXT NOT NULL,
			agent_id    TEXT NOT NULL,
			title       TEXT NOT NULL,
			description TEXT,
			status      TEXT NOT NULL DEFAULT 'todo',
			assigned_to TEXT NOT NULL,
			depends_on  TEXT NOT NULL DEFAULT '[]',
			metadata    TEXT NOT NULL DEFAULT '{}',
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL,
			FOREIGN KEY (story_id) REFERENCES stories(id) ON DELETE CASCADE
		);

		CREATE TABLE IF NOT EXISTS comments (
			id           TEXT PRIMARY KEY,
			entity_type  TEXT NOT NULL,
			entity_id    TEXT NOT NULL,
			author       TEXT NOT NULL,
			content      TEXT NOT NULL,
			comment_type TEXT NOT NULL DEFAULT 'comment',
			metadata     TEXT NOT NULL DEFAULT '{}',
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_prds_project_id     ON prds(project_id);
		CREATE INDEX IF NOT EXISTS idx_stories_prd_id      ON stories(prd_id);
		CREATE INDEX IF NOT EXISTS idx_stories_assigned_to ON stories(assigned_to);
		CREATE INDEX IF NOT EXISTS idx_tasks_story_id      ON tasks(story_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assigned_to   ON tasks(assigned_to);
		CREATE INDEX IF NOT EXISTS idx_comments_entity     ON comments(entity_type, entity_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Serialization helpers ───────────────────────────────────────────────────

func marshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(s string) map[string]any {
	if s == "" || s == "{}" {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return map[string]any{}
	}
	return m
}

func marshalIDList(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode id list: %w", err)
	}
	return string(data), nil
}

func unmarshalIDList(s string) []string {
	if s == "" || s == "[]" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(s), &ids); err != nil {
		return nil
	}
	return ids
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ─── Projects ────────────────────────────────────────────────────────────────

// CreateProject inserts a new project row.
func (s *Store) CreateProject(p *Project) error {
	meta, err := marshalMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO projects (id, name, description, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, nullableString(p.Description), meta,
		p.CreatedAt, p.UpdatedAt,
	)
	return err
}

// GetProject retrieves a project by id. Returns (nil, nil) when absent.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, description, metadata, created_at, updated_at
		 FROM projects WHERE id = ?`, id,
	)
	var p Project
	var desc sql.NullString
	var meta string
	if err := row.Scan(&p.ID, &p.Name, &desc, &meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	p.Description = desc.String
	p.Metadata = unmarshalMetadata(meta)
	return &p, nil
}

// ListProjects returns projects ordered by creation time, newest first.
func (s *Store) ListProjects(limit, offset int) ([]Project, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(
		`SELECT id, name, description, metadata, created_at, updated_at
		 FROM projects ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []Project
	for rows.Next() {
		var p Project
		var desc sql.NullString
		var meta string
		if err := rows.Scan(&p.ID, &p.Name, &desc, &meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Description = desc.String
		p.Metadata = unmarshalMetadata(meta)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject applies the non-nil fields and bumps updated_at.
func (s *Store) UpdateProject(id string, p UpdateProjectParams, now string) (*Project, error) {
	var set []string
	var args []any

	if p.Name != nil {
		set = append(set, "name = ?")
		args = append(args, *p.Name)
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, nullableString(*p.Description))
	}
	if p.Metadata != nil {
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		set = append(set, "metadata = ?")
		args = append(args, meta)
	}
	if len(set) == 0 {
		return s.GetProject(id)
	}

	set = append(set, "updated_at = ?")
	args = append(args, now, id)

	if _, err := s.db.Exec(
		"UPDATE projects SET "+strings.Join(set, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return nil, err
	}
	return s.GetProject(id)
}

// ─── PRDs ────────────────────────────────────────────────────────────────────

// CreatePRD inserts a new PRD row. The projects foreign key rejects a
// nonexistent parent.
func (s *Store) CreatePRD(p *PRD) error {
	meta, err := marshalMetadata(p.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO prds (id, project_id, title, description, status, created_by, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ProjectID, p.Title, nullableString(p.Description), string(p.Status),
		p.CreatedBy, meta, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func scanPRD(row interface{ Scan(...any) error }) (*PRD, error) {
	var p PRD
	var desc sql.NullString
	var status, meta string
	if err := row.Scan(&p.ID, &p.ProjectID, &p.Title, &desc, &status, &p.CreatedBy, &meta, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Description = desc.String
	p.Status = PRDStatus(status)
	p.Metadata = unmarshalMetadata(meta)
	return &p, nil
}

const prdColumns = "id, project_id, title, description, status, created_by, metadata, created_at, updated_at"

// GetPRD retrieves a PRD by id. Returns (nil, nil) when absent.
func (s *Store) GetPRD(id string) (*PRD, error) {
	p, err := scanPRD(s.db.QueryRow(`SELECT `+prdColumns+` FROM prds WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ListPRDs returns PRDs matching the filter, newest first.
func (s *Store) ListPRDs(f PRDFilter) ([]PRD, error) {
	query := `SELECT ` + prdColumns + ` FROM prds WHERE 1=1`
	var args []any

	if f.ProjectID != "" {
		query += " AND project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.CreatedBy != "" {
		query += " AND created_by = ?"
		args = append(args, f.CreatedBy)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var prds []PRD
	for rows.Next() {
		p, err := scanPRD(rows)
		if err != nil {
			return nil, err
		}
		prds = append(prds, *p)
	}
	return prds, rows.Err()
}

// UpdatePRD applies the non-nil fields and bumps updated_at.
func (s *Store) UpdatePRD(id string, p UpdatePRDParams, now string) (*PRD, error) {
	var set []string
	var args []any

	if p.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, nullableString(*p.Description))
	}
	if p.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.Metadata != nil {
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		set = append(set, "metadata = ?")
		args = append(args, meta)
	}
	if len(set) == 0 {
		return s.GetPRD(id)
	}

	set = append(set, "updated_at = ?")
	args = append(args, now, id)

	if _, err := s.db.Exec(
		"UPDATE prds SET "+strings.Join(set, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return nil, err
	}
	return s.GetPRD(id)
}

// DeletePRD removes a PRD, its stories and tasks (foreign key cascade),
// and every comment attached to any of them, in one transaction.
func (s *Store) DeletePRD(id string) error {
	return s.deleteSubtree("prd", id)
}

// ─── Stories ─────────────────────────────────────────────────────────────────

// CreateStory inserts a new story row.
func (s *Store) CreateStory(st *Story) error {
	var points any
	if st.StoryPoints != nil {
		points = *st.StoryPoints
	}
	meta, err := marshalMetadata(st.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO stories (id, prd_id, agent_id, title, description, status, assigned_to,
		                      story_points, acceptance_criteria, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.PRDID, st.AgentID, st.Title, nullableString(st.Description), string(st.Status),
		nullableString(st.AssignedTo), points, nullableString(st.AcceptanceCriteria),
		meta, st.CreatedAt, st.UpdatedAt,
	)
	return err
}

const storyColumns = "id, prd_id, agent_id, title, description, status, assigned_to, story_points, acceptance_criteria, metadata, created_at, updated_at"

func scanStory(row interface{ Scan(...any) error }) (*Story, error) {
	var st Story
	var desc, assigned, criteria sql.NullString
	var points sql.NullInt64
	var status, meta string
	if err := row.Scan(&st.ID, &st.PRDID, &st.AgentID, &st.Title, &desc, &status,
		&assigned, &points, &criteria, &meta, &st.CreatedAt, &st.UpdatedAt); err != nil {
		return nil, err
	}
	st.Description = desc.String
	st.Status = StoryStatus(status)
	st.AssignedTo = assigned.String
	if points.Valid {
		v := int(points.Int64)
		st.StoryPoints = &v
	}
	st.AcceptanceCriteria = criteria.String
	st.Metadata = unmarshalMetadata(meta)
	return &st, nil
}

// GetStory retrieves a story by id. Returns (nil, nil) when absent.
func (s *Store) GetStory(id string) (*Story, error) {
	st, err := scanStory(s.db.QueryRow(`SELECT `+storyColumns+` FROM stories WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

// ListStories returns stories matching the filter, newest first.
func (s *Store) ListStories(f StoryFilter) ([]Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories WHERE 1=1`
	var args []any

	if f.PRDID != "" {
		query += " AND prd_id = ?"
		args = append(args, f.PRDID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, f.AssignedTo)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stories []Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *st)
	}
	return stories, rows.Err()
}

// UpdateStory applies the non-nil fields and bumps updated_at.
func (s *Store) UpdateStory(id string, p UpdateStoryParams, now string) (*Story, error) {
	var set []string
	var args []any

	if p.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, nullableString(*p.Description))
	}
	if p.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.AssignedTo != nil {
		set = append(set, "assigned_to = ?")
		args = append(args, nullableString(*p.AssignedTo))
	}
	if p.StoryPoints != nil {
		set = append(set, "story_points = ?")
		args = append(args, *p.StoryPoints)
	}
	if p.AcceptanceCriteria != nil {
		set = append(set, "acceptance_criteria = ?")
		args = append(args, nullableString(*p.AcceptanceCriteria))
	}
	if p.Metadata != nil {
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		set = append(set, "metadata = ?")
		args = append(args, meta)
	}
	if len(set) == 0 {
		return s.GetStory(id)
	}

	set = append(set, "updated_at = ?")
	args = append(args, now, id)

	if _, err := s.db.Exec(
		"UPDATE stories SET "+strings.Join(set, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return nil, err
	}
	return s.GetStory(id)
}

// DeleteStory removes a story, its tasks, and their comments.
func (s *Store) DeleteStory(id string) error {
	return s.deleteSubtree("story", id)
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

// CreateTask inserts a new task row.
func (s *Store) CreateTask(t *Task) error {
	deps, err := marshalIDList(t.DependsOn)
	if err != nil {
		return err
	}
	meta, err := marshalMetadata(t.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO tasks (id, story_id, agent_id, title, description, status, assigned_to,
		                    depends_on, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.StoryID, t.AgentID, t.Title, nullableString(t.Description), string(t.Status),
		t.AssignedTo, deps, meta,
		t.CreatedAt, t.UpdatedAt,
	)
	return err
}

const taskColumns = "id, story_id, agent_id, title, description, status, assigned_to, depends_on, metadata, created_at, updated_at"

func scanTask(row interface{ Scan(...any) error }) (*Task, error) {
	var t Task
	var desc sql.NullString
	var status, deps, meta string
	if err := row.Scan(&t.ID, &t.StoryID, &t.AgentID, &t.Title, &desc, &status,
		&t.AssignedTo, &deps, &meta, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Description = desc.String
	t.Status = TaskStatus(status)
	t.DependsOn = unmarshalIDList(deps)
	t.Metadata = unmarshalMetadata(meta)
	return &t, nil
}

// GetTask retrieves a task by id. Returns (nil, nil) when absent.
func (s *Store) GetTask(id string) (*Task, error) {
	t, err := scanTask(s.db.QueryRow(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// TaskExists reports whether a task row exists without loading it.
func (s *Store) TaskExists(id string) (bool, error) {
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM tasks WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListTasks returns tasks matching the filter, newest first.
func (s *Store) ListTasks(f TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any

	if f.StoryID != "" {
		query += " AND story_id = ?"
		args = append(args, f.StoryID)
	}
	if f.Status != "" {
		query += " AND status = ?"
		args = append(args, f.Status)
	}
	if f.AssignedTo != "" {
		query += " AND assigned_to = ?"
		args = append(args, f.AssignedTo)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// UpdateTask applies the non-nil fields and bumps updated_at. A nil
// DependsOn leaves the stored dependency set untouched.
func (s *Store) UpdateTask(id string, p UpdateTaskParams, now string) (*Task, error) {
	var set []string
	var args []any

	if p.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *p.Title)
	}
	if p.Description != nil {
		set = append(set, "description = ?")
		args = append(args, nullableString(*p.Description))
	}
	if p.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*p.Status))
	}
	if p.AssignedTo != nil {
		set = append(set, "assigned_to = ?")
		args = append(args, *p.AssignedTo)
	}
	if p.DependsOn != nil {
		deps, err := marshalIDList(p.DependsOn)
		if err != nil {
			return nil, err
		}
		set = append(set, "depends_on = ?")
		args = append(args, deps)
	}
	if p.Metadata != nil {
		meta, err := marshalMetadata(p.Metadata)
		if err != nil {
			return nil, err
		}
		set = append(set, "metadata = ?")
		args = append(args, meta)
	}
	if len(set) == 0 {
		return s.GetTask(id)
	}

	set = append(set, "updated_at = ?")
	args = append(args, now, id)

	if _, err := s.db.Exec(
		"UPDATE tasks SET "+strings.Join(set, ", ")+" WHERE id = ?", args...,
	); err != nil {
		return nil, err
	}
	return s.GetTask(id)
}

// DeleteTask removes a task and its comments.
func (s *Store) DeleteTask(id string) error {
	return s.deleteSubtree("task", id)
}

// DependencyEdges returns the global task dependency adjacency map:
// task id → ids it depends on. Tasks without dependencies are included
// with a nil slice so callers see every node.
func (s *Store) DependencyEdges() (map[string][]string, error) {
	rows, err := s.db.Query(`SELECT id, depends_on FROM tasks`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	edges := make(map[string][]string)
	for rows.Next() {
		var id, deps string
		if err := rows.Scan(&id, &deps); err != nil {
			return nil, err
		}
		edges[id] = unmarshalIDList(deps)
	}
	return edges, rows.Err()
}

// ─── Comments ────────────────────────────────────────────────────────────────

// CreateComment inserts a new comment row. The parent entity's
// existence is the engine's concern — comments are polymorphic and
// carry no foreign key.
func (s *Store) CreateComment(c *Comment) error {
	meta, err := marshalMetadata(c.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO comments (id, entity_type, entity_id, author, content, comment_type, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, string(c.EntityKind), c.EntityID, c.Author, c.Content,
		string(c.CommentType), meta, c.CreatedAt,
	)
	return err
}

// ListComments returns an entity's comments, newest first.
func (s *Store) ListComments(kind EntityKind, entityID string, limit, offset int) ([]Comment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.Query(
		`SELECT id, entity_type, entity_id, author, content, comment_type, metadata, created_at
		 FROM comments WHERE entity_type = ? AND entity_id = ?
		 ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		string(kind), entityID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var comments []Comment
	for rows.Next() {
		var c Comment
		var kind, ctype, meta string
		if err := rows.Scan(&c.ID, &kind, &c.EntityID, &c.Author, &c.Content, &ctype, &meta, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.EntityKind = EntityKind(kind)
		c.CommentType = CommentType(ctype)
		c.Metadata = unmarshalMetadata(meta)
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// ─── Cascade delete ──────────────────────────────────────────────────────────

// deleteSubtree removes an entity and every descendant plus their
// comments in a single transaction. Child rows go via the ON DELETE
// CASCADE foreign keys; comments are polymorphic so they are collected
// and deleted explicitly first.
func (s *Store) deleteSubtree(root string, id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	// (entity_type, entity_id) pairs whose comments must go.
	type ref struct {
		kind string
		id   string
	}
	victims := []ref{{root, id}}

	collectTasks := func(storyID string) error {
		rows, err := tx.Query(`SELECT id FROM tasks WHERE story_id = ?`, storyID)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		for rows.Next() {
			var taskID string
			if err := rows.Scan(&taskID); err != nil {
				return err
			}
			victims = append(victims, ref{"task", taskID})
		}
		return rows.Err()
	}

	collectStories := func(prdID string) error {
		rows, err := tx.Query(`SELECT id FROM stories WHERE prd_id = ?`, prdID)
		if err != nil {
			return err
		}
		var storyIDs []string
		for rows.Next() {
			var storyID string
			if err := rows.Scan(&storyID); err != nil {
				_ = rows.Close()
				return err
			}
			storyIDs = append(storyIDs, storyID)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()
		for _, storyID := range storyIDs {
			victims = append(victims, ref{"story", storyID})
			if err := collectTasks(storyID); err != nil {
				return err
			}
		}
		return nil
	}

	var table string
	switch root {
	case "prd":
		table = "prds"
		if err := collectStories(id); err != nil {
			return err
		}
	case "story":
		table = "stories"
		if err := collectTasks(id); err != nil {
			return err
		}
	case "task":
		table = "tasks"
	default:
		return fmt.Errorf("unknown entity kind %q", root)
	}

	for _, v := range victims {
		if _, err := tx.Exec(
			`DELETE FROM comments WHERE entity_type = ? AND entity_id = ?`, v.kind, v.id,
		); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(`DELETE FROM `+table+` WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ─── Aggregate count queries ─────────────────────────────────────────────────

// ProjectCounts returns the number of PRDs, stories, and tasks under a
// project in one consistent read.
func (s *Store) ProjectCounts(projectID string) (prds, stories, tasks int, err error) {
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM prds WHERE project_id = ?`, projectID,
	).Scan(&prds); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM stories
		 WHERE prd_id IN (SELECT id FROM prds WHERE project_id = ?)`, projectID,
	).Scan(&stories); err != nil {
		return 0, 0, 0, err
	}
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks
		 WHERE story_id IN (
			SELECT id FROM stories WHERE prd_id IN (
				SELECT id FROM prds WHERE project_id = ?))`, projectID,
	).Scan(&tasks); err != nil {
		return 0, 0, 0, err
	}
	return prds, stories, tasks, nil
}

// PRDCounts returns the number of stories and tasks under a PRD.
func (s *Store) PRDCounts(prdID string) (stories, tasks int, err error) {
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM stories WHERE prd_id = ?`, prdID,
	).Scan(&stories); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks
		 WHERE story_id IN (SELECT id FROM stories WHERE prd_id = ?)`, prdID,
	).Scan(&tasks); err != nil {
		return 0, 0, err
	}
	return stories, tasks, nil
}

// TasksByStory returns every task under a story, unbounded. Used by
// cascade reconciliation, which must see the whole sibling set.
func (s *Store) TasksByStory(storyID string) ([]Task, error) {
	rows, err := s.db.Query(`SELECT `+taskColumns+` FROM tasks WHERE story_id = ? ORDER BY created_at, id`, storyID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// StoriesByPRD returns every story under a PRD, unbounded.
func (s *Store) StoriesByPRD(prdID string) ([]Story, error) {
	rows, err := s.db.Query(`SELECT `+storyColumns+` FROM stories WHERE prd_id = ? ORDER BY created_at, id`, prdID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stories []Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *st)
	}
	return stories, rows.Err()
}

// StoryTaskStatusCounts groups a story's tasks by status.
func (s *Store) StoryTaskStatusCounts(storyID string) (map[string]int, error) {
	return s.statusCounts(
		`SELECT status, COUNT(*) FROM tasks WHERE story_id = ? GROUP BY status`, storyID)
}

// ProjectStoryStatusCounts groups a project's stories by status.
func (s *Store) ProjectStoryStatusCounts(projectID string) (map[string]int, error) {
	return s.statusCounts(
		`SELECT status, COUNT(*) FROM stories
		 WHERE prd_id IN (SELECT id FROM prds WHERE project_id = ?)
		 GROUP BY status`, projectID)
}

// ProjectTaskStatusCounts groups a project's tasks by status.
func (s *Store) ProjectTaskStatusCounts(projectID string) (map[string]int, error) {
	return s.statusCounts(
		`SELECT status, COUNT(*) FROM tasks
		 WHERE story_id IN (
			SELECT id FROM stories WHERE prd_id IN (
				SELECT id FROM prds WHERE project_id = ?))
		 GROUP BY status`, projectID)
}

// ProjectTaskAgentCounts groups a project's tasks by assignee.
func (s *Store) ProjectTaskAgentCounts(projectID string) (map[string]int, error) {
	return s.statusCounts(
		`SELECT assigned_to, COUNT(*) FROM tasks
		 WHERE story_id IN (
			SELECT id FROM stories WHERE prd_id IN (
				SELECT id FROM prds WHERE project_id = ?))
		 GROUP BY assigned_to`, projectID)
}

func (s *Store) statusCounts(query string, args ...any) (map[string]int, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}

// WorkloadTasks returns an agent's open tasks joined with their story,
// PRD, and project context, oldest first so long-waiting work surfaces.
// A non-empty projectID narrows the result to one project.
func (s *Store) WorkloadTasks(agentID, projectID string) ([]TaskWithContext, error) {
	query := `SELECT t.id, t.story_id, t.agent_id, t.title, t.description, t.status,
	                 t.assigned_to, t.depends_on, t.metadata, t.created_at, t.updated_at,
	                 s.title, p.title, p.project_id
	          FROM tasks t
	          JOIN stories s ON t.story_id = s.id
	          JOIN prds p ON s.prd_id = p.id
	          WHERE t.assigned_to = ? AND t.status NOT IN ('done', 'archived')`
	args := []any{agentID}
	if projectID != "" {
		query += " AND p.project_id = ?"
		args = append(args, projectID)
	}
	query += " ORDER BY t.created_at, t.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []TaskWithContext
	for rows.Next() {
		var tc TaskWithContext
		var desc sql.NullString
		var status, deps, meta string
		if err := rows.Scan(&tc.ID, &tc.StoryID, &tc.AgentID, &tc.Title, &desc, &status,
			&tc.AssignedTo, &deps, &meta, &tc.CreatedAt, &tc.UpdatedAt,
			&tc.StoryTitle, &tc.PRDTitle, &tc.ProjectID); err != nil {
			return nil, err
		}
		tc.Description = desc.String
		tc.Status = TaskStatus(status)
		tc.DependsOn = unmarshalIDList(deps)
		tc.Metadata = unmarshalMetadata(meta)
		out = append(out, tc)
	}
	return out, rows.Err()
}

// WorkloadStories returns an agent's open stories, oldest first.
// A non-empty projectID narrows the result to one project.
func (s *Store) WorkloadStories(agentID, projectID string) ([]Story, error) {
	query := `SELECT ` + storyColumns + ` FROM stories
	          WHERE assigned_to = ? AND status NOT IN ('done', 'archived')`
	args := []any{agentID}
	if projectID != "" {
		query += " AND prd_id IN (SELECT id FROM prds WHERE project_id = ?)"
		args = append(args, projectID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var stories []Story
	for rows.Next() {
		st, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *st)
	}
	return stories, rows.Err()
}

// StoryTaskCounts returns total and done task counts for a story.
func (s *Store) StoryTaskCounts(storyID string) (total, done int, err error) {
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE story_id = ?`, storyID,
	).Scan(&total); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRow(
		`SELECT COUNT(*) FROM tasks WHERE story_id = ? AND status = 'done'`, storyID,
	).Scan(&done); err != nil {
		return 0, 0, err
	}
	return total, done, nil
}
