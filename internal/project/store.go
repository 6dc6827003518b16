package project

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"reel/internal/config"
	"reel/internal/textutil"
)

// Store manages project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the project database and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.DatabasePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a new draft project for the given owner.
func (s *Store) Create(ctx context.Context, owner, title string, orientation Orientation) (*Project, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return nil, errors.New("owner is required")
	}
	title = textutil.NormalizeTitle(title, "Untitled")
	if orientation == "" {
		orientation = OrientationLandscape
	}

	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)
	id := uuid.NewString()

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO projects (
            id, owner, title, orientation, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		owner,
		title,
		string(orientation),
		StatusDraft,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert project: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a project by identifier. A missing project yields ErrNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = ?`, id)
	proj, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return proj, nil
}

// GetOwned fetches a project and verifies the requesting owner.
func (s *Store) GetOwned(ctx context.Context, owner, id string) (*Project, error) {
	proj, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if proj.Owner != strings.TrimSpace(owner) {
		return nil, ErrOwnerMismatch
	}
	return proj, nil
}

// List returns projects for an owner filtered by optional statuses, ordered
// by creation time.
func (s *Store) List(ctx context.Context, owner string, statuses ...Status) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE owner = ?`
	args := []any{strings.TrimSpace(owner)}
	if len(statuses) > 0 {
		query += ` AND status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// ListAll returns every project regardless of owner, ordered by creation
// time. Used by the reconciler sweep.
func (s *Store) ListAll(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list all projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		proj, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, proj)
	}
	return projects, rows.Err()
}

// Update persists changes to an existing project with last-writer-wins
// semantics. The status value must be in the enum and the record must honor
// the clip and output invariants; callers serialize per-project writes.
func (s *Store) Update(ctx context.Context, proj *Project) error {
	if proj == nil {
		return errors.New("project is nil")
	}
	if !IsKnownStatus(proj.Status) {
		return fmt.Errorf("%w: %q", ErrUnknownStatus, proj.Status)
	}
	if len(proj.ClipPaths) > len(proj.Prompts) {
		return fmt.Errorf("%w: %d clips for %d prompts", ErrClipOverflow, len(proj.ClipPaths), len(proj.Prompts))
	}
	if proj.OutputPath != "" && proj.Status != StatusReadyWithOutput {
		return fmt.Errorf("output path set while status is %q", proj.Status)
	}

	promptsJSON, err := marshalStrings(proj.Prompts)
	if err != nil {
		return fmt.Errorf("marshal prompts: %w", err)
	}
	clipsJSON, err := marshalStrings(proj.ClipPaths)
	if err != nil {
		return fmt.Errorf("marshal clip paths: %w", err)
	}

	proj.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE projects
         SET title = ?, orientation = ?, status = ?, prompts_json = ?,
             clip_paths_json = ?, output_path = ?, error_message = ?, updated_at = ?
         WHERE id = ?`,
		proj.Title,
		string(proj.Orientation),
		proj.Status,
		nullableString(promptsJSON),
		nullableString(clipsJSON),
		nullableString(proj.OutputPath),
		nullableString(proj.ErrorMessage),
		proj.UpdatedAt.Format(time.RFC3339Nano),
		proj.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateDetails edits the mutable fields of a draft project on behalf of its
// owner. Non-draft projects reject edits so in-flight work stays consistent.
func (s *Store) UpdateDetails(ctx context.Context, owner, id, title string, orientation Orientation, prompts []string) (*Project, error) {
	proj, err := s.GetOwned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if proj.Status != StatusDraft {
		return nil, fmt.Errorf("%w: status is %q", ErrNotDraft, proj.Status)
	}

	if normalized := textutil.NormalizeTitle(title, ""); normalized != "" {
		proj.Title = normalized
	}
	if orientation != "" {
		proj.Orientation = orientation
	}
	if prompts != nil {
		proj.Prompts = prompts
	}
	if err := s.Update(ctx, proj); err != nil {
		return nil, err
	}
	return proj, nil
}

// Stats returns a count of projects grouped by status.
func (s *Store) Stats(ctx context.Context) (StatsSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM projects GROUP BY status`)
	if err != nil {
		return StatsSummary{}, fmt.Errorf("project stats: %w", err)
	}
	defer rows.Close()

	summary := StatsSummary{}
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return StatsSummary{}, err
		}
		summary.Total += count
		switch status {
		case StatusDraft:
			summary.Draft += count
		case StatusGenerating:
			summary.Generating += count
		case StatusReady:
			summary.Ready += count
		case StatusStitching:
			summary.Stitching += count
		case StatusReadyWithOutput:
			summary.Completed += count
		case StatusError:
			summary.Errored += count
		}
	}
	return summary, rows.Err()
}

// CheckHealth returns diagnostic information about the project database.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	health := DatabaseHealth{DBPath: s.path}

	if s.path == "" {
		return health, errors.New("project database path is unknown")
	}

	info, err := os.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			health.DatabaseExists = false
			return health, nil
		}
		return health, fmt.Errorf("stat project database: %w", err)
	}
	if info.IsDir() {
		return health, fmt.Errorf("project database path %q is a directory", s.path)
	}
	health.DatabaseExists = true

	if s.db == nil {
		return health, errors.New("project database connection unavailable")
	}

	connCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(connCtx); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("ping project database: %w", err)
	}
	health.DatabaseReadable = true

	var tableName string
	row := s.db.QueryRowContext(connCtx, "SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'projects'")
	if err := row.Scan(&tableName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			health.TableExists = false
		} else {
			health.Error = err.Error()
			return health, fmt.Errorf("query table info: %w", err)
		}
	} else {
		health.TableExists = true
	}

	if health.TableExists {
		row = s.db.QueryRowContext(connCtx, "SELECT COUNT(*) FROM projects")
		if err := row.Scan(&health.TotalProjects); err != nil {
			health.Error = err.Error()
			return health, fmt.Errorf("count projects: %w", err)
		}
	}

	row = s.db.QueryRowContext(connCtx, "PRAGMA integrity_check")
	var integrityResult string
	if err := row.Scan(&integrityResult); err != nil {
		health.Error = err.Error()
		return health, fmt.Errorf("integrity check: %w", err)
	}
	health.IntegrityCheck = strings.EqualFold(integrityResult, "ok")

	return health, nil
}

// Remove deletes a project on behalf of its owner.
func (s *Store) Remove(ctx context.Context, owner, id string) (bool, error) {
	if _, err := s.GetOwned(ctx, owner, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete project: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

const projectColumns = "id, owner, title, orientation, status, prompts_json, clip_paths_json, output_path, error_message, created_at, updated_at"

func scanProject(scanner interface{ Scan(dest ...any) error }) (*Project, error) {
	var (
		id           string
		owner        string
		title        string
		orientation  string
		statusStr    string
		promptsRaw   sql.NullString
		clipsRaw     sql.NullString
		outputPath   sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&owner,
		&title,
		&orientation,
		&statusStr,
		&promptsRaw,
		&clipsRaw,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	proj := &Project{
		ID:           id,
		Owner:        owner,
		Title:        title,
		Orientation:  Orientation(orientation),
		Status:       Status(statusStr),
		OutputPath:   outputPath.String,
		ErrorMessage: errorMessage.String,
	}

	var err error
	if proj.Prompts, err = unmarshalStrings(promptsRaw.String); err != nil {
		return nil, fmt.Errorf("decode prompts: %w", err)
	}
	if proj.ClipPaths, err = unmarshalStrings(clipsRaw.String); err != nil {
		return nil, fmt.Errorf("decode clip paths: %w", err)
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		proj.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		proj.UpdatedAt = updated
	}
	return proj, nil
}

func marshalStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
