package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/models"
)

// CreateProject inserts a new project row.
func (db *DB) CreateProject(ctx context.Context, q querier, p *models.Project) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO project (uuid, name, unix_name, description, created, modified, in_trash)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UUID, p.Name, p.UnixName, p.Description, p.Created, p.Modified, p.InTrash)
	if err != nil {
		return wrapConflict(err, fmt.Sprintf("project %s", p.Name))
	}
	return nil
}

// GetProject loads a project by uuid, regardless of trash state.
func (db *DB) GetProject(ctx context.Context, q querier, uuid string) (*models.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT uuid, name, unix_name, description, created, modified, in_trash
		FROM project WHERE uuid = ?`, uuid)
	return scanProject(row, uuid)
}

// GetProjectByUnixName loads a project by its unix_name.
func (db *DB) GetProjectByUnixName(ctx context.Context, q querier, unixName string) (*models.Project, error) {
	row := q.QueryRowContext(ctx, `
		SELECT uuid, name, unix_name, description, created, modified, in_trash
		FROM project WHERE unix_name = ?`, unixName)
	return scanProject(row, unixName)
}

func scanProject(row *sql.Row, ref string) (*models.Project, error) {
	var p models.Project
	err := row.Scan(&p.UUID, &p.Name, &p.UnixName, &p.Description, &p.Created, &p.Modified, &p.InTrash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerrors.NonExistentItem(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get project: %w", err)
	}
	return &p, nil
}

// UpdateProject overwrites the mutable fields of an existing project row.
func (db *DB) UpdateProject(ctx context.Context, q querier, p *models.Project) error {
	res, err := q.ExecContext(ctx, `
		UPDATE project SET name = ?, unix_name = ?, description = ?, modified = ?, in_trash = ?
		WHERE uuid = ?`,
		p.Name, p.UnixName, p.Description, p.Modified, p.InTrash, p.UUID)
	if err != nil {
		return wrapConflict(err, fmt.Sprintf("project %s", p.Name))
	}
	return requireAffected(res, p.UUID)
}

// DeleteProject permanently removes a project row and its edges.
func (db *DB) DeleteProject(ctx context.Context, q querier, uuid string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM project_media WHERE project_uuid = ?`, uuid); err != nil {
		return fmt.Errorf("store: delete project edges: %w", err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM project WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("store: delete project: %w", err)
	}
	return requireAffected(res, uuid)
}

// ListProjects returns every project with the given trash state, ordered
// by creation time.
func (db *DB) ListProjects(ctx context.Context, q querier, inTrash bool) ([]models.ProjectMeta, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT uuid, name, unix_name, created, modified
		FROM project WHERE in_trash = ? ORDER BY created`, inTrash)
	if err != nil {
		return nil, fmt.Errorf("store: list projects: %w", err)
	}
	defer rows.Close()

	var out []models.ProjectMeta
	for rows.Next() {
		var m models.ProjectMeta
		if err := rows.Scan(&m.UUID, &m.Name, &m.UnixName, &m.Created, &m.Modified); err != nil {
			return nil, fmt.Errorf("store: scan project: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListProjectCounts returns every project with the given trash state,
// annotated with how many live/trashed media it references. A single
// grouped query; advisory counts only.
func (db *DB) ListProjectCounts(ctx context.Context, q querier, inTrash bool) ([]models.ProjectCounts, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.uuid, p.name, p.unix_name, p.description, p.created, p.modified, p.in_trash,
			COUNT(*) FILTER (WHERE m.in_trash = FALSE) AS live_media_count,
			COUNT(*) FILTER (WHERE m.in_trash = TRUE) AS trash_media_count
		FROM project p
		LEFT JOIN project_media pm ON pm.project_uuid = p.uuid
		LEFT JOIN media m ON m.uuid = pm.media_uuid
		WHERE p.in_trash = ?
		GROUP BY p.uuid, p.name, p.unix_name, p.description, p.created, p.modified, p.in_trash
		ORDER BY p.created`, inTrash)
	if err != nil {
		return nil, fmt.Errorf("store: list project counts: %w", err)
	}
	defer rows.Close()

	var out []models.ProjectCounts
	for rows.Next() {
		var c models.ProjectCounts
		if err := rows.Scan(&c.UUID, &c.Name, &c.UnixName, &c.Description, &c.Created, &c.Modified,
			&c.InTrash, &c.LiveMediaCount, &c.TrashMediaCount); err != nil {
			return nil, fmt.Errorf("store: scan project counts: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func requireAffected(res sql.Result, uuid string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return cerrors.NonExistentItem(uuid)
	}
	return nil
}

func wrapConflict(err error, ref string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	for _, marker := range []string{"UNIQUE", "unique", "Duplicate key", "PRIMARY KEY"} {
		if strings.Contains(msg, marker) {
			return cerrors.Conflict(fmt.Sprintf("%s already exists", ref))
		}
	}
	return fmt.Errorf("store: %w", err)
}
