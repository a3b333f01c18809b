package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/stagelab/cuems-core/internal/cerrors"
	"github.com/stagelab/cuems-core/internal/models"
)

// CreateMedia inserts a new media row.
func (db *DB) CreateMedia(ctx context.Context, q querier, m *models.Media) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO media (uuid, name, unix_name, description, duration, media_type, created, modified, in_trash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.UUID, m.Name, m.UnixName, m.Description, m.Duration, string(m.MediaType), m.Created, m.Modified, m.InTrash)
	if err != nil {
		return wrapConflict(err, fmt.Sprintf("media %s", m.Name))
	}
	return nil
}

// GetMedia loads a media row by uuid, regardless of trash state.
func (db *DB) GetMedia(ctx context.Context, q querier, uuid string) (*models.Media, error) {
	row := q.QueryRowContext(ctx, `
		SELECT uuid, name, unix_name, description, duration, media_type, created, modified, in_trash
		FROM media WHERE uuid = ?`, uuid)
	return scanMedia(row, uuid)
}

// GetMediaByUnixName loads a media row by its unix_name.
func (db *DB) GetMediaByUnixName(ctx context.Context, q querier, unixName string) (*models.Media, error) {
	row := q.QueryRowContext(ctx, `
		SELECT uuid, name, unix_name, description, duration, media_type, created, modified, in_trash
		FROM media WHERE unix_name = ?`, unixName)
	return scanMedia(row, unixName)
}

func scanMedia(row *sql.Row, ref string) (*models.Media, error) {
	var m models.Media
	var mediaType string
	err := row.Scan(&m.UUID, &m.Name, &m.UnixName, &m.Description, &m.Duration, &mediaType,
		&m.Created, &m.Modified, &m.InTrash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cerrors.NonExistentItem(ref)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get media: %w", err)
	}
	m.MediaType = models.MediaType(mediaType)
	return &m, nil
}

// UpdateMedia overwrites the mutable fields of an existing media row.
func (db *DB) UpdateMedia(ctx context.Context, q querier, m *models.Media) error {
	res, err := q.ExecContext(ctx, `
		UPDATE media SET name = ?, unix_name = ?, description = ?, duration = ?, modified = ?, in_trash = ?
		WHERE uuid = ?`,
		m.Name, m.UnixName, m.Description, m.Duration, m.Modified, m.InTrash, m.UUID)
	if err != nil {
		return wrapConflict(err, fmt.Sprintf("media %s", m.Name))
	}
	return requireAffected(res, m.UUID)
}

// DeleteMedia permanently removes a media row and its edges.
func (db *DB) DeleteMedia(ctx context.Context, q querier, uuid string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM project_media WHERE media_uuid = ?`, uuid); err != nil {
		return fmt.Errorf("store: delete media edges: %w", err)
	}
	res, err := q.ExecContext(ctx, `DELETE FROM media WHERE uuid = ?`, uuid)
	if err != nil {
		return fmt.Errorf("store: delete media: %w", err)
	}
	return requireAffected(res, uuid)
}

// ListMedia returns every media row with the given trash state, ordered by
// creation time.
func (db *DB) ListMedia(ctx context.Context, q querier, inTrash bool) ([]models.MediaMeta, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT uuid, name, unix_name, description, duration, media_type, created, modified
		FROM media WHERE in_trash = ? ORDER BY created`, inTrash)
	if err != nil {
		return nil, fmt.Errorf("store: list media: %w", err)
	}
	defer rows.Close()

	var out []models.MediaMeta
	for rows.Next() {
		var m models.MediaMeta
		var mediaType string
		if err := rows.Scan(&m.UUID, &m.Name, &m.UnixName, &m.Description, &m.Duration, &mediaType,
			&m.Created, &m.Modified); err != nil {
			return nil, fmt.Errorf("store: scan media: %w", err)
		}
		m.MediaType = models.MediaType(mediaType)
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMediaCounts returns every media row with the given trash state,
// annotated with how many live/trashed projects reference it.
func (db *DB) ListMediaCounts(ctx context.Context, q querier, inTrash bool) ([]models.MediaCounts, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT m.uuid, m.name, m.unix_name, m.description, m.duration, m.media_type, m.created, m.modified, m.in_trash,
			COUNT(*) FILTER (WHERE p.in_trash = FALSE) AS live_project_count,
			COUNT(*) FILTER (WHERE p.in_trash = TRUE) AS trash_project_count
		FROM media m
		LEFT JOIN project_media pm ON pm.media_uuid = m.uuid
		LEFT JOIN project p ON p.uuid = pm.project_uuid
		WHERE m.in_trash = ?
		GROUP BY m.uuid, m.name, m.unix_name, m.description, m.duration, m.media_type, m.created, m.modified, m.in_trash
		ORDER BY m.created`, inTrash)
	if err != nil {
		return nil, fmt.Errorf("store: list media counts: %w", err)
	}
	defer rows.Close()

	var out []models.MediaCounts
	for rows.Next() {
		var c models.MediaCounts
		var mediaType string
		if err := rows.Scan(&c.UUID, &c.Name, &c.UnixName, &c.Description, &c.Duration, &mediaType,
			&c.Created, &c.Modified, &c.InTrash, &c.LiveProjectCount, &c.TrashProjectCount); err != nil {
			return nil, fmt.Errorf("store: scan media counts: %w", err)
		}
		c.MediaType = models.MediaType(mediaType)
		out = append(out, c)
	}
	return out, rows.Err()
}
