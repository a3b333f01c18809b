package store

import (
	"context"
	"fmt"
)

// AddProjectMedia inserts a reference edge; a no-op if it already exists.
func (db *DB) AddProjectMedia(ctx context.Context, q querier, projectUUID, mediaUUID string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO project_media (project_uuid, media_uuid)
		SELECT ?, ? WHERE NOT EXISTS (
			SELECT 1 FROM project_media WHERE project_uuid = ? AND media_uuid = ?
		)`, projectUUID, mediaUUID, projectUUID, mediaUUID)
	if err != nil {
		return fmt.Errorf("store: add project_media edge: %w", err)
	}
	return nil
}

// RemoveProjectMedia deletes a reference edge; a no-op if absent.
func (db *DB) RemoveProjectMedia(ctx context.Context, q querier, projectUUID, mediaUUID string) error {
	_, err := q.ExecContext(ctx, `
		DELETE FROM project_media WHERE project_uuid = ? AND media_uuid = ?`, projectUUID, mediaUUID)
	if err != nil {
		return fmt.Errorf("store: remove project_media edge: %w", err)
	}
	return nil
}

// ListMediaUUIDsForProject returns the uuids of every media a project
// currently references.
func (db *DB) ListMediaUUIDsForProject(ctx context.Context, q querier, projectUUID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT media_uuid FROM project_media WHERE project_uuid = ?`, projectUUID)
	if err != nil {
		return nil, fmt.Errorf("store: list media refs: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var uuid string
		if err := rows.Scan(&uuid); err != nil {
			return nil, fmt.Errorf("store: scan media ref: %w", err)
		}
		out = append(out, uuid)
	}
	return out, rows.Err()
}

// ListProjectUnixNamesForMedia returns the unix_name of every project that
// references the given media, split by the referencing project's trash
// state.
func (db *DB) ListProjectUnixNamesForMedia(ctx context.Context, q querier, mediaUUID string) (live, trash []string, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT p.unix_name, p.in_trash
		FROM project_media pm
		JOIN project p ON p.uuid = pm.project_uuid
		WHERE pm.media_uuid = ?
		ORDER BY p.created`, mediaUUID)
	if err != nil {
		return nil, nil, fmt.Errorf("store: list project refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var unixName string
		var inTrash bool
		if err := rows.Scan(&unixName, &inTrash); err != nil {
			return nil, nil, fmt.Errorf("store: scan project ref: %w", err)
		}
		if inTrash {
			trash = append(trash, unixName)
		} else {
			live = append(live, unixName)
		}
	}
	return live, trash, rows.Err()
}
