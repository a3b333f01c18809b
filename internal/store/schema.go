package store

import "fmt"

func (db *DB) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS project (
			uuid        VARCHAR PRIMARY KEY,
			name        VARCHAR UNIQUE NOT NULL,
			unix_name   VARCHAR UNIQUE NOT NULL,
			description VARCHAR NOT NULL DEFAULT '',
			created     TIMESTAMP NOT NULL,
			modified    TIMESTAMP NOT NULL,
			in_trash    BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE TABLE IF NOT EXISTS media (
			uuid        VARCHAR PRIMARY KEY,
			name        VARCHAR UNIQUE NOT NULL,
			unix_name   VARCHAR UNIQUE NOT NULL,
			description VARCHAR NOT NULL DEFAULT '',
			duration    VARCHAR NOT NULL DEFAULT '',
			media_type  VARCHAR NOT NULL,
			created     TIMESTAMP NOT NULL,
			modified    TIMESTAMP NOT NULL,
			in_trash    BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE SEQUENCE IF NOT EXISTS project_media_id_seq START 1`,
		`CREATE TABLE IF NOT EXISTS project_media (
			id           BIGINT PRIMARY KEY DEFAULT nextval('project_media_id_seq'),
			project_uuid VARCHAR NOT NULL REFERENCES project(uuid),
			media_uuid   VARCHAR NOT NULL REFERENCES media(uuid),
			UNIQUE(project_uuid, media_uuid)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_project_in_trash ON project(in_trash)`,
		`CREATE INDEX IF NOT EXISTS idx_media_in_trash ON media(in_trash)`,
		`CREATE INDEX IF NOT EXISTS idx_project_media_project ON project_media(project_uuid)`,
		`CREATE INDEX IF NOT EXISTS idx_project_media_media ON project_media(media_uuid)`,
	}
	for _, stmt := range stmts {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}
