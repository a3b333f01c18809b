/*
Package store is the embedded metadata store: three DuckDB tables
(project, media, project_media) accessed through database/sql, opened via
the duckdb-go driver.

Every write path that touches more than one table goes through WithTx so a
failure midway leaves no partial state. Repo methods accept a querier
(either *sql.DB or *sql.Tx) so callers choose the transaction boundary.

ListProjectCounts and ListMediaCounts use a single grouped LEFT JOIN query
each rather than N+1 per-row lookups; the returned counts are advisory and
never participate in correctness checks.
*/
package store
