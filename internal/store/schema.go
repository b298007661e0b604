package store

import "fmt"

// createSchema creates the run tables
func (s *Store) createSchema() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		game_id TEXT DEFAULT '',
		game_type TEXT NOT NULL,
		ending TEXT NOT NULL,
		winner TEXT DEFAULT '',
		unprocessed INTEGER DEFAULT 0,
		record_count INTEGER DEFAULT 0,
		final_state TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`

	// One row per field of each classified record
	recordFieldsTable := `
	CREATE TABLE IF NOT EXISTS record_fields (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, position, field),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);`

	// One row per state column after each record
	snapshotValuesTable := `
	CREATE TABLE IF NOT EXISTS snapshot_values (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		column_name TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (run_id, position, column_name),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);`

	unprocessedTable := `
	CREATE TABLE IF NOT EXISTS unprocessed_lines (
		run_id TEXT NOT NULL,
		line_index INTEGER NOT NULL,
		text TEXT NOT NULL,
		PRIMARY KEY (run_id, line_index),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);`

	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_game_id ON runs(game_id);",
		"CREATE INDEX IF NOT EXISTS idx_record_fields_value ON record_fields(field, value);",
	}

	tables := []string{runsTable, recordFieldsTable, snapshotValuesTable, unprocessedTable}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	for _, index := range indexes {
		if _, err := s.db.Exec(index); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}

// validateSchema checks that every table exists
func (s *Store) validateSchema() error {
	for _, table := range []string{"runs", "record_fields", "snapshot_values", "unprocessed_lines"} {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", table, err)
		}
		if count == 0 {
			return fmt.Errorf("missing table: %s", table)
		}
	}
	return nil
}
