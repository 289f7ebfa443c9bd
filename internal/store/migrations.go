package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Exports table - one row per export action with all three artifacts
		`CREATE TABLE IF NOT EXISTS exports (
			id TEXT PRIMARY KEY,
			gesture TEXT NOT NULL DEFAULT '',
			frame_count INTEGER NOT NULL DEFAULT 0,
			take_count INTEGER NOT NULL DEFAULT 0,
			csv TEXT,
			metadata TEXT NOT NULL,
			take_metadata TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Takes table - flattened take summaries for querying across exports
		`CREATE TABLE IF NOT EXISTS takes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			export_id TEXT NOT NULL REFERENCES exports(id) ON DELETE CASCADE,
			take_id INTEGER NOT NULL,
			gesture TEXT NOT NULL DEFAULT '',
			quality TEXT NOT NULL CHECK(quality IN ('Good', 'Borderline', 'Bad')),
			score INTEGER NOT NULL,
			reasons TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			started_ms INTEGER,
			ended_ms INTEGER
		)`,

		`CREATE INDEX IF NOT EXISTS idx_takes_export_id ON takes(export_id)`,
		`CREATE INDEX IF NOT EXISTS idx_takes_quality ON takes(quality)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
