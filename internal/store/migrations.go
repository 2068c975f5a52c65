package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions - one per camera run or batch of analyzed images
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			source TEXT NOT NULL,
			frames INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Observations - analysis result of a single frame
		`CREATE TABLE IF NOT EXISTS observations (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			captured_at DATETIME NOT NULL,
			hands INTEGER NOT NULL,
			handedness TEXT NOT NULL DEFAULT '',
			fingers INTEGER NOT NULL DEFAULT 0,
			finger_count INTEGER NOT NULL DEFAULT 0,
			x_min INTEGER NOT NULL DEFAULT 0,
			y_min INTEGER NOT NULL DEFAULT 0,
			x_max INTEGER NOT NULL DEFAULT 0,
			y_max INTEGER NOT NULL DEFAULT 0,
			distance REAL,
			landmarks TEXT NOT NULL DEFAULT '[]'
		)`,

		`CREATE INDEX IF NOT EXISTS idx_observations_session_id ON observations(session_id, frame_index)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
