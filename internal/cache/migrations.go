package cache

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		model TEXT,
		events TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entries_expires ON entries(expires_at)`,
}
