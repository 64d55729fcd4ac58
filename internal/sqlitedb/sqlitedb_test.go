package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsRunOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "test.db")
	migrations := []string{
		`CREATE TABLE a (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE b (id INTEGER PRIMARY KEY)`,
	}

	db, err := Open(ctx, path, migrations)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening must not re-run CREATE TABLE a, which would fail.
	migrations = append(migrations, `CREATE TABLE c (id INTEGER PRIMARY KEY)`)
	db, err = Open(ctx, path, migrations)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version))
	assert.Equal(t, 3, version)

	_, err = db.Exec(`INSERT INTO c (id) VALUES (1)`)
	assert.NoError(t, err)
}

func TestMigrationFailureIsReported(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "bad.db"), []string{`NOT SQL`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 1")
}
