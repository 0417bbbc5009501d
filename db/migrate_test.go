package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMigrations_Ordered(t *testing.T) {
	all, err := Migrations()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 3)
	assert.Equal(t, "000", all[0].Version)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].File, all[i].File)
	}
}

func TestOpenWithMigrations(t *testing.T) {
	db, err := OpenWithMigrations(filepath.Join(t.TempDir(), "attrgen.db"), zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"schema_migrations", "counter_state", "accounts"} {
		var n int
		require.NoError(t, db.QueryRow(
			"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&n))
		assert.Equal(t, 1, n, table)
	}

	versions, err := Applied(db)
	require.NoError(t, err)
	assert.Equal(t, []string{"000", "001", "002"}, versions)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "attrgen.db"), nil)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(db, nil))
	require.NoError(t, Migrate(db, nil))

	versions, err := Applied(db)
	require.NoError(t, err)
	assert.Len(t, versions, 3)
}

func TestMigrate_ClosedDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "attrgen.db"), nil)
	require.NoError(t, err)
	db.Close()

	err = Migrate(db, nil)
	require.Error(t, err)
	assert.True(t, IsDatabaseClosed(err))
}
