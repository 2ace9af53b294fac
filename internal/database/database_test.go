package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPostgres(t *testing.T) {
	assert.True(t, IsPostgres("postgres://u:p@localhost/db"))
	assert.True(t, IsPostgres("postgresql://u:p@localhost/db"))
	assert.False(t, IsPostgres("villabook.db"))
	assert.False(t, IsPostgres("file:test?mode=memory"))
}

func TestConnectAndMigrate_SQLite(t *testing.T) {
	db, err := Connect("file:database_test?mode=memory&cache=shared", Options{MaxOpenConns: 1, Quiet: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "properties", "bookings"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}
	assert.True(t, db.Migrator().HasColumn("bookings", "stripe_deposit_intent_id"))
	assert.True(t, db.Migrator().HasColumn("properties", "nightly_rate"))
}
