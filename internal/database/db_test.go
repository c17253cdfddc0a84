package database

import (
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	c, err := mysql.ParseDSN(DSN("app", "secret", "db", "3306", "events"))
	require.NoError(t, err)
	assert.Equal(t, "app", c.User)
	assert.Equal(t, "secret", c.Passwd)
	assert.Equal(t, "db:3306", c.Addr)
	assert.Equal(t, "events", c.DBName)
	assert.True(t, c.ParseTime)
	assert.True(t, c.MultiStatements)
	assert.Equal(t, time.UTC, c.Loc)
	assert.Equal(t, "utf8mb4", c.Params["charset"])

	assert.True(t, strings.HasPrefix(DSN("app", "", "db", "3306", "events"), "app@tcp("))
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(migrationFiles, "migrations/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	for _, up := range ups {
		down := strings.TrimSuffix(up, ".up.sql") + ".down.sql"
		_, err := fs.Stat(migrationFiles, down)
		assert.NoError(t, err, "missing down migration for %s", up)
	}
}
