package db

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *SQLClient {
	t.Helper()
	client, err := NewSQLClient(DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRebind(t *testing.T) {
	t.Run("postgres numbers placeholders", func(t *testing.T) {
		got := Rebind(DriverPostgres, "SELECT id FROM users WHERE google_id = ? AND role = ?")
		assert.Equal(t, "SELECT id FROM users WHERE google_id = $1 AND role = $2", got)
	})

	t.Run("sqlite keeps question marks", func(t *testing.T) {
		query := "SELECT id FROM users WHERE google_id = ?"
		assert.Equal(t, query, Rebind(DriverSQLite, query))
	})
}

func TestNewSQLClient_UnsupportedDriver(t *testing.T) {
	_, err := NewSQLClient("mysql", "root@/db")
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	t.Run("plain credentials", func(t *testing.T) {
		dsn := PostgresDSN("db", "5432", "app", "pw", "authgate", "disable")
		assert.Equal(t, "postgres://app:pw@db:5432/authgate?sslmode=disable", dsn)
	})

	t.Run("reserved characters stay in the password", func(t *testing.T) {
		dsn := PostgresDSN("db", "5432", "app", "p@ss/w#rd", "authgate", "disable")

		parsed, err := url.Parse(dsn)
		require.NoError(t, err)

		password, ok := parsed.User.Password()
		require.True(t, ok)
		assert.Equal(t, "p@ss/w#rd", password)
		assert.Equal(t, "app", parsed.User.Username())
		assert.Equal(t, "db", parsed.Hostname())
		assert.Equal(t, "5432", parsed.Port())
		assert.Equal(t, "/authgate", parsed.Path)
		assert.Equal(t, "disable", parsed.Query().Get("sslmode"))
	})

	t.Run("ipv6 host", func(t *testing.T) {
		dsn := PostgresDSN("::1", "5432", "app", "pw", "authgate", "disable")
		assert.Equal(t, "postgres://app:pw@[::1]:5432/authgate?sslmode=disable", dsn)
	})
}

func TestMigrateUp_CreatesUsersTable(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, MigrateUp(client))
	// second run is a no-op
	require.NoError(t, MigrateUp(client))

	_, err := client.ExecContext(ctx,
		client.Rebind("INSERT INTO users (id, email, google_id, color) VALUES (?, ?, ?, ?)"),
		1, "a@b.com", "g-1", "#112233")
	require.NoError(t, err)

	var role, picture string
	err = client.QueryRowContext(ctx, "SELECT role, picture FROM users WHERE id = ?", 1).Scan(&role, &picture)
	require.NoError(t, err)
	assert.Equal(t, "USER", role)
	assert.Equal(t, "", picture)

	_, err = client.ExecContext(ctx,
		"INSERT INTO users (id, email, google_id, color) VALUES (?, ?, ?, ?)",
		2, "c@d.com", "g-1", "#445566")
	assert.Error(t, err, "google_id must be unique")
}

func TestMigrate_ReleasesConnections(t *testing.T) {
	client := newTestClient(t)

	require.NoError(t, MigrateUp(client))
	assert.Equal(t, 0, client.db.Stats().InUse)

	require.NoError(t, MigrateDown(client))
	assert.Equal(t, 0, client.db.Stats().InUse)

	// the shared pool is still open
	require.NoError(t, client.PingContext(context.Background()))
}

func TestMigrateDown_DropsUsersTable(t *testing.T) {
	client := newTestClient(t)
	require.NoError(t, MigrateUp(client))
	require.NoError(t, MigrateDown(client))

	_, err := client.ExecContext(context.Background(), "SELECT 1 FROM users")
	assert.Error(t, err)
}
