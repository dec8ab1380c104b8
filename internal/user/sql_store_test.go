package user

import (
	"context"
	"testing"

	"authgate/internal/google"
	"authgate/pkg/db"
	"authgate/pkg/idgen"
	"authgate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteStore(t *testing.T) *SQLStore {
	t.Helper()
	client, err := db.NewSQLClient(db.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, db.MigrateUp(client))
	return NewSQLStore(client)
}

func TestSQLStore_CreateAndFind(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	_, err := store.FindByExternalID(ctx, "g-1")
	assert.ErrorIs(t, err, ErrNotFound)

	name := "Ann"
	created := &User{ID: 1, Email: "a@b.com", Name: &name, ExternalID: "g-1", Role: RoleUser, Color: "#abcdef", Picture: "p.png"}
	require.NoError(t, store.Create(ctx, created))

	found, err := store.FindByExternalID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestSQLStore_NullName(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &User{ID: 2, Email: "c@d.com", ExternalID: "g-2", Role: RoleUser, Color: "#000000"}))

	found, err := store.FindByExternalID(ctx, "g-2")
	require.NoError(t, err)
	assert.Nil(t, found.Name)
}

func TestSQLStore_DuplicateExternalID(t *testing.T) {
	store := newSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, &User{ID: 1, Email: "a@b.com", ExternalID: "g-1", Role: RoleUser, Color: "#000000"}))

	err := store.Create(ctx, &User{ID: 2, Email: "a@b.com", ExternalID: "g-1", Role: RoleUser, Color: "#ffffff"})
	assert.ErrorIs(t, err, ErrDuplicateExternalID)
}

func TestResolver_FindOrCreateIsIdempotent(t *testing.T) {
	store := newSQLiteStore(t)
	ids, err := idgen.NewSnowflakeGenerator(1)
	require.NoError(t, err)
	resolver := NewResolver(store, ids, logger.Nop())
	ctx := context.Background()

	profile := &google.Profile{ExternalID: "g-1", Name: "Ann", Email: "a@b.com", EmailVerified: true}

	first, err := resolver.FindOrCreate(ctx, profile)
	require.NoError(t, err)

	profile.Name = "Ann Renamed"
	second, err := resolver.FindOrCreate(ctx, profile)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ann", second.DisplayName())

	var count int
	require.NoError(t, store.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)
}
