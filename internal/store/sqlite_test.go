package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

func openTestSQLite(t *testing.T) *SQLiteDB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLite_RoundTripWithNulls(t *testing.T) {
	db := openTestSQLite(t)
	s := SQLiteBucket[*string](db, Resolutions)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, types.ResolutionStore{
		"Lee, K.": types.StringPtr("https://dir.example/cd_detail?uid=kl7"),
		"Doe, A.": nil,
	}))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got["Doe, A."])
	assert.Equal(t, "https://dir.example/cd_detail?uid=kl7", *got["Lee, K."])
}

func TestSQLite_BucketsAreIsolated(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()
	ids := SQLiteBucket[string](db, Identifiers)
	snaps := SQLiteBucket[string](db, Snapshots)

	require.NoError(t, ids.Save(ctx, map[string]string{"Lee, K.": "kl7"}))
	require.NoError(t, snaps.Save(ctx, map[string]string{"Lee, K.": "Graph theory"}))
	require.NoError(t, ids.Save(ctx, map[string]string{"Smith, J": "jsmith1"}))

	gotIDs, err := ids.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Smith, J": "jsmith1"}, gotIDs)

	gotSnaps, err := snaps.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Lee, K.": "Graph theory"}, gotSnaps)
}

func TestSQLite_EmptyBucketLoadsEmpty(t *testing.T) {
	db := openTestSQLite(t)
	got, err := SQLiteBucket[string](db, Snapshots).Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestOpen_SQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	stores, err := Open(context.Background(), Options{Backend: BackendSQLite, Dir: dir})
	require.NoError(t, err)
	defer stores.Close()

	ctx := context.Background()
	require.NoError(t, stores.Snapshots.Save(ctx, map[string]string{"A": "a"}))
	got, err := stores.Snapshots.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "a"}, got)
	assert.FileExists(t, filepath.Join(dir, "prof_resolver.db"))
}

func TestSQLite_UndecodableRowIsSkippedAndKept(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()
	ids := SQLiteBucket[string](db, Identifiers)

	require.NoError(t, ids.Save(ctx, map[string]string{"Lee, K.": "kl7", "Smith, J": "jsmith1"}))
	_, err := db.db.ExecContext(ctx, `INSERT INTO kv_entries (bucket, name, value) VALUES (?, ?, ?)`,
		Identifiers.Name, "Broken, B.", "not json")
	require.NoError(t, err)

	got, err := ids.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Lee, K.": "kl7", "Smith, J": "jsmith1"}, got)

	got["Doe, A."] = "adoe"
	require.NoError(t, ids.Save(ctx, got))

	reloaded, err := ids.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reloaded, 3)

	var raw string
	require.NoError(t, db.db.QueryRowContext(ctx,
		`SELECT value FROM kv_entries WHERE bucket = ? AND name = ?`, Identifiers.Name, "Broken, B.").Scan(&raw))
	assert.Equal(t, "not json", raw)
}

func TestSQLite_SaveDeletesStaleDecodableRows(t *testing.T) {
	db := openTestSQLite(t)
	ctx := context.Background()
	ids := SQLiteBucket[string](db, Identifiers)

	require.NoError(t, ids.Save(ctx, map[string]string{"Lee, K.": "kl7", "Smith, J": "jsmith1"}))
	require.NoError(t, ids.Save(ctx, map[string]string{"Smith, J": "js2"}))

	got, err := ids.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Smith, J": "js2"}, got)
}
