//go:build integration
// +build integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Atypics3/About-My-Professor/internal/types"
)

func setupTestPostgres(t *testing.T) *PostgresDB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}
	db, err := ConnectPostgres(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPostgres_SaveLoad_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	db := setupTestPostgres(t)
	ctx := context.Background()
	s := PostgresBucket[*string](db, Bucket{Name: "test_prof_link"})

	require.NoError(t, s.Save(ctx, types.ResolutionStore{
		"Lee, K.": types.StringPtr("https://dir.example/cd_detail?uid=kl7"),
		"Doe, A.": nil,
	}))
	got, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got["Doe, A."])

	require.NoError(t, s.Save(ctx, types.ResolutionStore{"Doe, A.": nil}))
	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, got, 1, "stale keys are deleted")

	require.NoError(t, s.Save(ctx, nil))
}

func TestPostgres_UndecodableRowIsKept_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	db := setupTestPostgres(t)
	ctx := context.Background()
	b := Bucket{Name: "test_prof_uid"}
	s := PostgresBucket[string](db, b)

	require.NoError(t, s.Save(ctx, map[string]string{"Lee, K.": "kl7"}))
	_, err := db.pool.Exec(ctx,
		`INSERT INTO kv_entries (bucket, name, value) VALUES ($1, $2, '123'::jsonb)`, b.Name, "Broken, B.")
	require.NoError(t, err)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"Lee, K.": "kl7"}, got)

	require.NoError(t, s.Save(ctx, map[string]string{"Lee, K.": "kl7", "Doe, A.": "adoe"}))

	var count int
	require.NoError(t, db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM kv_entries WHERE bucket = $1`, b.Name).Scan(&count))
	assert.Equal(t, 3, count)

	_, err = db.pool.Exec(ctx, `DELETE FROM kv_entries WHERE bucket = $1`, b.Name)
	require.NoError(t, err)
}
