package items

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "catalog.db")

	r, err := OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, r.Add(ctx, NewItem("Benchy", "1", false)))
	_, err = r.MarkVisited(ctx, "Benchy")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	r, err = OpenSQLite(ctx, dsn)
	require.NoError(t, err)
	defer r.Close()

	it, err := r.Get(ctx, "Benchy")
	require.NoError(t, err)
	assert.True(t, it.Visited)
}

func TestSQLiteRepository_Import(t *testing.T) {
	ctx := context.Background()
	r, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.Import(ctx, []Item{
		NewItem("a", "1", true),
		NewItem("b", "2", false),
	}))

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Total: 2, Visited: 1, Unvisited: 1}, c)
}

func TestSQLiteRepository_ImportRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	r, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	defer r.Close()

	_, err = r.db.ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON items
		WHEN NEW.name = 'bad' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	err = r.Import(ctx, []Item{NewItem("good", "1", false), NewItem("bad", "2", false)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add item[bad]")

	c, err := r.Counts(ctx)
	require.NoError(t, err)
	assert.Zero(t, c.Total)
}

func TestSQLiteRepository_ClosedDBErrorsWrapped(t *testing.T) {
	ctx := context.Background()
	r, err := OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	require.NoError(t, r.Close())

	_, err = r.Get(ctx, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get item[x]")

	err = r.Add(ctx, NewItem("x", "1", false))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to add item[x]")

	_, err = r.All(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list items")

	_, err = r.Counts(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to count items")
}

func TestRunMigrations_Error(t *testing.T) {
	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	_, err := OpenSQLite(context.Background(), ":memory:")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}
