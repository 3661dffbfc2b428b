package tablesql

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_NoInputs(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().Build(context.Background())
	assert.ErrorIs(t, err, ErrNoInputs)
}

func TestBuilder_MissingPath(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().AddPath(filepath.Join(t.TempDir(), "absent.csv")).Build(context.Background())
	assert.Error(t, err)
}

func TestBuilder_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, "notes.txt", "not tabular")
	_, err := NewBuilder().AddPath(path).Build(context.Background())
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestBuilder_DuplicateTableNames(t *testing.T) {
	t.Parallel()

	// users.csv and users.tsv both map to the table "users".
	csvPath := writeTestFile(t, "users.csv", "id\n1\n")
	tsvPath := writeTestFile(t, "users.tsv", "id\n1\n")

	_, err := NewBuilder().AddPaths(csvPath, tsvPath).Build(context.Background())
	assert.ErrorIs(t, err, ErrDuplicateTableName)
}

func TestBuilder_DirectoryExpansion(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "users.csv"), []byte("id,name\n1,alice\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.tsv"), []byte("id\tamount\n1\t9.99\n"), 0o600))
	// Unsupported files inside a directory are skipped, not rejected.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.txt"), []byte("ignore me"), 0o600))

	builder, err := NewBuilder().AddPath(dir).Build(context.Background())
	require.NoError(t, err)

	store, err := builder.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.Equal(t, []string{"orders", "users"}, store.TableNames())
}

func TestBuilder_AddFS(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"data/users.csv":  {Data: []byte("id,name\n1,alice\n2,bob\n")},
		"data/skip.txt":   {Data: []byte("not tabular")},
		"data/orders.csv": {Data: []byte("id,total\n1,10\n")},
	}

	builder, err := NewBuilder().AddFS(fsys).Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, builder.Cleanup()) })

	store, err := builder.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	result, err := store.Execute(context.Background(), "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	assert.Equal(t, "2", result.Rows[0][0])

	result, err = store.Execute(context.Background(), "SELECT total FROM orders")
	require.NoError(t, err)
	assert.Equal(t, "10", result.Rows[0][0])
}

func TestBuilder_CleanupRemovesTempFiles(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"users.csv": {Data: []byte("id\n1\n")},
	}

	builder, err := NewBuilder().AddFS(fsys).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, builder.tempFiles, 1)
	tempPath := builder.tempFiles[0]

	require.NoError(t, builder.Cleanup())
	_, err = os.Stat(tempPath)
	assert.True(t, os.IsNotExist(err))

	// Idempotent.
	assert.NoError(t, builder.Cleanup())
}

func TestBuilder_WithConfig(t *testing.T) {
	t.Parallel()

	path := writeTestFile(t, "rows.csv", "n\n1\n2\n3\n4\n5\n")

	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.DefaultRowLimit = 2

	builder, err := NewBuilder().WithConfig(cfg).AddPath(path).Build(context.Background())
	require.NoError(t, err)

	store, err := builder.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	result, err := store.Execute(context.Background(), "SELECT * FROM rows")
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
}

func TestBuilder_OpenWithoutBuild(t *testing.T) {
	t.Parallel()

	_, err := NewBuilder().AddPath("users.csv").Open(context.Background())
	assert.ErrorIs(t, err, ErrNoInputs)
}
