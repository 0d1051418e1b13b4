package migration

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/omnisync/backend/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add orders table", "add_orders_table"},
		{"Add-Orders-Table", "add_orders_table"},
		{"ADD_ORDERS_TABLE", "add_orders_table"},
		{"add__orders__table", "add_orders_table"},
		{"Add Webhooks 123", "add_webhooks_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "add sync cursor", "Track the last pulled order per integration")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, "000001_add_sync_cursor.up.sql", filepath.Base(first.UpPath))
	assert.Equal(t, "000001_add_sync_cursor.down.sql", filepath.Base(first.DownPath))

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "add_sync_cursor")
	assert.Contains(t, string(up), "Track the last pulled order per integration")

	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "Rollback")

	second, err := CreateMigration(dir, "Drop Cursor", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)
	assert.True(t, strings.HasPrefix(filepath.Base(second.UpPath), "000002_drop_cursor"))
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	nested := filepath.Join(t.TempDir(), "nested", "migrations")

	_, err := CreateMigration(nested, "init", "")
	require.NoError(t, err)

	info, err := os.Stat(nested)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestCreateMigration_RejectsEmptyName(t *testing.T) {
	_, err := CreateMigration(t.TempDir(), "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_add_index.up.sql":      {Data: []byte("--")},
		"000010_add_index.down.sql":    {Data: []byte("--")},
		"000002_create_orders.up.sql":  {Data: []byte("--")},
		"000001_init.up.sql":           {Data: []byte("--")},
		"README.md":                    {Data: []byte("docs")},
		"notaversion_thing.up.sql":     {Data: []byte("--")},
		"nested/000003_ignored.up.sql": {Data: []byte("--")},
	}

	list, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []Info{
		{Version: 1, Name: "init"},
		{Version: 2, Name: "create_orders"},
		{Version: 10, Name: "add_index"},
	}, list)
	assert.Equal(t, "000010_add_index", list[2].String())
}

func TestListMigrations_MissingDirectory(t *testing.T) {
	list, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "absent")))
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEmbeddedMigrations(t *testing.T) {
	list, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, list)

	for i, m := range list {
		assert.Equal(t, uint(i+1), m.Version, "versions are contiguous")

		up, err := migrations.FS.ReadFile(m.String() + ".up.sql")
		require.NoError(t, err)
		assert.Contains(t, string(up), "CREATE TABLE")

		down, err := migrations.FS.ReadFile(m.String() + ".down.sql")
		require.NoError(t, err, "every up migration has a down")
		assert.Contains(t, string(down), "DROP TABLE")
	}
}
