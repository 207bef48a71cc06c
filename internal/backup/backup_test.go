package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, retention int) (*Manager, string) {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "data", "estoque.db")
	require.NoError(t, os.MkdirAll(filepath.Dir(dbPath), 0o755))
	m := NewManager(filepath.Join(dir, "backup"), retention)
	clock := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}
	return m, dbPath
}

func TestSnapshotMissingDatabase(t *testing.T) {
	m, dbPath := newTestManager(t, 5)
	target, err := m.Snapshot(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "", target)
	files, err := m.List(dbPath)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestSnapshotCopiesFile(t *testing.T) {
	m, dbPath := newTestManager(t, 5)
	require.NoError(t, os.WriteFile(dbPath, []byte("sqlite-bytes"), 0o644))

	target, err := m.Snapshot(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "estoque_20240501_080100.bak", filepath.Base(target))
	b, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "sqlite-bytes", string(b))
}

func TestSnapshotRotation(t *testing.T) {
	m, dbPath := newTestManager(t, 3)
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	var created []string
	for i := 0; i < 5; i++ {
		target, err := m.Snapshot(dbPath)
		require.NoError(t, err)
		created = append(created, target)
	}
	files, err := m.List(dbPath)
	require.NoError(t, err)
	assert.Equal(t, created[2:], files)
}

func TestSnapshotSameSecond(t *testing.T) {
	m, dbPath := newTestManager(t, 5)
	fixed := time.Date(2024, 5, 1, 8, 0, 0, 42, time.UTC)
	m.now = func() time.Time { return fixed }
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	first, err := m.Snapshot(dbPath)
	require.NoError(t, err)
	second, err := m.Snapshot(dbPath)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestListIgnoresForeignFiles(t *testing.T) {
	m, dbPath := newTestManager(t, 1)
	require.NoError(t, os.MkdirAll(m.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "other_20240101_000000.bak"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "estoque_notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	_, err := m.Snapshot(dbPath)
	require.NoError(t, err)
	_, err = m.Snapshot(dbPath)
	require.NoError(t, err)

	files, err := m.List(dbPath)
	require.NoError(t, err)
	assert.Len(t, files, 1)
	_, err = os.Stat(filepath.Join(m.Dir, "other_20240101_000000.bak"))
	assert.NoError(t, err)
}

func TestListIgnoresBackupsOfSimilarlyNamedDatabase(t *testing.T) {
	m, dbPath := newTestManager(t, 1)
	require.NoError(t, os.MkdirAll(m.Dir, 0o755))
	foreign := []string{
		"estoque_old_20240101_000000.bak",
		"estoque_old_20240101_000000_000000042.bak",
		"estoque_20240101_000000_x.bak",
		"estoque_2024.bak",
	}
	for _, name := range foreign {
		require.NoError(t, os.WriteFile(filepath.Join(m.Dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir, "estoque_20240101_000000_000000042.bak"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(dbPath, []byte("x"), 0o644))

	files, err := m.List(dbPath)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "estoque_20240101_000000_000000042.bak", filepath.Base(files[0]))

	_, err = m.Snapshot(dbPath)
	require.NoError(t, err)
	_, err = m.Snapshot(dbPath)
	require.NoError(t, err)
	for _, name := range foreign {
		_, err := os.Stat(filepath.Join(m.Dir, name))
		assert.NoError(t, err, name)
	}
	files, err = m.List(dbPath)
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestNewManagerDefaultRetention(t *testing.T) {
	assert.Equal(t, DefaultRetention, NewManager("x", 0).Retention)
}
