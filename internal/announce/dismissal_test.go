package announce

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDismissals_PersistAndPrune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dismissals.json")
	store := NewFileDismissals(path, 24*time.Hour)
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.Dismiss("a", t0))
	require.NoError(t, store.Dismiss("b", t0.Add(20*time.Hour)))

	reopened := NewFileDismissals(path, 24*time.Hour)
	active, err := reopened.Active(t0.Add(23 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "b": true}, active)

	active, err = reopened.Active(t0.Add(25 * time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b": true}, active)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"a"`, "expired entries are pruned from disk")
}

func TestFileDismissals_RedismissRefreshes(t *testing.T) {
	store := NewFileDismissals(filepath.Join(t.TempDir(), "d.json"), time.Hour)
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, store.Dismiss("a", t0))
	require.NoError(t, store.Dismiss("a", t0.Add(50*time.Minute)))

	active, err := store.Active(t0.Add(90 * time.Minute))
	require.NoError(t, err)
	assert.True(t, active["a"])
}

func TestFileDismissals_MissingOrCorruptFile(t *testing.T) {
	dir := t.TempDir()
	missing := NewFileDismissals(filepath.Join(dir, "none.json"), 0)
	active, err := missing.Active(time.Now())
	require.NoError(t, err)
	assert.Empty(t, active)

	corruptPath := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corruptPath, []byte("{not json"), 0o644))
	active, err = NewFileDismissals(corruptPath, 0).Active(time.Now())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestMemoryDismissals_Retention(t *testing.T) {
	store := NewMemoryDismissals(0)
	t0 := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, store.Dismiss("x", t0))

	active, err := store.Active(t0.Add(DefaultRetention - time.Second))
	require.NoError(t, err)
	assert.True(t, active["x"])

	active, err = store.Active(t0.Add(DefaultRetention))
	require.NoError(t, err)
	assert.False(t, active["x"])
}
