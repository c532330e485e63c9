package settingsstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

func newTestStore(t *testing.T) *SettingsStore {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestSyncStrategy(t *testing.T) {
	t.Run("defaults to prompt", func(t *testing.T) {
		store := newTestStore(t)
		assert.Equal(t, syncer.StrategyPrompt, store.SyncStrategy())
	})

	t.Run("environment overrides the default", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_STRATEGY", "silent")
		assert.Equal(t, syncer.StrategySilent, store.SyncStrategy())
	})

	t.Run("database overrides the environment", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_STRATEGY", "silent")
		require.NoError(t, store.SetSyncStrategy("send"))
		assert.Equal(t, syncer.StrategySend, store.SyncStrategy())
	})

	t.Run("invalid environment value falls through", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_STRATEGY", "bidirectional")
		assert.Equal(t, syncer.StrategyPrompt, store.SyncStrategy())
	})

	t.Run("invalid strategy is rejected on write", func(t *testing.T) {
		store := newTestStore(t)
		assert.Error(t, store.SetSyncStrategy("bidirectional"))
	})
}

func TestSyncTolerance(t *testing.T) {
	t.Run("defaults to one percent", func(t *testing.T) {
		store := newTestStore(t)
		assert.InDelta(t, 0.01, store.SyncTolerance(), 1e-9)
	})

	t.Run("environment overrides the default", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_TOLERANCE", "0.05")
		assert.InDelta(t, 0.05, store.SyncTolerance(), 1e-9)
	})

	t.Run("database overrides the environment", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_TOLERANCE", "0.05")
		require.NoError(t, store.SetSyncTolerance(0.02))
		assert.InDelta(t, 0.02, store.SyncTolerance(), 1e-9)
	})

	t.Run("out-of-range values are rejected on write", func(t *testing.T) {
		store := newTestStore(t)
		assert.Error(t, store.SetSyncTolerance(0))
		assert.Error(t, store.SetSyncTolerance(1))
		assert.Error(t, store.SetSyncTolerance(-0.5))
	})

	t.Run("garbage environment value falls through", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SYNC_TOLERANCE", "lots")
		assert.InDelta(t, 0.01, store.SyncTolerance(), 1e-9)
	})
}

func TestShelfSyncConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		store := newTestStore(t)
		cfg := store.GetShelfSyncConfig()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, DefaultShelfSyncSchedule, cfg.Schedule)
	})

	t.Run("stored values win", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.SetShelfSyncEnabled(true))
		require.NoError(t, store.SetShelfSyncSchedule("*/30 * * * *"))

		cfg := store.GetShelfSyncConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "*/30 * * * *", cfg.Schedule)
	})

	t.Run("environment fills in when nothing is stored", func(t *testing.T) {
		store := newTestStore(t)
		t.Setenv("SHELF_SYNC_ENABLED", "1")
		t.Setenv("SHELF_SYNC_SCHEDULE", "15 2 * * *")

		cfg := store.GetShelfSyncConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, "15 2 * * *", cfg.Schedule)
	})
}

func TestRecordShelfSyncResult(t *testing.T) {
	store := newTestStore(t)
	store.RecordShelfSyncResult("2026-08-23T10:00:00Z", "ok", "synced 3 books")

	at, err := store.db.GetSetting("shelf_sync_last_at")
	require.NoError(t, err)
	assert.Equal(t, "2026-08-23T10:00:00Z", at.Value)

	status, err := store.db.GetSetting("shelf_sync_last_status")
	require.NoError(t, err)
	assert.Equal(t, "ok", status.Value)
}
