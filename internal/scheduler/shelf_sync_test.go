package scheduler

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/books"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/syncservers"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/koreader"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/settingsstore"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

type stubProgressClient struct {
	mu       sync.Mutex
	remote   *koreader.RemoteProgress
	getCalls int
}

func (s *stubProgressClient) GetProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book) (*koreader.RemoteProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	return s.remote, nil
}

func (s *stubProgressClient) UpdateProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book, progress string, percentage float64) error {
	return nil
}

func (s *stubProgressClient) getCallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getCalls
}

type shelfFixture struct {
	db        *database.Database
	books     *books.Repository
	store     *settingsstore.SettingsStore
	client    *stubProgressClient
	scheduler *ShelfSyncScheduler
}

func newShelfFixture(t *testing.T) *shelfFixture {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	booksRepo := books.NewRepository(db.DB)
	serversRepo := syncservers.NewRepository(db.DB)
	store := settingsstore.New(db)
	client := &stubProgressClient{}
	coordinator := syncer.NewCoordinatorWithDebounce(booksRepo, serversRepo, store, client, time.Hour)

	require.NoError(t, serversRepo.Create(&entities.SyncServer{
		URL:      "http://sync.local",
		Username: "alice",
		Password: "secret",
		IsActive: true,
	}))

	return &shelfFixture{
		db:        db,
		books:     booksRepo,
		store:     store,
		client:    client,
		scheduler: NewShelfSyncScheduler(booksRepo, store, coordinator),
	}
}

func TestValidateCronSchedule(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule("0 * * * *"))
	assert.NoError(t, ValidateCronSchedule("*/15 2 * * 1"))
	assert.Error(t, ValidateCronSchedule("not a schedule"))
	assert.Error(t, ValidateCronSchedule("* * * * * *")) // six fields
}

func TestRunSync_SkipsWhenDisabled(t *testing.T) {
	f := newShelfFixture(t)
	require.NoError(t, f.store.SetSyncStrategy("silent"))

	f.scheduler.runSync()

	assert.Equal(t, 0, f.client.getCallCount())
	_, err := f.db.GetSetting(entities.SettingKeyShelfSyncLastStatus)
	assert.Error(t, err, "no pass should have been recorded")
}

func TestRunSync_SkipsUnderPromptStrategy(t *testing.T) {
	f := newShelfFixture(t)
	require.NoError(t, f.store.SetShelfSyncEnabled(true))
	// Default strategy is prompt: a background pass would raise conflicts
	// nobody can answer.

	f.scheduler.runSync()

	assert.Equal(t, 0, f.client.getCallCount())
}

func TestRunSync_AppliesRemoteProgress(t *testing.T) {
	f := newShelfFixture(t)
	require.NoError(t, f.store.SetShelfSyncEnabled(true))
	require.NoError(t, f.store.SetSyncStrategy("silent"))

	off := false
	require.NoError(t, f.db.DB.Create(&entities.Book{
		Title:      "Synced",
		ImportedAt: time.Now().Add(-24 * time.Hour),
	}).Error)
	require.NoError(t, f.db.DB.Create(&entities.Book{
		Title:       "Opted out",
		SyncEnabled: &off,
	}).Error)

	pct := 0.60
	f.client.remote = &koreader.RemoteProgress{
		Progress:   "/body/DocFragment[6]/body/p[1]",
		Percentage: &pct,
		Timestamp:  time.Now().Unix(),
	}

	f.scheduler.runSync()

	// Only the eligible book was checked.
	assert.Equal(t, 1, f.client.getCallCount())

	book, err := f.books.GetBookByID(1)
	require.NoError(t, err)
	assert.InDelta(t, 0.60, book.ProgressPercentage, 1e-9)

	status, err := f.db.GetSetting(entities.SettingKeyShelfSyncLastStatus)
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Value)

	message, err := f.db.GetSetting(entities.SettingKeyShelfSyncLastMessage)
	require.NoError(t, err)
	assert.Contains(t, message.Value, "1 synced")
}

func TestStart_StaysStoppedWhenDisabled(t *testing.T) {
	f := newShelfFixture(t)

	require.NoError(t, f.scheduler.Start(context.Background()))
	assert.False(t, f.scheduler.IsRunning())
	assert.Nil(t, f.scheduler.GetNextRunTime())
}

func TestStartAndStop(t *testing.T) {
	f := newShelfFixture(t)
	require.NoError(t, f.store.SetShelfSyncEnabled(true))

	require.NoError(t, f.scheduler.Start(context.Background()))
	assert.True(t, f.scheduler.IsRunning())
	require.NotNil(t, f.scheduler.GetNextRunTime())

	f.scheduler.Stop()
	assert.False(t, f.scheduler.IsRunning())
}

func TestStart_RejectsBadSchedule(t *testing.T) {
	f := newShelfFixture(t)
	require.NoError(t, f.store.SetShelfSyncEnabled(true))
	require.NoError(t, f.store.SetShelfSyncSchedule("every now and then"))

	assert.Error(t, f.scheduler.Start(context.Background()))
}
