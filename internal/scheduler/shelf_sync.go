package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/database/books"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/settingsstore"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/syncer"
)

// ShelfSyncScheduler periodically re-runs the initial progress sync for every
// sync-enabled book, so shelf progress stays fresh for books that are not
// currently open in a reader session.
type ShelfSyncScheduler struct {
	books         *books.Repository
	settingsStore *settingsstore.SettingsStore
	coordinator   *syncer.Coordinator

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	cancelFunc context.CancelFunc
}

// NewShelfSyncScheduler creates a new scheduler instance
func NewShelfSyncScheduler(booksRepo *books.Repository, settingsStore *settingsstore.SettingsStore, coordinator *syncer.Coordinator) *ShelfSyncScheduler {
	return &ShelfSyncScheduler{
		books:         booksRepo,
		settingsStore: settingsStore,
		coordinator:   coordinator,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// ValidateCronSchedule checks that a schedule parses with the standard
// five-field cron format.
func ValidateCronSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	_, err := parser.Parse(schedule)
	return err
}

// Start begins the scheduler if shelf sync is enabled
func (s *ShelfSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settingsStore.GetShelfSyncConfig()

	if !config.Enabled {
		log.Printf("Shelf sync scheduler: disabled")
		return nil
	}

	if err := ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(config.Schedule, func() {
		s.runSync()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule shelf sync job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Shelf sync scheduler: started with schedule '%s'", config.Schedule)

	// Monitor for context cancellation
	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler
func (s *ShelfSyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// Stop accepting new jobs and wait for running jobs to complete
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Shelf sync scheduler: stopped")
}

// RunNow triggers an immediate pass
func (s *ShelfSyncScheduler) RunNow() {
	go s.runSync()
}

// IsRunning returns whether the scheduler is active
func (s *ShelfSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next pass will occur
func (s *ShelfSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// runSync performs one pass over the shelf. Books currently in a reader
// session are untouched (the coordinator only syncs books it opens here), and
// the pass never runs under the prompt strategy because a background conflict
// would have nobody to answer it.
func (s *ShelfSyncScheduler) runSync() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("Shelf sync: skipped (already syncing)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	config := s.settingsStore.GetShelfSyncConfig()
	if !config.Enabled {
		log.Printf("Shelf sync: skipped (disabled)")
		return
	}

	strategy := s.settingsStore.SyncStrategy()
	if strategy == syncer.StrategyDisabled || strategy == syncer.StrategyPrompt {
		log.Printf("Shelf sync: skipped (strategy %s)", strategy)
		return
	}

	startTime := time.Now()
	log.Printf("Shelf sync: starting pass")

	booksToSync, err := s.books.ListSyncEnabled()
	if err != nil {
		log.Printf("Shelf sync: failed to list books: %v", err)
		s.settingsStore.RecordShelfSyncResult(startTime.UTC().Format(time.RFC3339), "failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	synced := 0
	failed := 0
	for _, book := range booksToSync {
		if ctx.Err() != nil {
			break
		}
		if s.coordinator.State(book.ID) != syncer.StateIdle {
			// Open in a reader session; leave it alone.
			continue
		}

		s.coordinator.Initialize(book.ID)
		s.coordinator.PerformInitialSync(ctx, book.ID)
		// A seed push may be sitting in the debounce queue; send it before
		// the session goes away.
		s.coordinator.FlushProgress(book.ID)
		if s.coordinator.State(book.ID) == syncer.StateError {
			failed++
		} else {
			synced++
		}
		s.coordinator.Cleanup(book.ID)
	}

	message := fmt.Sprintf("%d synced, %d failed of %d books in %v", synced, failed, len(booksToSync), time.Since(startTime).Round(time.Millisecond))
	status := "completed"
	if failed > 0 {
		status = "partial"
	}
	s.settingsStore.RecordShelfSyncResult(startTime.UTC().Format(time.RFC3339), status, message)
	log.Printf("Shelf sync: %s", message)
}
