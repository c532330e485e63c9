// Package syncer keeps a per-book reading position consistent between this
// device and the active KOReader-compatible sync server.
//
// Each open book owns an isolated in-memory session (state machine, conflict
// record, pending push); sessions are keyed by book id, so no state is shared
// across books. Failures during a sync check or a scheduled push set the
// book's state to error and are logged rather than propagated, so one book's
// sync trouble never blocks reading or other books.
package syncer

import (
	"context"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/entities"
	"github.com/Neighborhood-Nerd/everbound-ereader-app-sub001/internal/koreader"
)

// DefaultDebounce is the quiet window before a scheduled push goes out.
const DefaultDebounce = 5 * time.Second

// DefaultTolerance is the relative difference under which two percentages
// count as the same position.
const DefaultTolerance = 0.01

// remoteXPathPrefix is the shape KOReader progress strings take for EPUBs.
const remoteXPathPrefix = "/body/"

// BookStore is the slice of the book repository the engine needs.
type BookStore interface {
	GetBookByID(id uint) (*entities.Book, error)
	UpdateProgress(id uint, percentage float64, status entities.ReadingStatus, pos entities.ProgressPosition) error
}

// ServerSource yields the active sync server, or nil when none is configured.
type ServerSource interface {
	GetActive() (*entities.SyncServer, error)
}

// Settings supplies the live strategy and tolerance.
type Settings interface {
	SyncStrategy() Strategy
	SyncTolerance() float64
}

// ProgressClient is the protocol client surface the coordinator drives.
type ProgressClient interface {
	GetProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book) (*koreader.RemoteProgress, error)
	UpdateProgress(ctx context.Context, server *entities.SyncServer, book *entities.Book, progress string, percentage float64) error
}

// Coordinator owns the per-book sync sessions and orchestrates the
// fingerprinting client and the push scheduler.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[uint]*session

	books    BookStore
	servers  ServerSource
	settings Settings
	client   ProgressClient
	sched    *PushScheduler
}

// NewCoordinator wires a coordinator with the default debounce window.
func NewCoordinator(books BookStore, servers ServerSource, settings Settings, client ProgressClient) *Coordinator {
	return NewCoordinatorWithDebounce(books, servers, settings, client, DefaultDebounce)
}

// NewCoordinatorWithDebounce allows a custom debounce window.
func NewCoordinatorWithDebounce(books BookStore, servers ServerSource, settings Settings, client ProgressClient, debounce time.Duration) *Coordinator {
	c := &Coordinator{
		sessions: make(map[uint]*session),
		books:    books,
		servers:  servers,
		settings: settings,
		client:   client,
	}
	c.sched = NewPushScheduler(debounce, c.executePush)
	return c
}

// Initialize opens a fresh per-book sync session in the idle state.
func (c *Coordinator) Initialize(bookID uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[bookID] = newSession()
}

// State reports the book's current sync state. Books without a session are
// idle.
func (c *Coordinator) State(bookID uint) SyncState {
	if sess := c.lookup(bookID); sess != nil {
		return sess.State()
	}
	return StateIdle
}

// Conflict returns a copy of the book's conflict record, or nil when the book
// is not in conflict.
func (c *Coordinator) Conflict(bookID uint) *ConflictRecord {
	if sess := c.lookup(bookID); sess != nil {
		return sess.Conflict()
	}
	return nil
}

// PerformInitialSync pulls the remote position when a book is opened and
// reconciles it with the local record according to the active strategy.
func (c *Coordinator) PerformInitialSync(ctx context.Context, bookID uint) {
	sess := c.session(bookID)

	server, err := c.servers.GetActive()
	if err != nil {
		log.Printf("sync: failed to load active server for book %d: %v", bookID, err)
		sess.setState(StateError)
		return
	}
	if server == nil {
		return
	}

	strategy := c.settings.SyncStrategy()
	if strategy == StrategyDisabled {
		return
	}

	book, err := c.books.GetBookByID(bookID)
	if err != nil {
		log.Printf("sync: failed to load book %d: %v", bookID, err)
		sess.setState(StateError)
		return
	}
	if book.SyncDisabled() {
		return
	}

	// Send-only devices never pull.
	if strategy == StrategySend {
		sess.setState(StateSynced)
		return
	}

	sess.setState(StateChecking)

	remote, err := c.client.GetProgress(ctx, server, book)
	if err != nil {
		log.Printf("sync: progress fetch failed for book %d: %v", bookID, err)
		sess.setState(StateError)
		return
	}

	if remote == nil || remote.Timestamp == 0 {
		// Never synced before: seed the server with whatever we have.
		sess.setState(StateSynced)
		if strategy != StrategyReceive {
			c.PushProgress(bookID, localProgress(book), book.ProgressPercentage)
		}
		return
	}

	local := book.ProgressPercentage
	remotePct := remote.PercentageValue()
	tolerance := c.settings.SyncTolerance()

	if percentagesEqual(local, remotePct, tolerance) {
		sess.setState(StateSynced)
		return
	}

	remoteIsNewer := remote.Time().After(book.ImportedAt)
	isLocalUnread := local < tolerance
	isRemoteValid := remotePct > 0
	shouldUseRemote := (isLocalUnread || remoteIsNewer) && isRemoteValid

	switch {
	case strategy == StrategyReceive, strategy == StrategySilent && shouldUseRemote:
		if err := c.applyRemote(book, remote.Progress, remotePct); err != nil {
			log.Printf("sync: failed to apply remote progress for book %d: %v", bookID, err)
			sess.setState(StateError)
			return
		}
		sess.setState(StateSynced)
	case strategy == StrategyPrompt:
		sess.setConflict(&ConflictRecord{
			BookID:           bookID,
			LocalPercentage:  local,
			LocalPosition:    localProgress(book),
			RemotePercentage: remotePct,
			RemoteProgress:   remote.Progress,
			RemoteTimestamp:  remote.Time(),
			RemoteDevice:     remote.Device,
		})
	default:
		// Silent with a stale or empty remote: keep local, it will reach the
		// server on the next live push.
		sess.setState(StateSynced)
	}
}

// PushProgress queues a debounced push of the given position. Calls are
// suppressed when sync cannot or must not send: no active server, a
// non-sending strategy, sync disabled for the book, an empty or unchanged
// progress string, or a percentage that would erase remote progress.
func (c *Coordinator) PushProgress(bookID uint, progress string, percentage float64) {
	if progress == "" || percentage <= 0 {
		return
	}

	server, err := c.servers.GetActive()
	if err != nil {
		log.Printf("sync: failed to load active server for book %d: %v", bookID, err)
		return
	}
	if server == nil {
		return
	}

	strategy := c.settings.SyncStrategy()
	if strategy == StrategyDisabled || strategy == StrategyReceive {
		return
	}

	book, err := c.books.GetBookByID(bookID)
	if err != nil {
		log.Printf("sync: failed to load book %d: %v", bookID, err)
		return
	}
	if book.SyncDisabled() {
		return
	}

	sess := c.session(bookID)
	if progress == sess.lastPushedProgress() {
		return
	}

	c.sched.Schedule(bookID, PushPayload{Progress: progress, Percentage: percentage})
}

// FlushProgress sends the book's pending push immediately instead of waiting
// for the debounce timer.
func (c *Coordinator) FlushProgress(bookID uint) {
	c.sched.Flush(bookID)
}

// ResolveConflictWithLocal keeps the local position: any pending push is
// flushed so local wins durably on the server, then the conflict is cleared.
func (c *Coordinator) ResolveConflictWithLocal(bookID uint) {
	c.sched.Flush(bookID)
	if sess := c.lookup(bookID); sess != nil {
		sess.clearConflict(StateSynced)
	}
}

// ResolveConflictWithRemote applies the conflicting remote position to the
// local record and clears the conflict.
func (c *Coordinator) ResolveConflictWithRemote(bookID uint) error {
	sess := c.lookup(bookID)
	if sess == nil {
		return nil
	}
	conflict := sess.Conflict()
	if conflict == nil {
		return nil
	}

	book, err := c.books.GetBookByID(bookID)
	if err != nil {
		return err
	}
	if err := c.applyRemote(book, conflict.RemoteProgress, conflict.RemotePercentage); err != nil {
		sess.setState(StateError)
		return err
	}
	sess.clearConflict(StateSynced)
	return nil
}

// Cleanup cancels (without flushing) any pending push and drops the book's
// session. Callers that need the trailing edit persisted must call
// FlushProgress first.
func (c *Coordinator) Cleanup(bookID uint) {
	c.sched.Cancel(bookID)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, bookID)
}

// executePush is the scheduler callback: it performs the network call and
// records the outcome on the session. No automatic retry; the next live
// progress update tries again.
func (c *Coordinator) executePush(bookID uint, payload PushPayload) {
	sess := c.session(bookID)

	server, err := c.servers.GetActive()
	if err != nil || server == nil {
		if err != nil {
			log.Printf("sync: failed to load active server for book %d: %v", bookID, err)
			sess.setState(StateError)
		}
		return
	}

	book, err := c.books.GetBookByID(bookID)
	if err != nil {
		log.Printf("sync: failed to load book %d: %v", bookID, err)
		sess.setState(StateError)
		return
	}

	if err := c.client.UpdateProgress(context.Background(), server, book, payload.Progress, payload.Percentage); err != nil {
		log.Printf("sync: push failed for book %d: %v", bookID, err)
		sess.setState(StateError)
		return
	}

	sess.markPushed(payload.Progress)
}

// applyRemote writes the remote position to the book record. A remote record
// that looks empty (percentage <= 0) is never applied, so it cannot reset a
// book. The remote side never produces a CFI: the CFI column is cleared and
// the position only lands in the XPath column when it has a recognizable
// shape.
func (c *Coordinator) applyRemote(book *entities.Book, progress string, percentage float64) error {
	if percentage <= 0 {
		return nil
	}

	pos := entities.ProgressPosition{}
	if isRemotePosition(progress) {
		p := progress
		pos.XPath = &p
	}

	status := entities.ReadingStatusReading
	if percentage >= 1.0 {
		status = entities.ReadingStatusFinished
	}

	return c.books.UpdateProgress(book.ID, percentage, status, pos)
}

func (c *Coordinator) session(bookID uint) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	sess, ok := c.sessions[bookID]
	if !ok {
		sess = newSession()
		c.sessions[bookID] = sess
	}
	return sess
}

func (c *Coordinator) lookup(bookID uint) *session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[bookID]
}

// localProgress picks the progress string a push should carry: the
// protocol-compatible XPath when we have one, else the CFI.
func localProgress(book *entities.Book) string {
	if book.LastReadXPath != nil && *book.LastReadXPath != "" {
		return *book.LastReadXPath
	}
	if book.LastReadCFI != nil && *book.LastReadCFI != "" {
		return *book.LastReadCFI
	}
	return ""
}

// percentagesEqual compares two percentages by symmetric relative difference,
// falling back to the absolute difference when the average is zero.
func percentagesEqual(local, remote, tolerance float64) bool {
	diff := math.Abs(local - remote)
	avg := (local + remote) / 2
	if avg == 0 {
		return diff < tolerance
	}
	return diff/avg < tolerance
}

// isRemotePosition accepts the shapes a KOReader peer produces: an xpointer
// into the document body, or a bare page number.
func isRemotePosition(progress string) bool {
	if strings.HasPrefix(progress, remoteXPathPrefix) {
		return true
	}
	_, err := strconv.ParseUint(progress, 10, 64)
	return err == nil
}
