package syncer

import (
	"sync"
	"time"
)

// SyncState is the per-book sync status. Exactly one state holds per book at
// any instant; idle is both the initial and the post-cleanup state.
type SyncState string

const (
	StateIdle     SyncState = "idle"
	StateChecking SyncState = "checking"
	StateSynced   SyncState = "synced"
	StateError    SyncState = "error"
	StateConflict SyncState = "conflict"
)

// ConflictRecord captures both sides of a detected conflict while the book
// sits in StateConflict.
type ConflictRecord struct {
	BookID uint `json:"book_id"`

	LocalPercentage float64 `json:"local_percentage"`
	LocalPosition   string  `json:"local_position,omitempty"`

	RemotePercentage float64   `json:"remote_percentage"`
	RemoteProgress   string    `json:"remote_progress"`
	RemoteTimestamp  time.Time `json:"remote_timestamp"`
	RemoteDevice     string    `json:"remote_device,omitempty"`
}

// session holds the ephemeral per-book sync state. Sessions live from the
// engine's Initialize call until Cleanup; nothing here is persisted.
type session struct {
	mu sync.Mutex

	state    SyncState
	conflict *ConflictRecord

	// lastPushed suppresses redundant pushes of an unchanged progress string.
	lastPushed string
}

func newSession() *session {
	return &session{state: StateIdle}
}

func (s *session) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) setState(state SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

func (s *session) Conflict() *ConflictRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflict == nil {
		return nil
	}
	c := *s.conflict
	return &c
}

func (s *session) setConflict(c *ConflictRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflict = c
	s.state = StateConflict
}

func (s *session) clearConflict(state SyncState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflict = nil
	s.state = state
}

func (s *session) lastPushedProgress() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPushed
}

func (s *session) markPushed(progress string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPushed = progress
	s.state = StateSynced
}
