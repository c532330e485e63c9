package syncer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// PushPayload is the most recent progress awaiting a debounced push.
type PushPayload struct {
	Progress   string
	Percentage float64
}

// PushFunc executes a push for one book. The scheduler never retries; the
// callee owns error handling.
type PushFunc func(bookID uint, payload PushPayload)

// PushScheduler coalesces rapid progress updates into at most one push per
// quiet window per book (trailing-edge debounce). Each Schedule call replaces
// the book's pending payload and restarts its timer, so only the last value
// within a burst is ever sent.
type PushScheduler struct {
	mu sync.Mutex

	clock clockwork.Clock
	delay time.Duration
	push  PushFunc

	timers  map[uint]clockwork.Timer
	pending map[uint]PushPayload
}

// NewPushScheduler creates a scheduler with the real clock.
func NewPushScheduler(delay time.Duration, push PushFunc) *PushScheduler {
	return newPushScheduler(clockwork.NewRealClock(), delay, push)
}

func newPushScheduler(clock clockwork.Clock, delay time.Duration, push PushFunc) *PushScheduler {
	return &PushScheduler{
		clock:   clock,
		delay:   delay,
		push:    push,
		timers:  make(map[uint]clockwork.Timer),
		pending: make(map[uint]PushPayload),
	}
}

// Schedule records the payload as pending for the book and restarts its
// debounce timer.
func (s *PushScheduler) Schedule(bookID uint, payload PushPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[bookID]; ok {
		timer.Stop()
	}
	s.pending[bookID] = payload
	s.timers[bookID] = s.clock.AfterFunc(s.delay, func() {
		s.fire(bookID)
	})
}

// Flush executes the pending payload immediately, synchronously with respect
// to the caller.
func (s *PushScheduler) Flush(bookID uint) {
	if payload, ok := s.take(bookID); ok {
		s.push(bookID, payload)
	}
}

// Cancel discards the pending payload without executing it. Cancellation is
// silent: no completion fires for the dropped value.
func (s *PushScheduler) Cancel(bookID uint) {
	s.take(bookID)
}

func (s *PushScheduler) fire(bookID uint) {
	if payload, ok := s.take(bookID); ok {
		s.push(bookID, payload)
	}
}

// take atomically claims the pending payload and stops the timer. Claiming
// under the lock is what keeps an expiring timer and an explicit Flush from
// both sending the same payload.
func (s *PushScheduler) take(bookID uint) (PushPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timer, ok := s.timers[bookID]; ok {
		timer.Stop()
		delete(s.timers, bookID)
	}
	payload, ok := s.pending[bookID]
	if ok {
		delete(s.pending, bookID)
	}
	return payload, ok
}
