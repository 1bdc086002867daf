package fetch

import (
	"sync"
)

// State is the lifecycle of one fetch session.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Status is an immutable snapshot of a session's progress, safe to read
// while the session is still running.
type Status struct {
	State          State
	FetchedCount   int
	Errors         []error
	PartialFailure bool
}

// Session is the handle for one fetch operation. It is created by
// Orchestrator.Start and owned by the orchestrator until it reaches a
// terminal state; callers poll Status and may request cancellation at any
// time.
type Session struct {
	mu        sync.Mutex
	state     State
	fetched   int
	errs      []error
	partial   bool
	cancelled bool
	done      chan struct{}
}

func newSession() *Session {
	return &Session{
		state: StateRunning,
		done:  make(chan struct{}),
	}
}

// Cancel requests cooperative cancellation. The orchestrator honors it at
// the next batch boundary; at most one in-flight request completes after
// the call.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	s.mu.Unlock()
}

// Status returns a snapshot of the session. The error slice is copied so
// the caller never observes a torn read.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	errs := make([]error, len(s.errs))
	copy(errs, s.errs)
	return Status{
		State:          s.state,
		FetchedCount:   s.fetched,
		Errors:         errs,
		PartialFailure: s.partial,
	}
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) isCancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

func (s *Session) fetchedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetched
}

func (s *Session) addFetched(n int) {
	s.mu.Lock()
	s.fetched += n
	s.mu.Unlock()
}

func (s *Session) recordError(err error) {
	s.mu.Lock()
	s.errs = append(s.errs, err)
	s.mu.Unlock()
}

func (s *Session) errorCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *Session) finish(state State, partial bool) {
	s.mu.Lock()
	if !s.state.Terminal() {
		s.state = state
		s.partial = partial
		close(s.done)
	}
	s.mu.Unlock()
}
