package agent

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sunwell/studio/internal/errors"
	"github.com/sunwell/studio/internal/stream"
)

// State is the lifecycle phase of a session.
type State int

const (
	// StateIdle means no session has been started.
	StateIdle State = iota
	// StateStarting means the process is being spawned.
	StateStarting
	// StateRunning means the process is alive and events are flowing.
	StateRunning
	// StateCompleted means a terminal success event arrived.
	StateCompleted
	// StateFailed means the run ended in error.
	StateFailed
	// StateCancelled means the run was stopped by request.
	StateCancelled
)

// String returns the lowercase name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is absorbing: once a session reaches
// a terminal state it never transitions again.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// Status is the final outcome of a session. It is delivered to every
// subscriber after the event channel closes.
type Status struct {
	// SessionID identifies the session this status belongs to.
	SessionID string
	// State is the terminal state the session reached.
	State State
	// Result holds the terminal event, when one arrived. For chat runs
	// this may be the bare result document.
	Result *stream.Event
	// Err describes why the session failed. Nil for Completed and
	// Cancelled sessions.
	Err error
	// NoTerminalEvent is true when the process exited without ever
	// emitting a terminal event.
	NoTerminalEvent bool
	// ParseFailures counts stream lines that could not be classified,
	// including oversized lines that were discarded.
	ParseFailures int
	// ExitCode is the process exit code, or -1 when the process was
	// killed or never exited cleanly.
	ExitCode int
}

// session tracks a single run. State transitions are guarded by mu;
// finish runs at most once regardless of how many paths race to it.
type session struct {
	id     string
	family *stream.Family

	mu    sync.Mutex
	state State

	cancelled  atomic.Bool
	finishOnce sync.Once
	status     Status
	done       chan struct{}
}

func newSession(family *stream.Family) *session {
	return &session{
		id:     uuid.NewString(),
		family: family,
		state:  StateStarting,
		done:   make(chan struct{}),
	}
}

// State returns the current state.
func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// markRunning transitions Starting to Running. It is a no-op once the
// session is terminal or already cancelled.
func (s *session) markRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStarting {
		s.state = StateRunning
	}
}

// finish records the terminal outcome exactly once and releases anyone
// waiting on Done. Later calls are ignored, so the first terminal cause
// wins when teardown paths race.
func (s *session) finish(st Status) {
	s.finishOnce.Do(func() {
		st.SessionID = s.id
		if s.cancelled.Load() {
			st.State = StateCancelled
			st.Err = nil
		}
		s.mu.Lock()
		s.state = st.State
		s.mu.Unlock()
		s.status = st
		close(s.done)
	})
}

// Done is closed when the session reaches a terminal state.
func (s *session) Done() <-chan struct{} {
	return s.done
}

// FinalStatus returns the terminal status. Valid only after Done is closed.
func (s *session) FinalStatus() Status {
	return s.status
}

// failStatus builds a Failed status from an error, classifying it into
// the coded error taxonomy when it is not already coded.
func failStatus(err error, exitCode int) Status {
	if errors.CodeOf(err) == errors.CodeUnknown {
		err = errors.FromError(errors.CodeProcessFailed, err)
	}
	return Status{State: StateFailed, Err: err, ExitCode: exitCode}
}
