// Package recording provides the capture-session state machine and the
// recorder that drives it.
package recording

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-message-pipeline/internal/capture"
)

// State represents the lifecycle state of a recording session.
type State int

const (
	// StateIdle - session created, capture not yet requested.
	StateIdle State = iota
	// StatePreparing - permission resolved, device initializing.
	StatePreparing
	// StateRecording - capture in progress.
	StateRecording
	// StateStopping - stop requested, finalizing the artifact.
	StateStopping
	// StateCompleted - artifact persisted. Terminal.
	StateCompleted
	// StateCancelled - capture discarded (too short or abandoned). Terminal.
	StateCancelled
	// StateFailed - permission, device, or capture error. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePreparing:
		return "PREPARING"
	case StateRecording:
		return "RECORDING"
	case StateStopping:
		return "STOPPING"
	case StateCompleted:
		return "COMPLETED"
	case StateCancelled:
		return "CANCELLED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if no further transition is defined for the state.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// Error codes for terminal session failures.
const (
	CodeMicrophoneDenied   = "MICROPHONE_DENIED"
	CodeDeviceNotSupported = "DEVICE_NOT_SUPPORTED"
	CodeRecordingFailed    = "RECORDING_FAILED"
)

// ErrorRecord captures the terminal error of a failed session.
type ErrorRecord struct {
	Code      string
	Message   string
	Timestamp time.Time
}

// Errors for invalid state transitions.
var (
	ErrSessionTerminal   = errors.New("session is in a terminal state")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// Session is one capture attempt. Sessions are single-use: a session
// transitions through its states exactly once and terminal states are
// never re-entered.
type Session struct {
	mu sync.RWMutex

	id     string
	state  State
	params capture.Params

	startedAt time.Time
	stoppedAt time.Time
	// startMono anchors duration measurement; time.Time carries a
	// monotonic reading, so Sub is immune to wall-clock adjustments.
	startMono time.Time
	duration  time.Duration

	artifactPath string
	byteSize     int64

	// stopRequested guards the recording→stopping transition so a manual
	// stop racing the max-duration auto-stop fires exactly once.
	stopRequested bool

	errRecord *ErrorRecord
}

// NewSession creates a session in IDLE state with a unique id.
func NewSession(params capture.Params) *Session {
	return &Session{
		id:     fmt.Sprintf("rec-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		state:  StateIdle,
		params: params,
	}
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Params returns the fixed capture parameters.
func (s *Session) Params() capture.Params {
	return s.params
}

// Duration returns the measured capture duration. Only meaningful once
// the session is terminal.
func (s *Session) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.duration
}

// ArtifactPath returns the artifact location. Set if and only if the
// session completed.
func (s *Session) ArtifactPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifactPath
}

// ByteSize returns the artifact size, filled in after capture.
func (s *Session) ByteSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byteSize
}

// StartedAt returns the capture start timestamp.
func (s *Session) StartedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.startedAt
}

// Err returns the terminal error record, or nil.
func (s *Session) Err() *ErrorRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errRecord
}

// beginPrepare transitions idle → preparing.
func (s *Session) beginPrepare() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: %v → PREPARING", ErrInvalidTransition, s.state)
	}
	s.state = StatePreparing
	return nil
}

// beginRecording transitions preparing → recording and anchors the
// duration clock.
func (s *Session) beginRecording(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePreparing {
		return fmt.Errorf("%w: %v → RECORDING", ErrInvalidTransition, s.state)
	}
	s.state = StateRecording
	s.startedAt = now
	s.startMono = now
	return nil
}

// requestStop transitions recording → stopping. Returns false if the
// session is not recording or a stop was already requested, so exactly
// one stop fires even when the auto-stop and a manual stop race.
func (s *Session) requestStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording || s.stopRequested {
		return false
	}
	s.stopRequested = true
	s.state = StateStopping
	return true
}

// elapsedSince returns the monotonic duration since recording began.
func (s *Session) elapsedSince(now time.Time) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.startMono.IsZero() {
		return 0
	}
	return now.Sub(s.startMono)
}

// complete transitions stopping → completed and records the artifact.
func (s *Session) complete(path string, size int64, d time.Duration, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopping {
		return fmt.Errorf("%w: %v → COMPLETED", ErrInvalidTransition, s.state)
	}
	s.state = StateCompleted
	s.artifactPath = path
	s.byteSize = size
	s.duration = d
	s.stoppedAt = now
	return nil
}

// cancel transitions any non-terminal state → cancelled. Used for
// too-short captures and user abandonment.
func (s *Session) cancel(d time.Duration, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return ErrSessionTerminal
	}
	s.state = StateCancelled
	s.duration = d
	s.stoppedAt = now
	return nil
}

// fail transitions any non-terminal state → failed with an error record.
func (s *Session) fail(code, message string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsTerminal() {
		return ErrSessionTerminal
	}
	s.state = StateFailed
	s.stoppedAt = now
	s.errRecord = &ErrorRecord{
		Code:      code,
		Message:   message,
		Timestamp: now,
	}
	return nil
}
