// Package transcription provides the state machine for one remote
// recognition round over a completed recording's artifact.
package transcription

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"voice-message-pipeline/internal/recognition"
)

// State represents the lifecycle state of a transcription attempt.
type State int

const (
	// StatePending - created, submission not yet begun.
	StatePending State = iota
	// StateUploading - artifact payload being sent to the provider.
	StateUploading
	// StateProcessing - payload sent, awaiting/parsing the result.
	StateProcessing
	// StateCompleted - recognized text populated. Terminal.
	StateCompleted
	// StateFailed - typed error recorded. Re-enterable to PENDING only
	// via explicit user retry when the error is retriable.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateUploading:
		return "UPLOADING"
	case StateProcessing:
		return "PROCESSING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true for completed, and for failed with a
// non-retriable error; failed-retriable awaits a possible manual retry.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Errors for invalid attempt transitions.
var (
	ErrAttemptCompleted  = errors.New("attempt already completed")
	ErrInvalidTransition = errors.New("invalid attempt state transition")
	ErrNotRetriable      = errors.New("attempt error is not retriable")
	ErrNotFailed         = errors.New("attempt is not in failed state")
)

// Attempt is one recognition round for a session's artifact. Manual retry
// re-enters the same attempt rather than creating a new one, so the retry
// counter and artifact reference survive across rounds.
type Attempt struct {
	mu sync.RWMutex

	id        string
	sessionID string
	provider  string
	language  string

	state      State
	text       string
	confidence float64
	taskID     string

	requestedAt time.Time
	completedAt time.Time

	retryCount int
	lastErr    *recognition.Error
}

// NewAttempt creates an attempt in PENDING state for the given session.
func NewAttempt(sessionID, provider, language string) *Attempt {
	return &Attempt{
		id:        fmt.Sprintf("att-%d-%s", time.Now().UnixMilli(), uuid.NewString()[:8]),
		sessionID: sessionID,
		provider:  provider,
		language:  language,
		state:     StatePending,
	}
}

// ID returns the attempt id.
func (a *Attempt) ID() string {
	return a.id
}

// SessionID returns the owning recording session's id.
func (a *Attempt) SessionID() string {
	return a.sessionID
}

// Provider returns the recognition provider name.
func (a *Attempt) Provider() string {
	return a.provider
}

// Language returns the fixed language tag.
func (a *Attempt) Language() string {
	return a.language
}

// State returns the current state.
func (a *Attempt) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Text returns the recognized text, empty until completion.
func (a *Attempt) Text() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.text
}

// Confidence returns the provider confidence score, if any.
func (a *Attempt) Confidence() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.confidence
}

// RetryCount returns the number of manual retries performed. It only
// increases.
func (a *Attempt) RetryCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.retryCount
}

// ProcessingTime returns the elapsed time between submission and
// completion of the last round.
func (a *Attempt) ProcessingTime() time.Duration {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.requestedAt.IsZero() || a.completedAt.IsZero() {
		return 0
	}
	return a.completedAt.Sub(a.requestedAt)
}

// Err returns the typed error of the last failed round, or nil.
func (a *Attempt) Err() *recognition.Error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastErr
}

// Retriable reports whether the attempt failed with a retriable error.
func (a *Attempt) Retriable() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state == StateFailed && a.lastErr != nil && a.lastErr.Retriable
}

// BeginUpload transitions pending → uploading. The caller performs the
// connectivity check first; uploading is never entered without it.
func (a *Attempt) BeginUpload(now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StatePending {
		return fmt.Errorf("%w: %v → UPLOADING", ErrInvalidTransition, a.state)
	}
	a.state = StateUploading
	a.requestedAt = now
	return nil
}

// MarkProcessing transitions uploading → processing once the payload has
// been fully sent.
func (a *Attempt) MarkProcessing() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateUploading {
		return fmt.Errorf("%w: %v → PROCESSING", ErrInvalidTransition, a.state)
	}
	a.state = StateProcessing
	return nil
}

// Complete transitions processing → completed with the recognized text.
func (a *Attempt) Complete(text string, confidence float64, taskID string, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateProcessing {
		return fmt.Errorf("%w: %v → COMPLETED", ErrInvalidTransition, a.state)
	}
	a.state = StateCompleted
	a.text = text
	a.confidence = confidence
	a.taskID = taskID
	a.completedAt = now
	a.lastErr = nil
	return nil
}

// Fail transitions pending/uploading/processing → failed with a typed
// error.
func (a *Attempt) Fail(rerr *recognition.Error, now time.Time) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch a.state {
	case StatePending, StateUploading, StateProcessing:
		a.state = StateFailed
		a.lastErr = rerr
		a.completedAt = now
		return nil
	case StateCompleted:
		return ErrAttemptCompleted
	default:
		return fmt.Errorf("%w: %v → FAILED", ErrInvalidTransition, a.state)
	}
}

// Retry re-enters pending from failed on explicit user action. Only
// retriable failures may re-enter; the retry counter increments by
// exactly one. Manual retries are unbounded by design.
func (a *Attempt) Retry() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state != StateFailed {
		return ErrNotFailed
	}
	if a.lastErr == nil || !a.lastErr.Retriable {
		return ErrNotRetriable
	}
	a.state = StatePending
	a.retryCount++
	a.completedAt = time.Time{}
	return nil
}
