package transcription

import (
	"errors"
	"testing"
	"time"

	"voice-message-pipeline/internal/recognition"
)

func retriableErr() *recognition.Error {
	return &recognition.Error{
		Kind:        recognition.KindServer,
		Status:      50000000,
		Message:     "internal error",
		UserMessage: "服务暂时不可用，请稍后重试",
		Retriable:   true,
	}
}

func permanentErr() *recognition.Error {
	return &recognition.Error{
		Kind:        recognition.KindAudioTooShort,
		Status:      40270003,
		Message:     "audio too short",
		UserMessage: "录音太短，请重新录制",
		Retriable:   false,
	}
}

func TestAttempt_InitialState(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")

	if a.State() != StatePending {
		t.Errorf("expected StatePending, got %v", a.State())
	}
	if a.ID() == "" {
		t.Error("expected non-empty attempt id")
	}
	if a.SessionID() != "rec-1" {
		t.Errorf("expected session id rec-1, got %s", a.SessionID())
	}
	if a.RetryCount() != 0 {
		t.Errorf("expected retry count 0, got %d", a.RetryCount())
	}
	if a.Text() != "" {
		t.Error("expected empty text before completion")
	}
}

func TestAttempt_HappyPath(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")
	start := time.Now()

	if err := a.BeginUpload(start); err != nil {
		t.Fatalf("BeginUpload: %v", err)
	}
	if a.State() != StateUploading {
		t.Errorf("expected StateUploading, got %v", a.State())
	}

	if err := a.MarkProcessing(); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if a.State() != StateProcessing {
		t.Errorf("expected StateProcessing, got %v", a.State())
	}

	done := start.Add(1200 * time.Millisecond)
	if err := a.Complete("今天天气真不错", 0.92, "task-1", done); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if a.State() != StateCompleted {
		t.Errorf("expected StateCompleted, got %v", a.State())
	}
	if a.Text() != "今天天气真不错" {
		t.Errorf("unexpected text %q", a.Text())
	}
	if a.Confidence() != 0.92 {
		t.Errorf("unexpected confidence %v", a.Confidence())
	}
	if a.ProcessingTime() != 1200*time.Millisecond {
		t.Errorf("unexpected processing time %v", a.ProcessingTime())
	}
	if a.Err() != nil {
		t.Error("expected nil error on completed attempt")
	}
}

func TestAttempt_OrderedTransitions(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")
	now := time.Now()

	// uploading cannot be skipped
	if err := a.MarkProcessing(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if err := a.Complete("x", 0, "", now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	a.BeginUpload(now)
	// pending cannot be re-entered without a retry
	if err := a.BeginUpload(now); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestAttempt_FailAndManualRetry(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")
	now := time.Now()

	a.BeginUpload(now)
	if err := a.Fail(retriableErr(), now); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if a.State() != StateFailed {
		t.Errorf("expected StateFailed, got %v", a.State())
	}
	if !a.Retriable() {
		t.Error("expected attempt to be retriable")
	}

	if err := a.Retry(); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if a.State() != StatePending {
		t.Errorf("expected StatePending after retry, got %v", a.State())
	}
	if a.RetryCount() != 1 {
		t.Errorf("expected retry count 1, got %d", a.RetryCount())
	}

	// Retry counter increases by exactly one per retry
	a.BeginUpload(now)
	a.Fail(retriableErr(), now)
	a.Retry()
	if a.RetryCount() != 2 {
		t.Errorf("expected retry count 2, got %d", a.RetryCount())
	}
}

func TestAttempt_NonRetriableCannotRetry(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")
	now := time.Now()

	a.BeginUpload(now)
	a.Fail(permanentErr(), now)

	if a.Retriable() {
		t.Error("expected non-retriable attempt")
	}
	if err := a.Retry(); !errors.Is(err, ErrNotRetriable) {
		t.Errorf("expected ErrNotRetriable, got %v", err)
	}
	if a.State() != StateFailed {
		t.Errorf("expected state to stay FAILED, got %v", a.State())
	}
	if a.RetryCount() != 0 {
		t.Errorf("expected retry count to stay 0, got %d", a.RetryCount())
	}
}

func TestAttempt_RetryOnlyFromFailed(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")

	if err := a.Retry(); !errors.Is(err, ErrNotFailed) {
		t.Errorf("expected ErrNotFailed from pending, got %v", err)
	}

	now := time.Now()
	a.BeginUpload(now)
	a.MarkProcessing()
	a.Complete("text", 0.9, "", now)
	if err := a.Retry(); !errors.Is(err, ErrNotFailed) {
		t.Errorf("expected ErrNotFailed from completed, got %v", err)
	}
}

func TestAttempt_CompletedIsFinal(t *testing.T) {
	a := NewAttempt("rec-1", "nls", "zh-CN")
	now := time.Now()

	a.BeginUpload(now)
	a.MarkProcessing()
	a.Complete("text", 0.9, "", now)

	if err := a.Fail(retriableErr(), now); !errors.Is(err, ErrAttemptCompleted) {
		t.Errorf("expected ErrAttemptCompleted, got %v", err)
	}
	if a.State() != StateCompleted {
		t.Errorf("expected state to stay COMPLETED, got %v", a.State())
	}
}

func TestAttempt_FailFromPending(t *testing.T) {
	// Connectivity failures fail the attempt before any upload begins
	a := NewAttempt("rec-1", "nls", "zh-CN")
	now := time.Now()

	nerr := &recognition.Error{
		Kind:        recognition.KindNetworkUnavailable,
		Message:     "no internet",
		UserMessage: "网络不可用，请检查网络连接后重试",
		Retriable:   true,
	}
	if err := a.Fail(nerr, now); err != nil {
		t.Fatalf("Fail from pending: %v", err)
	}
	if got := a.Err(); got == nil || got.Kind != recognition.KindNetworkUnavailable {
		t.Errorf("unexpected error record: %+v", got)
	}
}

func TestState_Strings(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StatePending, "PENDING"},
		{StateUploading, "UPLOADING"},
		{StateProcessing, "PROCESSING"},
		{StateCompleted, "COMPLETED"},
		{StateFailed, "FAILED"},
	}
	for _, tt := range tests {
		if tt.state.String() != tt.want {
			t.Errorf("expected %s, got %s", tt.want, tt.state.String())
		}
	}
}
