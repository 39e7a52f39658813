// Package models defines the result event structures handed to downstream consumers.
package models

// VoiceMessageCompleted carries the final transcript for a voice message.
// It holds no reference to the raw audio, which is deleted before this
// event is emitted.
type VoiceMessageCompleted struct {
	EventType           string  `json:"eventType"`
	SessionID           string  `json:"sessionId"`
	Text                string  `json:"text"`
	Confidence          float64 `json:"confidence,omitempty"`
	RecordingDurationMs int64   `json:"recordingDurationMs"`
	TranscriptionTimeMs int64   `json:"transcriptionTimeMs"`
	Timestamp           int64   `json:"timestamp"`
}

// VoiceMessageFailed carries a terminal transcription failure.
// Retriable indicates whether the UI should offer a retry action or
// suggest re-recording.
type VoiceMessageFailed struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	Code        string `json:"code"`
	UserMessage string `json:"userMessage"`
	Retriable   bool   `json:"retriable"`
	RetryCount  int    `json:"retryCount"`
	Timestamp   int64  `json:"timestamp"`
}
