// Package recognition implements the remote speech-recognition client:
// the provider call, the typed error taxonomy, and the automatic retry
// wrapper. Error classification happens here and only here; downstream
// consumers never re-derive it.
package recognition

import (
	"errors"
	"fmt"
)

// Kind is the closed set of recognition error kinds.
type Kind int

const (
	// KindUnknown - unrecognized provider status. Fails safe toward retry.
	KindUnknown Kind = iota
	// KindNetworkUnavailable - no connectivity at submission time.
	KindNetworkUnavailable
	// KindTimeout - client-side abort after the request timeout.
	KindTimeout
	// KindMalformedResponse - response body could not be parsed. Treated
	// as a transient server glitch.
	KindMalformedResponse
	// KindAuth - auth token rejected or expired.
	KindAuth
	// KindRateLimited - provider throttled the request.
	KindRateLimited
	// KindAudioQuality - transient audio-quality rejection.
	KindAudioQuality
	// KindUnsupportedFormat - audio format or sample rate not accepted.
	KindUnsupportedFormat
	// KindAudioTooShort - capture below the provider's duration floor.
	KindAudioTooShort
	// KindAudioTooLong - capture above the provider's duration ceiling.
	KindAudioTooLong
	// KindPayloadTooLarge - request body exceeded the provider's size cap.
	KindPayloadTooLarge
	// KindClientConfig - missing or malformed client configuration.
	KindClientConfig
	// KindServer - provider-side failure.
	KindServer
)

// Code returns the stable error code surfaced to the UI layer.
func (k Kind) Code() string {
	switch k {
	case KindNetworkUnavailable:
		return "NETWORK_UNAVAILABLE"
	case KindTimeout:
		return "TIMEOUT"
	case KindMalformedResponse:
		return "MALFORMED_RESPONSE"
	case KindAuth:
		return "AUTH_FAILED"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindAudioQuality:
		return "AUDIO_QUALITY"
	case KindUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case KindAudioTooShort:
		return "AUDIO_TOO_SHORT"
	case KindAudioTooLong:
		return "AUDIO_TOO_LONG"
	case KindPayloadTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case KindClientConfig:
		return "CLIENT_CONFIG"
	case KindServer:
		return "SERVER_ERROR"
	default:
		return "UNKNOWN"
	}
}

// Error is the single typed error produced by the recognition client.
// UserMessage is localized and shown to the user; Message and TaskID are
// diagnostics retained for support and logging only.
type Error struct {
	Kind        Kind
	Status      int // provider status code; zero for client-synthesized errors
	Message     string
	UserMessage string
	Retriable   bool
	TaskID      string
}

// Error implements the error interface with the diagnostic string.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("recognition: %s (status=%d): %s", e.Kind.Code(), e.Status, e.Message)
	}
	return fmt.Sprintf("recognition: %s: %s", e.Kind.Code(), e.Message)
}

// Code returns the stable error code for this error.
func (e *Error) Code() string {
	return e.Kind.Code()
}

// IsRetriable reports whether err carries a retriable recognition error.
// Non-recognition errors are treated as non-retriable.
func IsRetriable(err error) bool {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Retriable
	}
	return false
}

// AsError extracts the typed recognition error from err, or nil.
func AsError(err error) *Error {
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr
	}
	return nil
}

// NetworkUnavailable synthesizes the client-side error used when the
// connectivity check fails before any network attempt is consumed.
func NetworkUnavailable(msg string) *Error {
	return &Error{
		Kind:        KindNetworkUnavailable,
		Message:     msg,
		UserMessage: "网络不可用，请检查网络连接后重试",
		Retriable:   true,
	}
}

func timeoutError(msg string) *Error {
	return &Error{
		Kind:        KindTimeout,
		Message:     msg,
		UserMessage: "识别超时，请重试",
		Retriable:   true,
	}
}

func malformedResponse(msg string) *Error {
	return &Error{
		Kind:        KindMalformedResponse,
		Message:     msg,
		UserMessage: "服务响应异常，请重试",
		Retriable:   true,
	}
}
