// Package capture defines the interface for audio capture devices.
package capture

import (
	"context"
	"errors"
)

// Params are the fixed capture parameters for a session. They are
// invariant across a deployment.
type Params struct {
	SampleRateHz int
	Channels     int
	BitRate      int
}

// ErrBusy is returned by Prepare when the device reports an existing
// active capture. The caller must abort the prior capture and retry.
var ErrBusy = errors.New("capture device busy")

// Device defines the interface for platform capture backends.
type Device interface {
	// Prepare initializes the device for a capture written to path.
	// Returns ErrBusy if a previous capture is still active.
	Prepare(ctx context.Context, path string, p Params) error

	// Start begins capturing audio.
	Start(ctx context.Context) error

	// Stop finalizes the capture and flushes the artifact file at the
	// prepared path.
	Stop(ctx context.Context) error

	// Abort discards the capture and any partially written artifact.
	// Safe to call in any state.
	Abort(ctx context.Context) error

	// Level returns the instantaneous input level in [0,1] for UI
	// waveform rendering.
	Level() float64
}

// SessionConfigurer is implemented by devices that need one-time
// audio-session setup before any capture and teardown at shutdown. The
// composition root invokes it exactly once per process, never per
// recording session.
type SessionConfigurer interface {
	ConfigureSession(ctx context.Context) error
	TeardownSession(ctx context.Context) error
}
