// Package mock provides a simulated capture device for testing and local
// runs without platform audio hardware. It produces deterministic PCM
// output sized to the elapsed capture time.
package mock

import (
	"context"
	"os"
	"sync"
	"time"

	"voice-message-pipeline/internal/capture"
)

// Device implements capture.Device with scripted behavior.
type Device struct {
	// PrepareErr, StartErr, StopErr are injected failures.
	PrepareErr error
	StartErr   error
	StopErr    error
	// BusyOnFirstPrepare makes the first Prepare return capture.ErrBusy,
	// simulating a leftover capture from a prior session.
	BusyOnFirstPrepare bool
	// FixedLevel is the level reported while capturing.
	FixedLevel float64
	// Clock is injectable for testing; defaults to time.Now.
	Clock func() time.Time

	mu          sync.Mutex
	path        string
	params      capture.Params
	capturing   bool
	prepared    bool
	startedAt   time.Time
	prepareSeen int
	abortCalls  int
}

// New creates a mock device.
func New() *Device {
	return &Device{
		FixedLevel: 0.5,
		Clock:      time.Now,
	}
}

// Prepare initializes the simulated device.
func (d *Device) Prepare(ctx context.Context, path string, p capture.Params) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prepareSeen++
	if d.BusyOnFirstPrepare && d.prepareSeen == 1 {
		return capture.ErrBusy
	}
	if d.capturing {
		return capture.ErrBusy
	}
	if d.PrepareErr != nil {
		return d.PrepareErr
	}
	d.path = path
	d.params = p
	d.prepared = true
	return nil
}

// Start begins the simulated capture.
func (d *Device) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StartErr != nil {
		return d.StartErr
	}
	d.capturing = true
	d.startedAt = d.Clock()
	return nil
}

// Stop finalizes the capture, writing synthetic PCM bytes proportional to
// the elapsed capture time.
func (d *Device) Stop(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.StopErr != nil {
		d.capturing = false
		return d.StopErr
	}
	if !d.capturing {
		return nil
	}
	d.capturing = false

	elapsed := d.Clock().Sub(d.startedAt)
	n := int(elapsed.Seconds() * float64(d.params.SampleRateHz) * float64(d.params.Channels) * 2)
	if n < 2 {
		n = 2
	}
	return os.WriteFile(d.path, make([]byte, n), 0o644)
}

// Abort discards the capture and removes any partial artifact.
func (d *Device) Abort(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.abortCalls++
	d.capturing = false
	d.prepared = false
	if d.path != "" {
		os.Remove(d.path)
	}
	return nil
}

// Level returns the scripted input level while capturing, zero otherwise.
func (d *Device) Level() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.capturing {
		return 0
	}
	return d.FixedLevel
}

// AbortCalls returns how many times Abort was invoked.
func (d *Device) AbortCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.abortCalls
}

// Capturing reports whether the device is currently capturing.
func (d *Device) Capturing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.capturing
}
