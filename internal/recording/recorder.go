package recording

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-message-pipeline/internal/audiostore"
	"voice-message-pipeline/internal/capture"
	"voice-message-pipeline/internal/config"
	"voice-message-pipeline/internal/gate"
	"voice-message-pipeline/internal/observability/logging"
	"voice-message-pipeline/internal/observability/metrics"
)

// Recorder errors surfaced to the caller alongside the session's own
// terminal error record.
var (
	ErrNoActiveSession    = errors.New("no active recording session")
	ErrMicrophoneDenied   = errors.New("microphone permission denied")
	ErrDeviceNotSupported = errors.New("capture device initialization failed")
	ErrCaptureFailed      = errors.New("capture failed")
)

// Progress is one sample of the duration+level stream exposed for UI
// waveform rendering.
type Progress struct {
	Elapsed time.Duration
	Level   float64
}

const progressInterval = 100 * time.Millisecond

// Recorder drives the capture device through one session at a time.
// A second Start while a session is active force-terminates the prior
// session; two concurrent captures are never allowed.
type Recorder struct {
	device  capture.Device
	gate    *gate.Gate
	store   *audiostore.Store
	cfg     config.RecordingConfig
	log     zerolog.Logger
	metrics *metrics.Metrics
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time

	mu           sync.Mutex
	session      *Session
	artifact     string
	maxTimer     *time.Timer
	progress     chan Progress
	progressDone chan struct{}
}

// NewRecorder creates a recorder over the given device and store.
func NewRecorder(device capture.Device, g *gate.Gate, store *audiostore.Store, cfg config.RecordingConfig) *Recorder {
	return &Recorder{
		device:  device,
		gate:    g,
		store:   store,
		cfg:     cfg,
		log:     logging.WithComponent("recorder"),
		metrics: metrics.DefaultMetrics,
		clock:   time.Now,
	}
}

// Active returns the current session, which may be terminal, or nil.
func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session
}

// Progress returns the duration+level stream for the current session.
// The channel is closed when the session stops.
func (r *Recorder) Progress() <-chan Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

// Start begins a new capture session: permission check, device prepare,
// capture start, and arming of the max-duration auto-stop.
func (r *Recorder) Start(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Never two concurrent captures: force-terminate any live session.
	if r.session != nil && !r.session.State().IsTerminal() {
		r.log.Warn().Str("sessionId", r.session.ID()).Msg("Force-terminating prior session before new capture")
		r.abandonLocked(ctx)
	}

	params := capture.Params{
		SampleRateHz: r.cfg.SampleRateHz,
		Channels:     r.cfg.Channels,
		BitRate:      r.cfg.BitRate,
	}
	s := NewSession(params)
	r.session = s
	r.artifact = ""
	r.metrics.SessionsTotal.Inc()
	r.metrics.SessionsActive.Inc()

	slog := logging.WithSession(s.ID())
	now := r.clock()

	if err := s.beginPrepare(); err != nil {
		return s, err
	}

	// Permission is re-verified on every attempt; cached results are not
	// trusted across sessions.
	allowed, err := r.gate.AllowCapture(ctx)
	if err != nil || !allowed {
		_ = s.fail(CodeMicrophoneDenied, "microphone access denied or blocked", now)
		r.finishLocked("failed")
		slog.Warn().Err(err).Msg("Microphone permission denied")
		return s, ErrMicrophoneDenied
	}

	path, err := r.store.Allocate()
	if err != nil {
		_ = s.fail(CodeRecordingFailed, err.Error(), now)
		r.finishLocked("failed")
		return s, ErrCaptureFailed
	}
	r.artifact = path

	if err := r.prepareDevice(ctx, path, params); err != nil {
		r.store.Delete(path)
		r.artifact = ""
		_ = s.fail(CodeDeviceNotSupported, err.Error(), now)
		r.finishLocked("failed")
		slog.Error().Err(err).Msg("Device initialization failed")
		return s, ErrDeviceNotSupported
	}

	if err := r.device.Start(ctx); err != nil {
		r.device.Abort(ctx)
		r.store.Delete(path)
		r.artifact = ""
		_ = s.fail(CodeRecordingFailed, err.Error(), now)
		r.finishLocked("failed")
		slog.Error().Err(err).Msg("Capture start failed")
		return s, ErrCaptureFailed
	}

	if err := s.beginRecording(r.clock()); err != nil {
		return s, err
	}

	r.progress = make(chan Progress, 16)
	r.progressDone = make(chan struct{})
	go r.progressLoop(s, r.progress, r.progressDone)

	// Max-duration auto-stop. The requestStop guard inside Stop ensures
	// this and a racing manual stop resolve to exactly one transition.
	r.maxTimer = time.AfterFunc(r.cfg.MaxDuration, func() {
		if _, err := r.Stop(context.Background()); err != nil && !errors.Is(err, ErrNoActiveSession) {
			r.log.Error().Err(err).Str("sessionId", s.ID()).Msg("Auto-stop failed")
		}
	})

	slog.Info().
		Int("sampleRateHz", params.SampleRateHz).
		Int("channels", params.Channels).
		Msg("Recording started")
	return s, nil
}

// prepareDevice initializes the device, force-stopping a leftover capture
// if the device reports busy.
func (r *Recorder) prepareDevice(ctx context.Context, path string, params capture.Params) error {
	err := r.device.Prepare(ctx, path, params)
	if errors.Is(err, capture.ErrBusy) {
		r.log.Warn().Msg("Device busy, discarding prior capture")
		if aerr := r.device.Abort(ctx); aerr != nil {
			return aerr
		}
		err = r.device.Prepare(ctx, path, params)
	}
	return err
}

// Stop finalizes the current capture. A stop on an already-stopping or
// terminal session is a no-op returning the session unchanged, so double
// triggers produce one consistent duration. A capture shorter than the
// minimum duration is cancelled and its partial artifact deleted.
func (r *Recorder) Stop(ctx context.Context) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.session
	if s == nil {
		return nil, ErrNoActiveSession
	}
	if !s.requestStop() {
		return s, nil
	}

	r.disarmLocked()
	now := r.clock()
	duration := s.elapsedSince(now)
	slog := logging.WithSession(s.ID())

	if duration < r.cfg.MinDuration {
		r.device.Abort(ctx)
		r.store.Delete(r.artifact)
		r.artifact = ""
		_ = s.cancel(duration, now)
		r.finishLocked("cancelled")
		slog.Info().Dur("duration", duration).Msg("Recording too short, cancelled")
		return s, nil
	}

	if err := r.device.Stop(ctx); err != nil {
		r.store.Delete(r.artifact)
		r.artifact = ""
		_ = s.fail(CodeRecordingFailed, err.Error(), now)
		r.finishLocked("failed")
		slog.Error().Err(err).Msg("Capture stop failed")
		return s, ErrCaptureFailed
	}

	size, err := r.store.Size(r.artifact)
	if err != nil {
		r.store.Delete(r.artifact)
		r.artifact = ""
		_ = s.fail(CodeRecordingFailed, err.Error(), now)
		r.finishLocked("failed")
		slog.Error().Err(err).Msg("Artifact missing after capture stop")
		return s, ErrCaptureFailed
	}

	if err := s.complete(r.artifact, size, duration, now); err != nil {
		return s, err
	}
	r.finishLocked("completed")
	r.metrics.SessionDuration.Observe(duration.Seconds())
	r.metrics.ArtifactBytes.Observe(float64(size))
	slog.Info().
		Dur("duration", duration).
		Int64("bytes", size).
		Msg("Recording completed")
	return s, nil
}

// Abandon terminates the current session at any non-terminal state:
// stops the device, deletes any artifact, and leaves the session
// cancelled so no further callbacks act on it.
func (r *Recorder) Abandon(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abandonLocked(ctx)
}

func (r *Recorder) abandonLocked(ctx context.Context) error {
	s := r.session
	if s == nil || s.State().IsTerminal() {
		return nil
	}

	r.disarmLocked()
	now := r.clock()
	r.device.Abort(ctx)
	r.store.Delete(r.artifact)
	r.artifact = ""
	_ = s.cancel(s.elapsedSince(now), now)
	r.finishLocked("abandoned")
	slog := logging.WithSession(s.ID())
	slog.Info().Msg("Recording abandoned")
	return nil
}

// disarmLocked stops the auto-stop timer and the progress loop.
func (r *Recorder) disarmLocked() {
	if r.maxTimer != nil {
		r.maxTimer.Stop()
		r.maxTimer = nil
	}
	if r.progressDone != nil {
		close(r.progressDone)
		r.progressDone = nil
	}
}

// finishLocked records the terminal outcome of the current session.
func (r *Recorder) finishLocked(outcome string) {
	r.metrics.SessionsActive.Dec()
	r.metrics.RecordSessionOutcome(outcome)
}

func (r *Recorder) progressLoop(s *Session, out chan<- Progress, done <-chan struct{}) {
	defer close(out)
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			p := Progress{
				Elapsed: s.elapsedSince(now),
				Level:   r.device.Level(),
			}
			select {
			case out <- p:
			default:
				// UI consumer is behind; drop the sample.
			}
		}
	}
}
