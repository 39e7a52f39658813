// Package pipeline coordinates the capture-to-transcript flow: the
// permission and connectivity gate, the recorder, the artifact store,
// the transcription attempt, the recognition client, and result event
// publishing. It owns the single-slot job registry: at most one
// recording session and one transcription attempt exist at a time.
package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voice-message-pipeline/internal/audiostore"
	"voice-message-pipeline/internal/capture"
	"voice-message-pipeline/internal/config"
	"voice-message-pipeline/internal/events"
	"voice-message-pipeline/internal/gate"
	"voice-message-pipeline/internal/models"
	"voice-message-pipeline/internal/observability/logging"
	"voice-message-pipeline/internal/observability/metrics"
	"voice-message-pipeline/internal/recognition"
	"voice-message-pipeline/internal/recording"
	"voice-message-pipeline/internal/transcription"
)

// providerName tags attempts and log lines with the recognition backend.
const providerName = "nls"

// Pipeline errors surfaced to the caller.
var (
	ErrNotInitialized     = errors.New("pipeline not initialized")
	ErrSubmissionInFlight = errors.New("a transcription submission is already in flight")
	ErrNoAttempt          = errors.New("no transcription attempt to retry")
	ErrRecordingDiscarded = errors.New("recording discarded before reaching the minimum duration")
	ErrRecordingFailed    = errors.New("recording did not produce an artifact")
)

// Outcome is the result of a successful transcription, handed to the UI
// layer for message sending.
type Outcome struct {
	SessionID         string
	Text              string
	Confidence        float64
	RecordingDuration time.Duration
	TranscriptionTime time.Duration
	RetryCount        int
}

// Pipeline wires the components together and enforces the single-slot
// invariant. All public methods are safe for concurrent use.
type Pipeline struct {
	cfg       *config.Configuration
	device    capture.Device
	gate      *gate.Gate
	recorder  *recording.Recorder
	store     *audiostore.Store
	client    *recognition.Client
	publisher *events.Publisher
	log       zerolog.Logger
	metrics   *metrics.Metrics
	// clock is injectable for testing; defaults to time.Now.
	clock func() time.Time

	mu          sync.Mutex
	initialized bool
	session     *recording.Session
	attempt     *transcription.Attempt
	artifact    string
	// lastSubmitted is the id of the session whose artifact has already
	// entered a submission, so a repeated stop cannot re-submit a
	// consumed recording.
	lastSubmitted string
	// inFlight guards the network round so a second submission, a retry,
	// or an abandon cannot interleave with one in progress.
	inFlight bool
}

// New assembles a pipeline from its components.
func New(cfg *config.Configuration, device capture.Device, g *gate.Gate, store *audiostore.Store, client *recognition.Client, publisher *events.Publisher) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		device:    device,
		gate:      g,
		recorder:  recording.NewRecorder(device, g, store, cfg.Recording),
		store:     store,
		client:    client,
		publisher: publisher,
		log:       logging.WithComponent("pipeline"),
		metrics:   metrics.DefaultMetrics,
		clock:     time.Now,
	}
}

// Init performs the one-time process setup: the retention sweep of the
// artifact store and, for devices that need it, the audio-session
// configuration. Idempotent.
func (p *Pipeline) Init(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		return nil
	}

	report := p.store.Sweep(p.cfg.Store.Retention)
	if len(report.Errors) > 0 {
		p.log.Warn().Int("errors", len(report.Errors)).Msg("Store sweep finished with errors")
	}

	if sc, ok := p.device.(capture.SessionConfigurer); ok {
		if err := sc.ConfigureSession(ctx); err != nil {
			return err
		}
	}

	p.initialized = true
	p.log.Info().Msg("Pipeline initialized")
	return nil
}

// Shutdown abandons any active work, discards a held retriable attempt
// and its artifact, and tears down the audio session.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.recorder.Abandon(ctx)

	p.mu.Lock()
	p.discardLocked()
	p.initialized = false
	p.mu.Unlock()

	if sc, ok := p.device.(capture.SessionConfigurer); ok {
		return sc.TeardownSession(ctx)
	}
	return nil
}

// Recorder returns the underlying recorder for progress consumption.
func (p *Pipeline) Recorder() *recording.Recorder {
	return p.recorder
}

// CurrentAttempt returns the held transcription attempt, or nil.
func (p *Pipeline) CurrentAttempt() *transcription.Attempt {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempt
}

// StartRecording begins a new capture session. A held failed attempt and
// its artifact are discarded: starting over supersedes a pending retry.
func (p *Pipeline) StartRecording(ctx context.Context) (*recording.Session, error) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	p.discardLocked()
	p.mu.Unlock()

	s, err := p.recorder.Start(ctx)

	p.mu.Lock()
	p.session = s
	p.mu.Unlock()
	return s, err
}

// StopAndTranscribe finalizes the current capture and, if it produced an
// artifact, submits it for recognition. A capture below the minimum
// duration returns ErrRecordingDiscarded with no attempt created.
func (p *Pipeline) StopAndTranscribe(ctx context.Context) (*Outcome, error) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	// Claim the submission slot before releasing the lock so racing stop
	// triggers resolve to exactly one submission.
	p.inFlight = true
	p.mu.Unlock()
	defer p.clearInFlight()

	s, err := p.recorder.Stop(ctx)
	if err != nil {
		return nil, err
	}
	switch s.State() {
	case recording.StateCompleted:
	case recording.StateCancelled:
		return nil, ErrRecordingDiscarded
	default:
		return nil, ErrRecordingFailed
	}

	p.mu.Lock()
	if p.lastSubmitted == s.ID() {
		// This session's artifact already entered a submission. A held
		// failed attempt is re-entered through Retry, never a second stop.
		p.mu.Unlock()
		return nil, recording.ErrNoActiveSession
	}
	a := transcription.NewAttempt(s.ID(), providerName, p.cfg.Provider.LanguageCode)
	p.session = s
	p.attempt = a
	p.artifact = s.ArtifactPath()
	p.lastSubmitted = s.ID()
	p.mu.Unlock()

	p.metrics.AttemptsTotal.Inc()
	return p.submit(ctx, a, s.Duration(), s.ArtifactPath())
}

// Retry re-submits the held failed attempt against its preserved
// artifact. Only retriable failures can re-enter; manual retries are
// unbounded and each one re-runs the full submission including the
// connectivity check.
func (p *Pipeline) Retry(ctx context.Context) (*Outcome, error) {
	p.mu.Lock()
	if !p.initialized {
		p.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if p.inFlight {
		p.mu.Unlock()
		return nil, ErrSubmissionInFlight
	}
	a := p.attempt
	if a == nil {
		p.mu.Unlock()
		return nil, ErrNoAttempt
	}
	if err := a.Retry(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	s := p.session
	artifact := p.artifact
	p.inFlight = true
	p.mu.Unlock()

	p.metrics.ManualRetries.Inc()
	p.metrics.AttemptsTotal.Inc()
	alog := logging.WithAttempt(a.SessionID(), a.ID(), a.Provider())
	alog.Info().Int("retryCount", a.RetryCount()).Msg("Manual retry requested")

	var recDur time.Duration
	if s != nil {
		recDur = s.Duration()
	}
	defer p.clearInFlight()
	return p.submit(ctx, a, recDur, artifact)
}

// Abandon terminates any active recording and discards the held attempt
// and artifact. Rejected while a submission is in flight.
func (p *Pipeline) Abandon(ctx context.Context) error {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		return ErrSubmissionInFlight
	}
	p.mu.Unlock()

	p.recorder.Abandon(ctx)

	p.mu.Lock()
	p.discardLocked()
	p.mu.Unlock()
	return nil
}

// submit runs one full submission round: connectivity check, upload,
// recognition with automatic retry, and terminal bookkeeping. The
// artifact is deleted on success and on non-retriable failure; it is
// preserved on retriable failure for a possible manual retry.
func (p *Pipeline) submit(ctx context.Context, a *transcription.Attempt, recDur time.Duration, artifact string) (*Outcome, error) {
	alog := logging.WithAttempt(a.SessionID(), a.ID(), a.Provider())

	// Connectivity is re-verified on every round; no network attempt is
	// consumed when the device is offline.
	online, err := p.gate.AllowSubmit(ctx)
	if err != nil || !online {
		rerr := recognition.NetworkUnavailable("connectivity check failed before submission")
		_ = a.Fail(rerr, p.clock())
		alog.Warn().Err(err).Msg("Submission blocked, no connectivity")
		p.failAttempt(ctx, a, rerr, artifact)
		return nil, rerr
	}

	if err := a.BeginUpload(p.clock()); err != nil {
		return nil, err
	}

	audio, err := os.ReadFile(artifact)
	if err != nil {
		rerr := &recognition.Error{
			Kind:        recognition.KindClientConfig,
			Message:     err.Error(),
			UserMessage: "录音文件异常，请重新录制",
			Retriable:   false,
		}
		_ = a.Fail(rerr, p.clock())
		alog.Error().Err(err).Msg("Artifact unreadable at submission")
		p.failAttempt(ctx, a, rerr, artifact)
		return nil, rerr
	}

	res, err := p.client.RecognizeWithRetry(ctx, audio)
	if err != nil {
		rerr := recognition.AsError(err)
		if rerr == nil {
			rerr = &recognition.Error{
				Kind:        recognition.KindUnknown,
				Message:     err.Error(),
				UserMessage: "识别失败，请重试",
				Retriable:   true,
			}
		}
		_ = a.Fail(rerr, p.clock())
		p.failAttempt(ctx, a, rerr, artifact)
		return nil, rerr
	}

	if err := a.MarkProcessing(); err != nil {
		return nil, err
	}
	if err := a.Complete(res.Text, res.Confidence, res.TaskID, p.clock()); err != nil {
		return nil, err
	}

	// The artifact is consumed: delete it before announcing the result so
	// no transcript ever coexists with its raw audio.
	p.store.Delete(artifact)
	p.mu.Lock()
	p.artifact = ""
	p.attempt = nil
	p.mu.Unlock()

	p.metrics.RecordAttemptOutcome("completed", "")
	p.metrics.ProcessingTime.Observe(a.ProcessingTime().Seconds())
	alog.Info().
		Dur("processingTime", a.ProcessingTime()).
		Int("retryCount", a.RetryCount()).
		Msg("Transcription completed")

	p.publisher.PublishCompleted(ctx, a.SessionID(), models.VoiceMessageCompleted{
		EventType:           "voice.message.completed",
		SessionID:           a.SessionID(),
		Text:                res.Text,
		Confidence:          res.Confidence,
		RecordingDurationMs: recDur.Milliseconds(),
		TranscriptionTimeMs: a.ProcessingTime().Milliseconds(),
		Timestamp:           p.clock().UnixMilli(),
	})

	return &Outcome{
		SessionID:         a.SessionID(),
		Text:              res.Text,
		Confidence:        res.Confidence,
		RecordingDuration: recDur,
		TranscriptionTime: a.ProcessingTime(),
		RetryCount:        a.RetryCount(),
	}, nil
}

// failAttempt records a failed round: metrics, the failure event, and
// artifact disposal. Non-retriable failures release the artifact and the
// attempt slot immediately; retriable ones hold both for a manual retry.
func (p *Pipeline) failAttempt(ctx context.Context, a *transcription.Attempt, rerr *recognition.Error, artifact string) {
	p.metrics.RecordAttemptOutcome("failed", rerr.Code())

	if !rerr.Retriable {
		p.store.Delete(artifact)
		p.mu.Lock()
		p.artifact = ""
		p.attempt = nil
		p.mu.Unlock()
	}

	p.publisher.PublishFailed(ctx, a.SessionID(), models.VoiceMessageFailed{
		EventType:   "voice.message.failed",
		SessionID:   a.SessionID(),
		Code:        rerr.Code(),
		UserMessage: rerr.UserMessage,
		Retriable:   rerr.Retriable,
		RetryCount:  a.RetryCount(),
		Timestamp:   p.clock().UnixMilli(),
	})
}

// discardLocked releases the held attempt and deletes its artifact.
// Callers hold p.mu.
func (p *Pipeline) discardLocked() {
	if p.artifact != "" {
		p.store.Delete(p.artifact)
		p.artifact = ""
	}
	p.attempt = nil
	p.session = nil
}

func (p *Pipeline) clearInFlight() {
	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}
