package recognition

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"voice-message-pipeline/internal/config"
	"voice-message-pipeline/internal/observability/logging"
	"voice-message-pipeline/internal/observability/metrics"
)

// response is the provider's wire envelope. Success and failure both
// arrive with HTTP 200; header.status carries the real signal.
type response struct {
	Header struct {
		Status     int    `json:"status"`
		StatusText string `json:"status_text"`
		TaskID     string `json:"task_id,omitempty"`
		MessageID  string `json:"message_id"`
	} `json:"header"`
	Payload *struct {
		Result     string  `json:"result"`
		Index      int     `json:"index"`
		Time       int64   `json:"time"`
		Confidence float64 `json:"confidence,omitempty"`
	} `json:"payload,omitempty"`
}

// Result is a successful recognition.
type Result struct {
	Text       string
	Confidence float64
	TaskID     string
	Elapsed    time.Duration
}

// Client performs one-shot recognition calls against the remote provider.
type Client struct {
	http    *resty.Client
	cfg     config.ProviderConfig
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a recognition client with a bounded request timeout.
func NewClient(cfg config.ProviderConfig) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.RequestTimeout).
		SetHeader("X-NLS-Token", cfg.Token).
		SetHeader("Content-Type", fmt.Sprintf("audio/pcm;samplerate=%d", cfg.SampleRateHz))

	return &Client{
		http:    httpClient,
		cfg:     cfg,
		log:     logging.WithComponent("recognition"),
		metrics: metrics.DefaultMetrics,
	}
}

// Recognize performs exactly one recognition attempt: post the audio,
// parse the envelope, and map the embedded status to a typed error or a
// result. The audio is held entirely in memory; the 60-second capture cap
// keeps payloads around 2MB.
func (c *Client) Recognize(ctx context.Context, audio []byte) (*Result, error) {
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("appkey", c.cfg.AppKey).
		SetQueryParam("format", "pcm").
		SetQueryParam("sample_rate", strconv.Itoa(c.cfg.SampleRateHz)).
		SetBody(audio).
		Post(c.cfg.URL)
	elapsed := time.Since(start)

	if err != nil {
		var rerr *Error
		var nerr net.Error
		switch {
		case errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &nerr) && nerr.Timeout()):
			rerr = timeoutError(err.Error())
		default:
			rerr = NetworkUnavailable(err.Error())
		}
		c.metrics.RecordProviderCall(rerr.Code(), elapsed)
		c.log.Warn().Err(err).Dur("elapsed", elapsed).Msg("Provider call failed at transport layer")
		return nil, rerr
	}

	var envelope response
	if uerr := json.Unmarshal(resp.Body(), &envelope); uerr != nil {
		rerr := malformedResponse(uerr.Error())
		c.metrics.RecordProviderCall(rerr.Code(), elapsed)
		c.log.Warn().Err(uerr).Int("httpStatus", resp.StatusCode()).Msg("Provider response unparseable")
		return nil, rerr
	}

	if envelope.Header.Status != StatusSuccess {
		rerr := classifyStatus(envelope.Header.Status, envelope.Header.StatusText, envelope.Header.TaskID)
		c.metrics.RecordProviderCall(rerr.Code(), elapsed)
		c.log.Warn().
			Int("providerStatus", envelope.Header.Status).
			Str("statusText", envelope.Header.StatusText).
			Str("taskId", envelope.Header.TaskID).
			Bool("retriable", rerr.Retriable).
			Msg("Provider rejected recognition")
		return nil, rerr
	}

	if envelope.Payload == nil {
		rerr := malformedResponse("success status without payload")
		c.metrics.RecordProviderCall(rerr.Code(), elapsed)
		return nil, rerr
	}

	c.metrics.RecordProviderCall("success", elapsed)
	c.log.Debug().
		Str("taskId", envelope.Header.TaskID).
		Dur("elapsed", elapsed).
		Msg("Recognition succeeded")

	return &Result{
		Text:       envelope.Payload.Result,
		Confidence: envelope.Payload.Confidence,
		TaskID:     envelope.Header.TaskID,
		Elapsed:    elapsed,
	}, nil
}
