// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Configuration holds all runtime configuration for the pipeline.
type Configuration struct {
	Service       ServiceConfig
	Provider      ProviderConfig
	Recording     RecordingConfig
	Store         StoreConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service instance.
type ServiceConfig struct {
	Principal   string
	MetricsAddr string
}

// ProviderConfig configures the remote speech-recognition provider.
type ProviderConfig struct {
	URL            string
	AppKey         string
	Token          string
	LanguageCode   string
	SampleRateHz   int
	RequestTimeout time.Duration
	MaxAttempts    int
	BackoffUnit    time.Duration
}

// RecordingConfig bounds a single capture session.
type RecordingConfig struct {
	MinDuration  time.Duration
	MaxDuration  time.Duration
	SampleRateHz int
	Channels     int
	BitRate      int
}

// StoreConfig configures the temporary artifact store.
type StoreConfig struct {
	Dir       string
	Retention time.Duration
}

// KafkaConfig configures result event publishing.
type KafkaConfig struct {
	Enabled        bool
	Brokers        []string
	TopicCompleted string
	TopicFailed    string
	Principal      string
}

// ObservabilityConfig configures logging.
type ObservabilityConfig struct {
	LogLevel string
}

// Load reads configuration from the environment, applying defaults.
func Load() *Configuration {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-voice-pipeline")
	return &Configuration{
		Service: ServiceConfig{
			Principal:   principal,
			MetricsAddr: envOrDefault("METRICS_ADDR", ":9090"),
		},
		Provider: ProviderConfig{
			URL:            envOrDefault("ASR_URL", "https://nls-gateway.cn-shanghai.aliyuncs.com/stream/v1/asr"),
			AppKey:         os.Getenv("ASR_APP_KEY"),
			Token:          os.Getenv("ASR_TOKEN"),
			LanguageCode:   envOrDefault("ASR_LANGUAGE_CODE", "zh-CN"),
			SampleRateHz:   envInt("ASR_SAMPLE_RATE_HZ", 16000),
			RequestTimeout: envDuration("ASR_REQUEST_TIMEOUT", 15*time.Second),
			MaxAttempts:    envInt("ASR_MAX_ATTEMPTS", 3),
			BackoffUnit:    envDuration("ASR_BACKOFF_UNIT", time.Second),
		},
		Recording: RecordingConfig{
			MinDuration:  envDuration("RECORDING_MIN_DURATION", 500*time.Millisecond),
			MaxDuration:  envDuration("RECORDING_MAX_DURATION", 60*time.Second),
			SampleRateHz: envInt("RECORDING_SAMPLE_RATE_HZ", 16000),
			Channels:     envInt("RECORDING_CHANNELS", 1),
			BitRate:      envInt("RECORDING_BIT_RATE", 128000),
		},
		Store: StoreConfig{
			Dir:       envOrDefault("AUDIO_STORE_DIR", filepath.Join(os.TempDir(), "voice-artifacts")),
			Retention: envDuration("AUDIO_STORE_RETENTION", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Enabled:        envBool("KAFKA_ENABLED", false),
			Brokers:        envList("KAFKA_BROKERS"),
			TopicCompleted: envOrDefault("KAFKA_TOPIC_COMPLETED", "voice.message.completed"),
			TopicFailed:    envOrDefault("KAFKA_TOPIC_FAILED", "voice.message.failed"),
			Principal:      principal,
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
