package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	envVars := []string{
		"SERVICE_PRINCIPAL", "METRICS_ADDR", "LOG_LEVEL",
		"ASR_URL", "ASR_APP_KEY", "ASR_TOKEN", "ASR_LANGUAGE_CODE",
		"ASR_SAMPLE_RATE_HZ", "ASR_REQUEST_TIMEOUT", "ASR_MAX_ATTEMPTS", "ASR_BACKOFF_UNIT",
		"RECORDING_MIN_DURATION", "RECORDING_MAX_DURATION",
		"RECORDING_SAMPLE_RATE_HZ", "RECORDING_CHANNELS", "RECORDING_BIT_RATE",
		"AUDIO_STORE_DIR", "AUDIO_STORE_RETENTION",
		"KAFKA_ENABLED", "KAFKA_BROKERS", "KAFKA_TOPIC_COMPLETED", "KAFKA_TOPIC_FAILED",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg := Load()

	if cfg.Service.Principal != "svc-voice-pipeline" {
		t.Errorf("expected default principal 'svc-voice-pipeline', got %s", cfg.Service.Principal)
	}
	if cfg.Service.MetricsAddr != ":9090" {
		t.Errorf("expected default metrics addr ':9090', got %s", cfg.Service.MetricsAddr)
	}

	if cfg.Provider.LanguageCode != "zh-CN" {
		t.Errorf("expected default language 'zh-CN', got %s", cfg.Provider.LanguageCode)
	}
	if cfg.Provider.SampleRateHz != 16000 {
		t.Errorf("expected default sample rate 16000, got %d", cfg.Provider.SampleRateHz)
	}
	if cfg.Provider.RequestTimeout != 15*time.Second {
		t.Errorf("expected default request timeout 15s, got %v", cfg.Provider.RequestTimeout)
	}
	if cfg.Provider.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.Provider.MaxAttempts)
	}
	if cfg.Provider.BackoffUnit != time.Second {
		t.Errorf("expected default backoff unit 1s, got %v", cfg.Provider.BackoffUnit)
	}

	if cfg.Recording.MinDuration != 500*time.Millisecond {
		t.Errorf("expected default min duration 500ms, got %v", cfg.Recording.MinDuration)
	}
	if cfg.Recording.MaxDuration != 60*time.Second {
		t.Errorf("expected default max duration 60s, got %v", cfg.Recording.MaxDuration)
	}
	if cfg.Recording.Channels != 1 {
		t.Errorf("expected default channels 1, got %d", cfg.Recording.Channels)
	}

	if cfg.Store.Retention != 24*time.Hour {
		t.Errorf("expected default retention 24h, got %v", cfg.Store.Retention)
	}

	if cfg.Kafka.Enabled {
		t.Error("expected Kafka disabled by default")
	}
	if cfg.Kafka.TopicCompleted != "voice.message.completed" {
		t.Errorf("expected default completed topic, got %s", cfg.Kafka.TopicCompleted)
	}

	if cfg.Observability.LogLevel != "info" {
		t.Errorf("expected default log level 'info', got %s", cfg.Observability.LogLevel)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("SERVICE_PRINCIPAL", "svc-test")
	t.Setenv("ASR_REQUEST_TIMEOUT", "5s")
	t.Setenv("ASR_MAX_ATTEMPTS", "5")
	t.Setenv("RECORDING_MAX_DURATION", "30s")
	t.Setenv("AUDIO_STORE_RETENTION", "1h")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")

	cfg := Load()

	if cfg.Service.Principal != "svc-test" {
		t.Errorf("expected principal 'svc-test', got %s", cfg.Service.Principal)
	}
	if cfg.Provider.RequestTimeout != 5*time.Second {
		t.Errorf("expected request timeout 5s, got %v", cfg.Provider.RequestTimeout)
	}
	if cfg.Provider.MaxAttempts != 5 {
		t.Errorf("expected max attempts 5, got %d", cfg.Provider.MaxAttempts)
	}
	if cfg.Recording.MaxDuration != 30*time.Second {
		t.Errorf("expected max duration 30s, got %v", cfg.Recording.MaxDuration)
	}
	if cfg.Store.Retention != time.Hour {
		t.Errorf("expected retention 1h, got %v", cfg.Store.Retention)
	}
	if !cfg.Kafka.Enabled {
		t.Error("expected Kafka enabled")
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "broker1:9092" || cfg.Kafka.Brokers[1] != "broker2:9092" {
		t.Errorf("expected two trimmed brokers, got %v", cfg.Kafka.Brokers)
	}
	// Kafka principal follows the service principal
	if cfg.Kafka.Principal != "svc-test" {
		t.Errorf("expected kafka principal 'svc-test', got %s", cfg.Kafka.Principal)
	}
}

func TestLoad_InvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("ASR_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("RECORDING_MIN_DURATION", "bogus")
	t.Setenv("KAFKA_ENABLED", "maybe")

	cfg := Load()

	if cfg.Provider.MaxAttempts != 3 {
		t.Errorf("expected fallback max attempts 3, got %d", cfg.Provider.MaxAttempts)
	}
	if cfg.Recording.MinDuration != 500*time.Millisecond {
		t.Errorf("expected fallback min duration 500ms, got %v", cfg.Recording.MinDuration)
	}
	if cfg.Kafka.Enabled {
		t.Error("expected fallback Kafka disabled")
	}
}
