package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries all runtime settings, loaded from the environment with
// sensible defaults so the service starts with zero configuration.
type Config struct {
	Service       ServiceConfig
	Streaming     StreamingConfig
	STT           STTConfig
	SessionLimits SessionLimitsConfig
	Kafka         KafkaConfig
	Observability ObservabilityConfig
}

// ServiceConfig identifies the service and the ports it listens on.
type ServiceConfig struct {
	Principal string
	GRPCPort  string
	WSPort    string
	HTTPPort  string
}

// StreamingConfig tunes the sliding-window transcription loop.
type StreamingConfig struct {
	SampleRateHz     int
	StepMs           int
	LengthMs         int
	KeepMs           int
	FrameThreshold   int
	FrameStrideMs    int
	UseVAD           bool
	Language         string
	Translate        bool
	Timestamps       bool
	MaxContextTokens int
}

// STTConfig selects and configures the transcription backend.
type STTConfig struct {
	Provider     string // "alignatt", "google", or "mock"
	LanguageCode string
}

// SessionLimitsConfig bounds a single streaming session.
type SessionLimitsConfig struct {
	MaxAudioBytes int64
	MaxDuration   time.Duration
	MaxPartials   int
}

// KafkaConfig configures transcript event publishing. When Enabled is
// false events are logged instead of published.
type KafkaConfig struct {
	Enabled      bool
	Brokers      []string
	PartialTopic string
	SegmentTopic string
	Principal    string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

// ObservabilityConfig covers logging and the metrics endpoint.
type ObservabilityConfig struct {
	LogLevel string
}

// Load reads configuration from the environment. Missing or malformed
// values fall back to defaults; Load never fails.
func Load() *Config {
	principal := envOrDefault("SERVICE_PRINCIPAL", "svc-subtitles")
	return &Config{
		Service: ServiceConfig{
			Principal: principal,
			GRPCPort:  envOrDefault("GRPC_PORT", "50051"),
			WSPort:    envOrDefault("WS_PORT", "9090"),
			HTTPPort:  envOrDefault("HTTP_PORT", "8080"),
		},
		Streaming: StreamingConfig{
			SampleRateHz:     envOrDefaultInt("STREAM_SAMPLE_RATE_HZ", 16000),
			StepMs:           envOrDefaultInt("STREAM_STEP_MS", 1000),
			LengthMs:         envOrDefaultInt("STREAM_LENGTH_MS", 3000),
			KeepMs:           envOrDefaultInt("STREAM_KEEP_MS", 200),
			FrameThreshold:   envOrDefaultInt("STREAM_FRAME_THRESHOLD", 25),
			FrameStrideMs:    envOrDefaultInt("STREAM_FRAME_STRIDE_MS", 10),
			UseVAD:           envOrDefaultBool("STREAM_USE_VAD", false),
			Language:         envOrDefault("STREAM_LANGUAGE", "en"),
			Translate:        envOrDefaultBool("STREAM_TRANSLATE", false),
			Timestamps:       envOrDefaultBool("STREAM_TIMESTAMPS", true),
			MaxContextTokens: envOrDefaultInt("STREAM_MAX_CONTEXT_TOKENS", 224),
		},
		STT: STTConfig{
			Provider:     envOrDefault("STT_PROVIDER", "mock"),
			LanguageCode: envOrDefault("STT_LANGUAGE_CODE", "en-US"),
		},
		SessionLimits: SessionLimitsConfig{
			MaxAudioBytes: envOrDefaultInt64("SESSION_MAX_AUDIO_BYTES", 50*1024*1024),
			MaxDuration:   envOrDefaultDuration("SESSION_MAX_DURATION", 30*time.Minute),
			MaxPartials:   envOrDefaultInt("SESSION_MAX_PARTIALS", 5000),
		},
		Kafka: KafkaConfig{
			Enabled:      envOrDefaultBool("KAFKA_ENABLED", false),
			Brokers:      splitNonEmpty(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
			PartialTopic: envOrDefault("KAFKA_PARTIAL_TOPIC", "transcripts.partials"),
			SegmentTopic: envOrDefault("KAFKA_SEGMENT_TOPIC", "transcripts.segments"),
			Principal:    envOrDefault("KAFKA_PRINCIPAL", principal),
			WriteTimeout: envOrDefaultDuration("KAFKA_WRITE_TIMEOUT", 5*time.Second),
			BatchTimeout: envOrDefaultDuration("KAFKA_BATCH_TIMEOUT", 100*time.Millisecond),
		},
		Observability: ObservabilityConfig{
			LogLevel: envOrDefault("LOG_LEVEL", "info"),
		},
	}
}

// Validate rejects parameter combinations the streaming loop cannot
// run with. Called once at startup; per-session rechecks happen at
// streaming-context construction.
func (c *Config) Validate() error {
	s := c.Streaming
	if s.SampleRateHz <= 0 {
		return fmt.Errorf("config: sample rate %d must be positive", s.SampleRateHz)
	}
	if s.StepMs <= 0 || s.LengthMs <= 0 {
		return fmt.Errorf("config: step %d ms and length %d ms must be positive", s.StepMs, s.LengthMs)
	}
	if s.KeepMs < 0 || s.KeepMs >= s.LengthMs {
		return fmt.Errorf("config: keep %d ms must be in [0, length %d ms)", s.KeepMs, s.LengthMs)
	}
	if s.FrameThreshold <= 0 || s.FrameStrideMs <= 0 {
		return fmt.Errorf("config: frame threshold %d and stride %d ms must be positive", s.FrameThreshold, s.FrameStrideMs)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka enabled with no brokers")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
