package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the voice-session service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	// SegmentInterval is how often each listening supervisor flushes the
	// capture buffer into a recognition segment.
	SegmentInterval time.Duration

	// WakePhrases overrides the default wake-phrase list. Order matters:
	// the first phrase found in a transcript wins.
	WakePhrases []string

	SpeechEngine  string
	SilenceSource string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "melodia"),
		AllowAnyOrigin:   false,
		SpeechEngine:     envOrDefault("SPEECH_ENGINE", "mock"),
		// The assistant joins a call with a silent stream so it is audible
		// infrastructure-wise before the first play command arrives.
		SilenceSource:   envOrDefault("MEDIA_SILENCE_SOURCE", "silence:60s"),
		DatabaseURL:     stringsTrimSpace("DATABASE_URL"),
		ShutdownTimeout: 15 * time.Second,
		SegmentInterval: 3 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SegmentInterval, err = durationFromEnv("APP_SEGMENT_INTERVAL", cfg.SegmentInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.WakePhrases = listFromEnv("WAKE_PHRASES")

	if cfg.SegmentInterval < 250*time.Millisecond {
		return Config{}, fmt.Errorf("APP_SEGMENT_INTERVAL must be at least 250ms")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SpeechEngine)) {
	case "mock":
	default:
		return Config{}, fmt.Errorf("invalid SPEECH_ENGINE: %q (expected mock)", cfg.SpeechEngine)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func listFromEnv(key string) []string {
	v := stringsTrimSpace(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
