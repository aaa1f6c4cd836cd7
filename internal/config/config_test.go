package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != ":8080" {
		t.Fatalf("BindAddr = %q, want %q", cfg.BindAddr, ":8080")
	}
	if cfg.SpeechEngine != "mock" {
		t.Fatalf("SpeechEngine = %q, want %q", cfg.SpeechEngine, "mock")
	}
	if cfg.SegmentInterval != 3*time.Second {
		t.Fatalf("SegmentInterval = %v, want %v", cfg.SegmentInterval, 3*time.Second)
	}
	if len(cfg.WakePhrases) != 0 {
		t.Fatalf("WakePhrases = %v, want empty default", cfg.WakePhrases)
	}
}

func TestLoadParsesWakePhraseList(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("WAKE_PHRASES", "jukebox, hey jukebox ,,ok jukebox")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []string{"jukebox", "hey jukebox", "ok jukebox"}
	if len(cfg.WakePhrases) != len(want) {
		t.Fatalf("WakePhrases = %v, want %v", cfg.WakePhrases, want)
	}
	for i := range want {
		if cfg.WakePhrases[i] != want[i] {
			t.Fatalf("WakePhrases[%d] = %q, want %q", i, cfg.WakePhrases[i], want[i])
		}
	}
}

func TestLoadRejectsTooSmallSegmentInterval(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("APP_SEGMENT_INTERVAL", "50ms")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want segment interval validation failure")
	}
}

func TestLoadRejectsUnknownSpeechEngine(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("SPEECH_ENGINE", "whisper-cloud")

	if _, err := Load(); err == nil {
		t.Fatalf("Load() error = nil, want speech engine validation failure")
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"APP_BIND_ADDR",
		"APP_SHUTDOWN_TIMEOUT",
		"APP_SEGMENT_INTERVAL",
		"APP_METRICS_NAMESPACE",
		"APP_ALLOW_ANY_ORIGIN",
		"WAKE_PHRASES",
		"SPEECH_ENGINE",
		"MEDIA_SILENCE_SOURCE",
		"DATABASE_URL",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}
