package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/antoniostano/melodia/internal/audio"
	"github.com/antoniostano/melodia/internal/calls"
	"github.com/antoniostano/melodia/internal/config"
	"github.com/antoniostano/melodia/internal/httpapi"
	"github.com/antoniostano/melodia/internal/media"
	"github.com/antoniostano/melodia/internal/observability"
	"github.com/antoniostano/melodia/internal/session"
	"github.com/antoniostano/melodia/internal/stats"
	"github.com/antoniostano/melodia/internal/voice"
)

func main() {
	// A missing .env is fine; the environment wins either way.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("dotenv: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx := context.Background()
	store, err := stats.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("stats store init failed: %v", err)
	}
	defer store.Close()

	var recognizer voice.Recognizer
	switch cfg.SpeechEngine {
	case "mock":
		recognizer = voice.NewMockRecognizer()
		log.Printf("speech engine: mock")
	default:
		log.Fatalf("invalid SPEECH_ENGINE: %q (expected mock)", cfg.SpeechEngine)
	}

	registry := session.NewRegistry()
	buffers := audio.NewManager()
	transport := calls.NewLogTransport()
	resolver := media.NewEchoResolver()

	assistant := voice.NewAssistant(
		registry,
		buffers,
		recognizer,
		resolver,
		transport,
		store,
		metrics,
		voice.NewExtractor(cfg.WakePhrases),
		cfg.SegmentInterval,
		cfg.SilenceSource,
	)

	api := httpapi.New(cfg, assistant, registry, store, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	assistant.StopAll(shutdownCtx)
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}
