package httpapi

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/antoniostano/melodia/internal/config"
	"github.com/antoniostano/melodia/internal/observability"
	"github.com/antoniostano/melodia/internal/session"
	"github.com/antoniostano/melodia/internal/stats"
)

// Assistant is the slice of the voice assistant the HTTP layer drives.
type Assistant interface {
	Start(ctx context.Context, chatID int64) (*session.Session, error)
	Stop(ctx context.Context, chatID int64) error
	HandleAudio(chatID int64, data []byte)
}

type Server struct {
	cfg       config.Config
	assistant Assistant
	registry  *session.Registry
	store     stats.Store
	metrics   *observability.Metrics
	upgrader  websocket.Upgrader
}

func New(cfg config.Config, assistant Assistant, registry *session.Registry, store stats.Store, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		assistant: assistant,
		registry:  registry,
		store:     store,
		metrics:   metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browser connections may feed call audio;
				// non-browser transports omit Origin and are allowed through.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Post("/v1/assistant/{chatID}/start", s.handleStart)
	r.Post("/v1/assistant/{chatID}/stop", s.handleStop)
	r.Get("/v1/assistant/{chatID}", s.handleGetSession)
	r.Get("/v1/stats", s.handleStats)
	r.Get("/v1/calls/{chatID}/ingest", s.handleIngestWS)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "ready",
		"speech_engine": s.cfg.SpeechEngine,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	sess, err := s.assistant.Start(r.Context(), chatID)
	if err != nil {
		respondError(w, http.StatusBadGateway, "join_failed", err.Error())
		return
	}
	if err := s.store.RecordCommandUse(r.Context(), "assiststart"); err != nil {
		log.Printf("httpapi: record command use: %v", err)
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	// Stopping a chat with no session is success; the endpoint is idempotent.
	if err := s.assistant.Stop(r.Context(), chatID); err != nil {
		respondError(w, http.StatusInternalServerError, "stop_failed", err.Error())
		return
	}
	if err := s.store.RecordCommandUse(r.Context(), "assistclose"); err != nil {
		log.Printf("httpapi: record command use: %v", err)
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"chat_id": chatID,
		"status":  "stopped",
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}

	sess, err := s.registry.Get(chatID)
	if err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	summary, err := s.store.Summary(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "stats_unavailable", err.Error())
		return
	}
	if err := s.store.RecordCommandUse(r.Context(), "stats"); err != nil {
		log.Printf("httpapi: record command use: %v", err)
	}
	respondJSON(w, http.StatusOK, summary)
}

// handleIngestWS streams raw call audio into the chat's capture buffer.
// Binary frames carry PCM chunks; anything else is ignored.
func (s *Server) handleIngestWS(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDParam(w, r)
	if !ok {
		return
	}
	if _, err := s.registry.Get(chatID); err != nil {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvents.WithLabelValues("ingest_connected").Inc()

	conn.SetReadLimit(2 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		s.assistant.HandleAudio(chatID, data)
	}

	s.metrics.SessionEvents.WithLabelValues("ingest_disconnected").Inc()
}

func chatIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "chatID"))
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_chat_id", "chat id must be an integer")
		return 0, false
	}
	return chatID, true
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
