package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/antoniostano/melodia/internal/config"
	"github.com/antoniostano/melodia/internal/observability"
	"github.com/antoniostano/melodia/internal/session"
	"github.com/antoniostano/melodia/internal/stats"
)

type stubAssistant struct {
	registry *session.Registry
	startErr error

	mu     sync.Mutex
	chunks map[int64][][]byte
}

func newStubAssistant(registry *session.Registry) *stubAssistant {
	return &stubAssistant{registry: registry, chunks: make(map[int64][][]byte)}
}

func (a *stubAssistant) Start(_ context.Context, chatID int64) (*session.Session, error) {
	if a.startErr != nil {
		return nil, a.startErr
	}
	if _, err := a.registry.Create(chatID); err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			return a.registry.Get(chatID)
		}
		return nil, err
	}
	_ = a.registry.Transition(chatID, session.StateActive, session.StateJoining)
	return a.registry.Get(chatID)
}

func (a *stubAssistant) Stop(_ context.Context, chatID int64) error {
	if err := a.registry.Remove(chatID); err != nil && !errors.Is(err, session.ErrNotFound) {
		return err
	}
	return nil
}

func (a *stubAssistant) HandleAudio(chatID int64, data []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.chunks[chatID] = append(a.chunks[chatID], append([]byte(nil), data...))
}

func (a *stubAssistant) chunkCount(chatID int64) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.chunks[chatID])
}

func newTestServer(t *testing.T, label string) (*httptest.Server, *stubAssistant, *stats.InMemoryStore) {
	t.Helper()
	registry := session.NewRegistry()
	assistant := newStubAssistant(registry)
	store := stats.NewInMemoryStore()
	metrics := observability.NewMetrics("test_httpapi_" + label + "_" + time.Now().Format("150405") + "_" + time.Now().Format("000000000"))
	srv := New(config.Config{SpeechEngine: "mock"}, assistant, registry, store, metrics)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts, assistant, store
}

func TestStartAndStopSession(t *testing.T) {
	ts, _, _ := newTestServer(t, "lifecycle")

	res, err := http.Post(ts.URL+"/v1/assistant/42/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("start request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var started map[string]any
	if err := json.NewDecoder(res.Body).Decode(&started); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if got, _ := started["chat_id"].(float64); int64(got) != 42 {
		t.Fatalf("chat_id = %v, want 42", started["chat_id"])
	}

	getRes, err := http.Get(ts.URL + "/v1/assistant/42")
	if err != nil {
		t.Fatalf("get session request error = %v", err)
	}
	defer getRes.Body.Close()
	if getRes.StatusCode != http.StatusOK {
		t.Fatalf("get session status = %d, want %d", getRes.StatusCode, http.StatusOK)
	}

	stopRes, err := http.Post(ts.URL+"/v1/assistant/42/stop", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("stop request error = %v", err)
	}
	defer stopRes.Body.Close()
	if stopRes.StatusCode != http.StatusOK {
		t.Fatalf("stop status = %d, want %d", stopRes.StatusCode, http.StatusOK)
	}

	goneRes, err := http.Get(ts.URL + "/v1/assistant/42")
	if err != nil {
		t.Fatalf("get session after stop error = %v", err)
	}
	defer goneRes.Body.Close()
	if goneRes.StatusCode != http.StatusNotFound {
		t.Fatalf("get session after stop status = %d, want %d", goneRes.StatusCode, http.StatusNotFound)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	ts, _, _ := newTestServer(t, "idem")

	for i := 0; i < 2; i++ {
		res, err := http.Post(ts.URL+"/v1/assistant/7/stop", "application/json", bytes.NewReader(nil))
		if err != nil {
			t.Fatalf("stop request %d error = %v", i, err)
		}
		res.Body.Close()
		if res.StatusCode != http.StatusOK {
			t.Fatalf("stop request %d status = %d, want %d", i, res.StatusCode, http.StatusOK)
		}
	}
}

func TestStartRejectsMalformedChatID(t *testing.T) {
	ts, _, _ := newTestServer(t, "badid")

	res, err := http.Post(ts.URL+"/v1/assistant/not-a-number/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("start request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
	}
}

func TestStartReportsJoinFailure(t *testing.T) {
	ts, assistant, _ := newTestServer(t, "joinfail")
	assistant.startErr = errors.New("no voice chat in progress")

	res, err := http.Post(ts.URL+"/v1/assistant/9/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("start request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadGateway)
	}

	var payload map[string]any
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["code"] != "join_failed" {
		t.Fatalf("code = %v, want join_failed", payload["code"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts, _, store := newTestServer(t, "stats")
	ctx := context.Background()

	if err := store.RecordPlay(ctx, stats.PlayEvent{Title: "song", Platform: "test", ChatID: 1}); err != nil {
		t.Fatalf("RecordPlay() error = %v", err)
	}
	if err := store.AddChat(ctx, 1, "chat one"); err != nil {
		t.Fatalf("AddChat() error = %v", err)
	}

	res, err := http.Get(ts.URL + "/v1/stats")
	if err != nil {
		t.Fatalf("stats request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	var summary stats.Summary
	if err := json.NewDecoder(res.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.TotalPlays != 1 {
		t.Fatalf("TotalPlays = %d, want 1", summary.TotalPlays)
	}
	if len(summary.ActiveChats) != 1 || summary.ActiveChats[0] != 1 {
		t.Fatalf("ActiveChats = %v, want [1]", summary.ActiveChats)
	}
}

func TestIngestRequiresSession(t *testing.T) {
	ts, _, _ := newTestServer(t, "ingestmissing")

	res, err := http.Get(ts.URL + "/v1/calls/5/ingest")
	if err != nil {
		t.Fatalf("ingest request error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusNotFound)
	}
}

func TestIngestFeedsAudioChunks(t *testing.T) {
	ts, assistant, _ := newTestServer(t, "ingest")

	res, err := http.Post(ts.URL+"/v1/assistant/5/start", "application/json", bytes.NewReader(nil))
	if err != nil {
		t.Fatalf("start request error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/calls/5/ingest"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial error = %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("write binary frame: %v", err)
	}
	// Text frames carry no audio and must be ignored.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("write text frame: %v", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, []byte{5, 6}); err != nil {
		t.Fatalf("write second binary frame: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for assistant.chunkCount(5) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := assistant.chunkCount(5); got != 2 {
		t.Fatalf("audio chunks received = %d, want 2", got)
	}
}
