package voice

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/antoniostano/melodia/internal/audio"
	"github.com/antoniostano/melodia/internal/calls"
	"github.com/antoniostano/melodia/internal/media"
	"github.com/antoniostano/melodia/internal/observability"
	"github.com/antoniostano/melodia/internal/session"
	"github.com/antoniostano/melodia/internal/stats"
)

// Assistant drives the per-chat voice-session lifecycle: join the call,
// capture audio, run one listening supervisor per active session, and
// dispatch extracted commands. All mutations for a chat are serialized
// through that chat's lock; different chats never wait on each other.
type Assistant struct {
	registry   *session.Registry
	buffers    *audio.Manager
	recognizer Recognizer
	resolver   media.Resolver
	transport  calls.Transport
	store      stats.Store
	metrics    *observability.Metrics
	extractor  *Extractor

	segmentInterval time.Duration
	silenceSource   string

	mu        sync.Mutex
	chatLocks map[int64]*sync.Mutex
}

func NewAssistant(
	registry *session.Registry,
	buffers *audio.Manager,
	recognizer Recognizer,
	resolver media.Resolver,
	transport calls.Transport,
	store stats.Store,
	metrics *observability.Metrics,
	extractor *Extractor,
	segmentInterval time.Duration,
	silenceSource string,
) *Assistant {
	if segmentInterval <= 0 {
		segmentInterval = 3 * time.Second
	}
	return &Assistant{
		registry:        registry,
		buffers:         buffers,
		recognizer:      recognizer,
		resolver:        resolver,
		transport:       transport,
		store:           store,
		metrics:         metrics,
		extractor:       extractor,
		segmentInterval: segmentInterval,
		silenceSource:   silenceSource,
	}
}

// chatLock returns the mutex serializing lifecycle operations for one chat.
func (a *Assistant) chatLock(chatID int64) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.chatLocks == nil {
		a.chatLocks = make(map[int64]*sync.Mutex)
	}
	l, ok := a.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		a.chatLocks[chatID] = l
	}
	return l
}

// Start brings up a voice session for the chat: register it, join the call
// with the silence source, enable capture and launch the supervisor. A start
// on a chat that already has a session returns the existing session; the
// duplicate request is success, not an error. A failed call join aborts the
// start and leaves no registry entry behind.
func (a *Assistant) Start(ctx context.Context, chatID int64) (*session.Session, error) {
	l := a.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	if _, err := a.registry.Create(chatID); err != nil {
		if errors.Is(err, session.ErrAlreadyExists) {
			a.metrics.SessionEvents.WithLabelValues("start_duplicate").Inc()
			return a.registry.Get(chatID)
		}
		return nil, err
	}

	handle, err := a.transport.Join(ctx, chatID, a.silenceSource)
	if err != nil {
		if rmErr := a.registry.Remove(chatID); rmErr != nil {
			log.Printf("voice: cleanup after failed join for chat %d: %v", chatID, rmErr)
		}
		a.metrics.SessionEvents.WithLabelValues("join_failed").Inc()
		return nil, fmt.Errorf("join call for chat %d: %w", chatID, err)
	}
	if err := a.registry.SetCallHandle(chatID, string(handle)); err != nil {
		log.Printf("voice: set call handle for chat %d: %v", chatID, err)
	}
	if err := a.registry.Transition(chatID, session.StateActive, session.StateJoining); err != nil {
		log.Printf("voice: activate chat %d: %v", chatID, err)
	}

	a.buffers.Start(chatID)

	// The supervisor outlives the start request; it is cancelled only by
	// teardown, never by the caller's context.
	supCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	if err := a.registry.SetListener(chatID, cancel, done); err != nil {
		log.Printf("voice: attach listener for chat %d: %v", chatID, err)
	}
	go a.supervise(supCtx, chatID, done)

	if err := a.store.AddChat(ctx, chatID, ""); err != nil {
		log.Printf("voice: record active chat %d: %v", chatID, err)
	}
	a.metrics.SessionEvents.WithLabelValues("started").Inc()
	a.metrics.ActiveSessions.Set(float64(a.registry.ActiveCount()))

	return a.registry.Get(chatID)
}

// Stop tears the session down: cancel the supervisor and wait for its
// acknowledgement, leave the call, drop the capture buffer and remove the
// registry entry. Every step runs even when an earlier one fails, so a
// partial failure never leaks a registry entry. Stopping a chat with no
// session is a successful no-op.
func (a *Assistant) Stop(ctx context.Context, chatID int64) error {
	l := a.chatLock(chatID)
	l.Lock()
	defer l.Unlock()

	if _, err := a.registry.Get(chatID); err != nil {
		return nil
	}
	if err := a.registry.Transition(chatID, session.StateStopping, session.StateJoining, session.StateActive); err != nil {
		log.Printf("voice: stop transition for chat %d: %v", chatID, err)
	}

	cancel, done, err := a.registry.Listener(chatID)
	if err == nil && cancel != nil {
		cancel()
		if done != nil {
			<-done
		}
	}

	if err := a.transport.Leave(ctx, chatID); err != nil {
		log.Printf("voice: leave call for chat %d: %v", chatID, err)
	}

	a.buffers.Stop(chatID)
	a.buffers.Remove(chatID)

	if err := a.store.RemoveChat(ctx, chatID); err != nil {
		log.Printf("voice: remove active chat %d: %v", chatID, err)
	}
	if err := a.registry.Remove(chatID); err != nil {
		log.Printf("voice: remove session for chat %d: %v", chatID, err)
	}

	a.metrics.SessionEvents.WithLabelValues("stopped").Inc()
	a.metrics.ActiveSessions.Set(float64(a.registry.ActiveCount()))
	return nil
}

// StopAll tears down every live session; used on process shutdown.
func (a *Assistant) StopAll(ctx context.Context) {
	for _, chatID := range a.registry.Chats() {
		if err := a.Stop(ctx, chatID); err != nil {
			log.Printf("voice: stop chat %d during shutdown: %v", chatID, err)
		}
	}
}

// HandleAudio feeds an inbound raw audio chunk from the call transport into
// the chat's capture buffer. Chunks for chats without a capturing session
// are dropped by the buffer.
func (a *Assistant) HandleAudio(chatID int64, data []byte) {
	a.buffers.Append(chatID, data)
}

// supervise is the per-session listening loop: on every segment tick, flush
// the capture buffer, hand the segment to the speech engine and dispatch any
// extracted command. Recognition failures are transient; only cancellation
// ends the loop. The done channel is the termination acknowledgement the
// teardown path blocks on.
func (a *Assistant) supervise(ctx context.Context, chatID int64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.segmentInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pcm := a.buffers.Flush(chatID)
			if len(pcm) == 0 {
				continue
			}
			a.metrics.SegmentBytes.Observe(float64(len(pcm)))

			text, err := a.recognizer.Recognize(ctx, pcm, audio.SegmentFormat())
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				a.metrics.RecognitionFailures.WithLabelValues("engine_error").Inc()
				log.Printf("voice: recognize segment for chat %d: %v", chatID, err)
				continue
			}
			if strings.TrimSpace(text) == "" {
				a.metrics.RecognitionFailures.WithLabelValues("empty").Inc()
				continue
			}

			cmd := a.extractor.Extract(text)
			if cmd == nil {
				continue
			}
			log.Printf("voice: chat %d recognized %q -> %s", chatID, text, cmd.Action)
			a.Dispatch(ctx, chatID, cmd)
		}
	}
}
