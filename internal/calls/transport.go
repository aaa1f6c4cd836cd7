// Package calls abstracts the real-time call transport. The core never talks
// a signaling protocol itself; it drives these operations and feeds inbound
// audio into the capture buffer.
package calls

import (
	"context"
	"log"

	"github.com/google/uuid"
)

// Handle is the opaque reference to a joined call, owned exclusively by the
// session that joined it.
type Handle string

// Transport is the outbound half of the call integration.
type Transport interface {
	// Join attaches the assistant to the chat's call, streaming the given
	// audio source, and returns the call handle.
	Join(ctx context.Context, chatID int64, source string) (Handle, error)
	// Leave detaches from the chat's call and releases the handle.
	Leave(ctx context.Context, chatID int64) error
	// Attach switches the audio source on an already-joined call.
	Attach(ctx context.Context, handle Handle, source string) error

	Pause(ctx context.Context, chatID int64) error
	Resume(ctx context.Context, chatID int64) error
	Skip(ctx context.Context, chatID int64) error
	SetVolume(ctx context.Context, chatID int64, level int) error
}

// LogTransport is a stand-in transport for local runs: every operation
// succeeds and is logged. The inbound audio leg is served separately by the
// HTTP ingest endpoint.
type LogTransport struct{}

func NewLogTransport() *LogTransport { return &LogTransport{} }

func (t *LogTransport) Join(_ context.Context, chatID int64, source string) (Handle, error) {
	h := Handle("call-" + uuid.NewString())
	log.Printf("calls: joined chat %d with source %q (handle %s)", chatID, source, h)
	return h, nil
}

func (t *LogTransport) Leave(_ context.Context, chatID int64) error {
	log.Printf("calls: left chat %d", chatID)
	return nil
}

func (t *LogTransport) Attach(_ context.Context, handle Handle, source string) error {
	log.Printf("calls: attached source %q to %s", source, handle)
	return nil
}

func (t *LogTransport) Pause(_ context.Context, chatID int64) error {
	log.Printf("calls: paused playback in chat %d", chatID)
	return nil
}

func (t *LogTransport) Resume(_ context.Context, chatID int64) error {
	log.Printf("calls: resumed playback in chat %d", chatID)
	return nil
}

func (t *LogTransport) Skip(_ context.Context, chatID int64) error {
	log.Printf("calls: skipped track in chat %d", chatID)
	return nil
}

func (t *LogTransport) SetVolume(_ context.Context, chatID int64, level int) error {
	log.Printf("calls: set volume %d in chat %d", level, chatID)
	return nil
}
