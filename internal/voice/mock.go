package voice

import (
	"context"
	"sync"

	"github.com/antoniostano/melodia/internal/audio"
)

// MockRecognizer is the speech engine used when no real engine is
// configured. It replays scripted transcripts in order, then reports
// silence; tests script it, local runs leave it empty.
type MockRecognizer struct {
	mu          sync.Mutex
	transcripts []string
}

func NewMockRecognizer(transcripts ...string) *MockRecognizer {
	return &MockRecognizer{transcripts: transcripts}
}

// Queue appends transcripts to replay on subsequent segments.
func (m *MockRecognizer) Queue(transcripts ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts = append(m.transcripts, transcripts...)
}

func (m *MockRecognizer) Recognize(_ context.Context, _ []byte, _ audio.Format) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.transcripts) == 0 {
		return "", nil
	}
	next := m.transcripts[0]
	m.transcripts = m.transcripts[1:]
	return next, nil
}
