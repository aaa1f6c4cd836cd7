package audio

import "sync"

// Manager accumulates raw inbound call audio per chat until the owning
// supervisor flushes it into a recognition segment. Each buffer is touched by
// exactly two parties: the transport feed (Append) and the chat's own
// supervisor (Flush); buffers never cross chats.
type Manager struct {
	mu      sync.Mutex
	buffers map[int64]*buffer
}

type buffer struct {
	capturing bool
	chunks    [][]byte
}

func NewManager() *Manager {
	return &Manager{buffers: make(map[int64]*buffer)}
}

// Start enables capture for the chat. Calling it on an already-capturing
// buffer is a no-op: no state is duplicated and no chunks are lost.
func (m *Manager) Start(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[chatID]
	if !ok {
		m.buffers[chatID] = &buffer{capturing: true}
		return
	}
	b.capturing = true
}

// Stop discards any unflushed chunks and disables capture. Idempotent on a
// non-capturing or absent buffer.
func (m *Manager) Stop(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[chatID]
	if !ok {
		return
	}
	b.capturing = false
	b.chunks = nil
}

// Append queues a raw audio chunk. Data arriving for a stopped or absent
// buffer is dropped silently: the transport producing it cannot be expected
// to know session state synchronously, so this path must never fail.
func (m *Manager) Append(chatID int64, data []byte) {
	if len(data) == 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[chatID]
	if !ok || !b.capturing {
		return
	}
	chunk := make([]byte, len(data))
	copy(chunk, data)
	b.chunks = append(b.chunks, chunk)
}

// Flush returns the concatenation of all chunks accumulated since the last
// flush, in arrival order, and clears the buffer atomically. No chunk is
// ever delivered to two flushes. Returns nil when nothing accumulated.
func (m *Manager) Flush(chatID int64) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[chatID]
	if !ok || len(b.chunks) == 0 {
		return nil
	}
	total := 0
	for _, c := range b.chunks {
		total += len(c)
	}
	out := make([]byte, 0, total)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	b.chunks = nil
	return out
}

// Remove deletes the buffer entirely. The buffer never outlives its session.
func (m *Manager) Remove(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buffers, chatID)
}

// Capturing reports whether the chat's buffer currently accepts chunks.
func (m *Manager) Capturing(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buffers[chatID]
	return ok && b.capturing
}
