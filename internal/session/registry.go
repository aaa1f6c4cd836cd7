package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// State is the lifecycle phase of a chat's voice session. Idle is not
// materialized: a chat with no registry entry is idle.
type State string

const (
	StateJoining  State = "joining"
	StateActive   State = "active"
	StateStopping State = "stopping"
)

var (
	ErrAlreadyExists     = errors.New("session already exists")
	ErrNotFound          = errors.New("session not found")
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// Session is the live state for one chat's voice presence. At most one
// session exists per chat at any time.
type Session struct {
	ChatID        int64     `json:"chat_id"`
	State         State     `json:"state"`
	CallHandle    string    `json:"call_handle,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	LastCommandAt time.Time `json:"last_command_at"`

	cancel context.CancelFunc
	done   chan struct{}
}

// Registry owns the authoritative chat -> session map. Mutations are scoped
// to one chat and complete without calling out while the lock is held;
// external joins, leaves and recognitions always happen outside the registry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*Session)}
}

// Create materializes a new session in the Joining state. A second create
// for the same chat fails with ErrAlreadyExists; callers treat that as a
// successful no-op so duplicate start commands stay idempotent.
func (r *Registry) Create(chatID int64) (*Session, error) {
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; ok {
		return nil, ErrAlreadyExists
	}
	s := &Session{
		ChatID:        chatID,
		State:         StateJoining,
		CreatedAt:     now,
		LastCommandAt: now,
	}
	r.sessions[chatID] = s
	return clone(s), nil
}

func (r *Registry) Get(chatID int64) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// Transition moves the session to the requested state, but only from one of
// the allowed source states. Anything else is an internal consistency fault
// and fails with ErrInvalidTransition.
func (r *Registry) Transition(chatID int64, to State, from ...State) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return ErrNotFound
	}
	for _, f := range from {
		if s.State == f {
			s.State = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s for chat %d", ErrInvalidTransition, s.State, to, chatID)
}

// SetCallHandle records the opaque call-transport reference after a
// successful join. The handle is owned exclusively by this session.
func (r *Registry) SetCallHandle(chatID int64, handle string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return ErrNotFound
	}
	s.CallHandle = handle
	return nil
}

// SetListener attaches the supervisor task handles. The done channel must be
// closed by the supervisor when it has finished cleanup; teardown blocks on
// it before removing the session.
func (r *Registry) SetListener(chatID int64, cancel context.CancelFunc, done chan struct{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return ErrNotFound
	}
	s.cancel = cancel
	s.done = done
	return nil
}

// Listener returns the supervisor handles for teardown. Both are nil when no
// supervisor was ever attached (join failed before the listener started).
func (r *Registry) Listener(chatID int64) (context.CancelFunc, <-chan struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return s.cancel, s.done, nil
}

// TouchCommand stamps the session with the time of the latest dispatched
// command, for diagnostics and future idle eviction.
func (r *Registry) TouchCommand(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[chatID]
	if !ok {
		return ErrNotFound
	}
	s.LastCommandAt = time.Now().UTC()
	return nil
}

// Remove deletes the session. Stopping is terminal: removal is the only exit.
func (r *Registry) Remove(chatID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[chatID]; !ok {
		return ErrNotFound
	}
	delete(r.sessions, chatID)
	return nil
}

func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	count := 0
	for _, s := range r.sessions {
		if s.State == StateActive {
			count++
		}
	}
	return count
}

// Chats lists every chat with a live session, in no particular order.
func (r *Registry) Chats() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]int64, 0, len(r.sessions))
	for id := range r.sessions {
		out = append(out, id)
	}
	return out
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
