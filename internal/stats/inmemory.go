package stats

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a simple in-process stats store for local/dev use.
type InMemoryStore struct {
	mu       sync.RWMutex
	plays    []PlayEvent
	commands map[string]int64
	chats    map[int64]string
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		commands: make(map[string]int64),
		chats:    make(map[int64]string),
	}
}

func (s *InMemoryStore) RecordPlay(_ context.Context, event PlayEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.plays = append(s.plays, event)
	return nil
}

func (s *InMemoryStore) RecordCommandUse(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands[name]++
	return nil
}

func (s *InMemoryStore) AddChat(_ context.Context, chatID int64, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = title
	return nil
}

func (s *InMemoryStore) RemoveChat(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.chats, chatID)
	return nil
}

func (s *InMemoryStore) Summary(_ context.Context) (Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(s.commands))
	for k, v := range s.commands {
		counts[k] = v
	}
	chats := make([]int64, 0, len(s.chats))
	for id := range s.chats {
		chats = append(chats, id)
	}
	sort.Slice(chats, func(i, j int) bool { return chats[i] < chats[j] })

	return Summary{
		TotalPlays:    int64(len(s.plays)),
		CommandCounts: counts,
		ActiveChats:   chats,
	}, nil
}

func (s *InMemoryStore) Close() error { return nil }
